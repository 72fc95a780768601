// Package simhash fingerprints harvested text so near-identical harvests of
// different translation pages can be spotted.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// DuplicateThreshold is the Hamming distance at or below which two
// fingerprints are treated as the same text.
const DuplicateThreshold = 3

// Fingerprint computes a 64-bit SimHash of text. Space-separated words are
// tokens; runs of CJK characters, which have no spaces, are split into
// character bigrams.
func Fingerprint(text string) uint64 {
	toks := tokens(text)
	if len(toks) == 0 {
		return 0
	}

	var vector [64]int
	for _, tok := range toks {
		h := fnv.New64a()
		h.Write([]byte(tok))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b are within threshold bits of each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

func tokens(text string) []string {
	var out []string
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		if !hasCJK(runes) {
			out = append(out, strings.ToLower(word))
			continue
		}
		if len(runes) == 1 {
			out = append(out, word)
			continue
		}
		for i := 0; i+1 < len(runes); i++ {
			out = append(out, string(runes[i:i+2]))
		}
	}
	return out
}

func hasCJK(runes []rune) bool {
	for _, r := range runes {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}
