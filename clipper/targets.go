package clipper

import (
	"regexp"
	"sort"
	"strings"

	"github.com/use-agent/clipper/models"
)

// tokenPattern matches the article identifier embedded in source URLs.
var tokenPattern = regexp.MustCompile(`[A-Z0-9]{16,}`)

// idPlaceholder is replaced by the identifier token in URL templates.
const idPlaceholder = "{id}"

// preferredOrder fixes the opening order of the well-known languages.
var preferredOrder = []string{"en", "zh"}

// ExtractToken returns the first identifier token in sourceURL, or "".
func ExtractToken(sourceURL string) string {
	return tokenPattern.FindString(sourceURL)
}

// DeriveTargets builds one auxiliary target per template. The URLs are built
// even when no token is found; they then point at pages with no content.
// Targets come out in a stable order: en, zh, then the rest by tag.
func DeriveTargets(sourceURL string, templates map[string]string) []models.AuxiliaryTarget {
	token := ExtractToken(sourceURL)

	tags := make([]string, 0, len(templates))
	for _, tag := range preferredOrder {
		if _, ok := templates[tag]; ok {
			tags = append(tags, tag)
		}
	}
	rest := make([]string, 0, len(templates))
	for tag := range templates {
		if !isPreferred(tag) {
			rest = append(rest, tag)
		}
	}
	sort.Strings(rest)
	tags = append(tags, rest...)

	targets := make([]models.AuxiliaryTarget, 0, len(tags))
	for _, tag := range tags {
		targets = append(targets, models.AuxiliaryTarget{
			LanguageTag: tag,
			DerivedURL:  strings.ReplaceAll(templates[tag], idPlaceholder, token),
		})
	}
	return targets
}

func isPreferred(tag string) bool {
	for _, p := range preferredOrder {
		if p == tag {
			return true
		}
	}
	return false
}
