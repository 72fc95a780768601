// Package langcheck detects the language of harvested translation markup.
package langcheck

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/pemistahl/lingua-go"
)

// Detector returns the ISO 639-1 code of text, lower-cased, and whether the
// detection was reliable.
type Detector interface {
	Detect(text string) (string, bool)
}

// Lingua is a Detector limited to the languages the source site publishes
// in. The underlying models are loaded on first use.
type Lingua struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

// NewLingua returns a lazily initialised Lingua detector.
func NewLingua() *Lingua { return &Lingua{} }

func (l *Lingua) Detect(text string) (string, bool) {
	l.once.Do(func() {
		l.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Chinese, lingua.Japanese).
			Build()
	})
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// Text returns the visible text of an HTML fragment.
func Text(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Matches reports whether code agrees with the primary subtag of tag, so
// "zh" matches both "zh" and "zh-Hans".
func Matches(tag, code string) bool {
	primary, _, _ := strings.Cut(tag, "-")
	return strings.EqualFold(primary, code)
}
