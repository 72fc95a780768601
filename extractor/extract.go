package extractor

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/clipper/models"
)

// Extract reads the article out of doc and returns its record.
//
// Company profile links are rewritten in doc before the body is serialized,
// so the stored markup carries absolute URLs. A selector that matches nothing
// falls back to a placeholder and never fails the pass.
func Extract(doc *goquery.Document, sourceURL, authToken string) models.ArticleRecord {
	RewriteCompanyLinks(doc)

	title := firstText(doc, titleSelectors)
	if title == "" {
		slog.Debug("extract: no title node matched", "url", sourceURL)
		title = NoTitle
	}

	published := firstText(doc, dateSelectors)

	body := BodyHTML(doc)
	if body == "" {
		slog.Debug("extract: no body nodes matched", "url", sourceURL)
	}

	return models.ArticleRecord{
		Title:          title,
		BodyHTML:       body,
		SourceURL:      sourceURL,
		PublishedLabel: published,
		Tag:            Tag(title, body),
		AuthToken:      authToken,
	}
}

// BodyHTML serializes every body node with its inline formatting and joins
// them with a trailing newline each.
func BodyHTML(doc *goquery.Document) string {
	var b strings.Builder
	doc.Find(bodySelector).Each(func(_ int, s *goquery.Selection) {
		outer, err := goquery.OuterHtml(s)
		if err != nil {
			return
		}
		b.WriteString(outer)
		b.WriteByte('\n')
	})
	return b.String()
}

// RewriteCompanyLinks makes every relative company-profile link absolute.
// Running it twice is a no-op: rewritten links no longer carry the prefix.
func RewriteCompanyLinks(doc *goquery.Document) int {
	n := 0
	doc.Find(`a[href^="` + companyLinkPrefix + `"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		s.SetAttr("href", companyLinkHost+href)
		n++
	})
	return n
}

// firstText returns the trimmed text of the first node matched by the
// first selector in the list that matches anything.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			return strings.TrimSpace(node.Text())
		}
	}
	return ""
}
