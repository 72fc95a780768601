package extractor

import (
	"html"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/use-agent/clipper/models"
)

var previewConverter = sync.OnceValue(func() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
})

// Preview renders the record's title, date and body as Markdown for display.
// It is a side channel only and never feeds a payload.
func Preview(r models.ArticleRecord) (string, error) {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(r.Title))
	b.WriteString("</h2>")
	if r.PublishedLabel != "" {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(r.PublishedLabel))
		b.WriteString("</p>")
	}
	b.WriteString(r.BodyHTML)

	return previewConverter().ConvertString(b.String(), converter.WithDomain(companyLinkHost))
}
