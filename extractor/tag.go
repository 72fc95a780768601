package extractor

import (
	"html"
	"strings"
)

// UnknownTag is used when no tracked company is mentioned.
const UnknownTag = "unknown"

// companies are matched against the escaped body markup, hence "&amp;".
var companies = []string{
	"TBS",
	"ドコモ",
	"三菱商事",
	"富士フイルム",
	"花王",
	"セブン&amp;アイ",
	"セブンイレブン",
	"ファミリーマート",
	"三菱電機",
	"日本ハム",
	"トヨタ",
	"ローソン",
	"伊藤忠",
	"明治",
	"魚力",
}

// Tag returns the tracked company the article is most about. A company named
// in the title wins outright; otherwise the most frequent one in the body.
func Tag(title, bodyHTML string) string {
	for _, c := range companies {
		if strings.Contains(title, html.UnescapeString(c)) || strings.Contains(title, c) {
			return html.UnescapeString(c)
		}
	}

	top, maxCount := "", 0
	for _, c := range companies {
		if n := strings.Count(bodyHTML, c); n > maxCount {
			top, maxCount = c, n
		}
	}
	if top == "" {
		return UnknownTag
	}
	return html.UnescapeString(top)
}
