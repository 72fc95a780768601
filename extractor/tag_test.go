package extractor

import "testing"

func TestTag(t *testing.T) {
	tests := []struct {
		name  string
		title string
		body  string
		want  string
	}{
		{"title wins", "花王が値上げ", "<p>トヨタ トヨタ トヨタ</p>", "花王"},
		{"most frequent in body", "決算発表", "<p>ローソン トヨタ ローソン</p>", "ローソン"},
		{"escaped ampersand", "小売り動向", "<p>セブン&amp;アイ の話</p>", "セブン&アイ"},
		{"unescaped title", "セブン&アイが再編", "", "セブン&アイ"},
		{"nothing", "Weather", "<p>sunny</p>", UnknownTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tag(tt.title, tt.body); got != tt.want {
				t.Errorf("Tag() = %q, want %q", got, tt.want)
			}
		})
	}
}
