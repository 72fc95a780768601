package extractor

// Selector groups tried in order; the first group with a match wins.
// Each group holds the newer site layout first and the legacy layout second.
var (
	titleSelectors = []string{
		`article[class^="container_"] h1[class^="title_"]`,
		`div.cmn-section h1.cmn-article_title`,
	}

	dateSelectors = []string{
		`article[class^="container_"] div[class^="timeStampOverride_"] time`,
		`dl.cmn-article_status dd.cmnc-publish`,
	}

	// Body nodes are paragraphs plus sub-headings, kept in document order.
	bodySelector = `article[class^="container_"] p[class^="paragraph_"], ` +
		`article[class^="container_"] h2[class^="text_"], ` +
		`div.cmn-article_text p, ` +
		`div.cmn-article_text h2`
)

const (
	// NoTitle is the placeholder used when no title node matches.
	NoTitle = "No title"

	companyLinkPrefix = "/nkd/company/"
	companyLinkHost   = "https://www.nikkei.com"
)
