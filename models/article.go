package models

// ArticleRecord is the structured record scraped from the source article.
// It is built once per extraction pass and never mutated afterwards.
type ArticleRecord struct {
	Title string `json:"title"`

	// BodyHTML is the outer HTML of every body node, each followed by "\n".
	BodyHTML string `json:"body_html"`

	SourceURL      string `json:"source_url"`
	PublishedLabel string `json:"published_label"`
	Tag            string `json:"tag"`

	// AuthToken is the shared secret attached to outbound payloads.
	AuthToken string `json:"-"`
}

// AuxiliaryTarget is one translated rendering of the source article.
type AuxiliaryTarget struct {
	LanguageTag string `json:"language"`
	DerivedURL  string `json:"url"`
}

// TranslationPayload is submitted once per non-empty harvest.
type TranslationPayload struct {
	ArticleID   string `json:"article_id"`
	LanguageTag string `json:"language"`
	HTML        string `json:"html"`
	AuthToken   string `json:"secret_token"`
}

// ArticlePayload is the wire form of a base submission.
type ArticlePayload struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	URL       string `json:"url"`
	Publish   string `json:"publish"`
	Tag       string `json:"tag"`
	AuthToken string `json:"secret_token"`
}

// Payload converts the record into its base-submission wire form.
func (r ArticleRecord) Payload() ArticlePayload {
	return ArticlePayload{
		Title:     r.Title,
		Text:      r.BodyHTML,
		URL:       r.SourceURL,
		Publish:   r.PublishedLabel,
		Tag:       r.Tag,
		AuthToken: r.AuthToken,
	}
}

// SubmissionResult classifies one HTTP submission.
type SubmissionResult struct {
	Accepted bool `json:"accepted"`

	// AssignedID is the identifier returned by the receiver, if any.
	AssignedID string `json:"assigned_id,omitempty"`

	// RawBody is whatever could be read from the response (best effort).
	RawBody string `json:"raw_body,omitempty"`

	// StatusCode is zero when the request never got a response.
	StatusCode int `json:"status_code"`

	Err error `json:"-"`
}
