package models

// ClipRequest is the payload for POST /api/v1/clip.
type ClipRequest struct {
	// URL is the source article. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxAgeMs returns a cached report for the same URL if it is younger
	// than this many milliseconds. Zero always runs a fresh clip.
	MaxAgeMs int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`
}
