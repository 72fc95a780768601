package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeExtractionMiss   = "EXTRACTION_MISS"
	ErrCodeNetworkFailure   = "NETWORK_FAILURE"
	ErrCodeRejected         = "REJECTED_RESPONSE"
	ErrCodeMissingArticleID = "MISSING_ARTICLE_ID"
	ErrCodeWindowBlocked    = "WINDOW_BLOCKED"
	ErrCodePollTimeout      = "POLL_TIMEOUT"
	ErrCodeSourceLoad       = "SOURCE_LOAD_FAILED"
	ErrCodeTimeout          = "SOURCE_TIMEOUT"
	ErrCodeBrowserCrash     = "BROWSER_CRASH"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClipError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ClipError struct {
	Code    string
	Message string
	Err     error
}

func (e *ClipError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ClipError) Unwrap() error {
	return e.Err
}

// NewClipError creates a new ClipError.
func NewClipError(code, message string, err error) *ClipError {
	return &ClipError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ClipError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
