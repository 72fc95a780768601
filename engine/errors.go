package engine

import (
	"context"
	"errors"

	"github.com/use-agent/clipper/models"
)

// categorizeError wraps raw errors into typed ClipErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ClipError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewClipError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewClipError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewClipError(models.ErrCodeSourceLoad, msg, err)
	}
}
