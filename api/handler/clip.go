package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/clipper/cache"
	"github.com/use-agent/clipper/models"
)

// Runner runs one clip.
type Runner interface {
	Run(ctx context.Context, sourceURL string) (*models.ClipReport, error)
}

// Clip returns a handler for POST /api/v1/clip.
//
// Flow:
//  1. Parse and validate the request.
//  2. Serve a cached report if max_age_ms allows it.
//  3. Run the clip; a failed run still returns its partial report.
//  4. Cache the finished report.
func Clip(runner Runner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ClipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ClipResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		key := cache.Key(req.URL)
		if cc != nil {
			if cached, hit := cc.Get(key, req.MaxAgeMs); hit {
				c.JSON(http.StatusOK, models.ClipResponse{Success: true, Report: cached, Cached: true})
				return
			}
		}

		report, err := runner.Run(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, report, err)
			return
		}

		if cc != nil {
			cc.Set(key, report)
		}
		c.JSON(http.StatusOK, models.ClipResponse{Success: true, Report: report})
	}
}

// respondError maps a ClipError to the HTTP status code and writes a
// structured JSON error response.
func respondError(c *gin.Context, report *models.ClipReport, err error) {
	var clipErr *models.ClipError
	if !errors.As(err, &clipErr) {
		clipErr = models.NewClipError(models.ErrCodeInternal, err.Error(), err)
	}
	slog.Warn("clip request failed", "code", clipErr.Code, "error", err)

	c.JSON(mapErrorToStatus(clipErr), models.ClipResponse{
		Success: false,
		Report:  report,
		Error:   clipErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ClipError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeSourceLoad, models.ErrCodeNetworkFailure,
		models.ErrCodeRejected, models.ErrCodeMissingArticleID:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
