package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/clipper/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// StatsProvider reports the browser window budget.
type StatsProvider interface {
	Stats() models.WindowStats
}

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when more than 80% of the window budget is in use: a clip
// needs one window for the source and one per translation.
func Health(sp StatsProvider, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.WindowStats
		if sp != nil {
			stats = sp.Stats()
		}

		status := "healthy"
		if stats.MaxWindows > 0 && stats.OpenWindows > int(float64(stats.MaxWindows)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Windows: stats,
			Version: Version,
		})
	}
}
