package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/clipper/models"
)

// identityKey is where Auth stores the caller's API key.
const identityKey = "api_key"

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, models.ClipResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: code, Message: msg},
	})
}
