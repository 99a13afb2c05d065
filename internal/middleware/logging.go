// Package middleware holds the Gin middleware shared by every route.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/rerun/internal/logger"
)

// RequestLogger emits one structured line per request. Server errors log
// at warn level so they stand out from routine feed polling.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		event := logger.Log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Int("size", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")

		for _, ginErr := range c.Errors {
			logger.Log.Error().
				Err(ginErr.Err).
				Str("path", path).
				Msg("Request error")
		}
	}
}
