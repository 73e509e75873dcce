package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware applies the configured CORS headers and answers preflight
// requests directly.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.AllowedOrigins)
		c.Header("Access-Control-Allow-Methods", cfg.AllowedMethods)
		c.Header("Access-Control-Allow-Headers", cfg.AllowedHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
