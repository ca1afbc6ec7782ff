package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsMiddleware reflects configured origins and short-circuits
// preflight requests.
func (h *Handler) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(h.allowedOrigins))
	for _, origin := range h.allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
				c.Header("Vary", "Origin")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
