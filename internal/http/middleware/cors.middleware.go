package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware configures CORS headers based on the environment
func CORSMiddleware(environment string, allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if environment == "production" {
			// In production, only allow specific origins
			origin := c.Request.Header.Get("Origin")
			if slices.Contains(allowedOrigins, origin) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Add("Vary", "Origin")
			}
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
