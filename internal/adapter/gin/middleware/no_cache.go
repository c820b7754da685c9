package middleware

import "github.com/gin-gonic/gin"

// NoCacheValue is the Cache-Control value set on uncacheable responses.
const NoCacheValue = "no-cache, no-store, must-revalidate"

// NoCache disables client and proxy caching of the response.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", NoCacheValue)
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
