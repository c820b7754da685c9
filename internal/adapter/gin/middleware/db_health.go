package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CSYE6225NCLOUD/webapp/internal/usecase/health"
)

// DBHealth aborts with 503 when the store does not answer a ping. Requests
// for skipPaths pass through untouched; /healthz runs its own check.
func DBHealth(checker health.Checker, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		if err := checker.Check(c.Request.Context()); err != nil {
			c.Header("Cache-Control", NoCacheValue)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Connection Failed"})
			return
		}
		c.Next()
	}
}
