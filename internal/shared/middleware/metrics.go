package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type requestObserver interface {
	ObserveRequest(route, code string, took time.Duration)
}

// Metrics records request count and latency per route template
func Metrics(obs requestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obs.ObserveRequest(route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
