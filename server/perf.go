package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opsdesk/eventbus/core"
)

// Rail of the request, trace is restored from headers.
func railOf(c *gin.Context) core.Rail {
	rail := core.NewRail(c.Request.Context())
	core.UsePropagationKeys(func(key string) {
		if v := c.GetHeader(key); v != "" {
			rail = rail.WithCtxVal(key, v)
		}
	})
	return rail
}

// Perf Middleware that calculates how much time each request takes
func PerfMiddleware(excluded ...string) gin.HandlerFunc {
	excl := make(map[string]struct{}, len(excluded))
	for _, p := range excluded {
		excl[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := excl[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		railOf(c).Infof("%-6v %-60v %d [%s]", c.Request.Method, c.Request.RequestURI, c.Writer.Status(), time.Since(start))
	}
}
