package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/opsdesk/eventbus/core"
)

type HealthIndicator struct {
	Name        string                    // name of the indicator
	CheckHealth func(rail core.Rail) bool // check health
}

type HealthStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
}

type healthIndicators struct {
	sync.RWMutex
	indicators []HealthIndicator
}

func (h *healthIndicators) add(hi HealthIndicator) {
	h.Lock()
	defer h.Unlock()
	h.indicators = append(h.indicators, hi)
}

func (h *healthIndicators) check(rail core.Rail) []HealthStatus {
	h.RLock()
	defer h.RUnlock()
	hs := make([]HealthStatus, 0, len(h.indicators))
	for _, indi := range h.indicators {
		hs = append(hs, HealthStatus{Name: indi.Name, Healthy: indi.CheckHealth(rail)})
	}
	return hs
}

// 200 if every indicator is healthy, else 503.
func (s *Server) healthHandler(c *gin.Context) {
	rail := railOf(c)
	hs := s.health.check(rail)
	status := "UP"
	code := http.StatusOK
	for _, h := range hs {
		if !h.Healthy {
			rail.Warnf("Health indicator '%v' reports unhealthy", h.Name)
			status = "DOWN"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{"status": status, "components": hs})
}
