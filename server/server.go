package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opsdesk/eventbus/core"
)

// Server exposes health check, metrics and the websocket endpoint.
type Server struct {
	conf   Config
	engine *gin.Engine
	health *healthIndicators
	srv    *http.Server
}

func New(conf Config) *Server {
	if conf.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{conf: conf, engine: gin.New(), health: &healthIndicators{}}
	s.engine.Use(gin.CustomRecovery(defaultRecovery))
	if conf.Perf {
		s.engine.Use(PerfMiddleware(conf.HealthRoute))
	}
	if conf.HealthRoute != "" {
		s.engine.GET(conf.HealthRoute, s.healthHandler)
	}
	return s
}

func (s *Server) AddHealthIndicator(hi HealthIndicator) {
	s.health.add(hi)
}

func (s *Server) GET(path string, handler gin.HandlerFunc) {
	s.engine.GET(path, handler)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listening in background, error is returned if the address can't be bound.
func (s *Server) Start(rail core.Rail) error {
	addr := fmt.Sprintf("%s:%s", s.conf.Host, s.conf.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return core.WrapErrf(err, "failed to listen on %v", addr)
	}
	s.srv = &http.Server{Handler: s.engine}

	go func() {
		rail.Infof("Listening and serving HTTP on %s", addr)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rail.Errorf("http.Server Serve: %s", err)
		}
	}()
	return nil
}

// Shutdown server gracefully, bounded by server.graceful-shutdown-time-sec.
func (s *Server) Shutdown(rail core.Rail) {
	if s.srv == nil {
		return
	}
	rail.Info("Shutting down http server gracefully")
	timeout := s.conf.GracefulShutdown
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		rail.Warnf("Failed to shutdown http server gracefully, %v", err)
	}
	rail.Info("Http server exited")
}

func defaultRecovery(c *gin.Context, e any) {
	railOf(c).Errorf("Recovered from panic, %v\n%s", e, debug.Stack())
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unknown error, please try again later"})
}
