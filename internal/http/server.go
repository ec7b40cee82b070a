// Package http serves the operational endpoints of the bot and the mirror
// worker: liveness, readiness and plain-text metrics.
package http

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"nuxo/internal/log"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Gauge samples a current value for /metrics.
type Gauge func() int

type gauge struct {
	name, help string
	sample     Gauge
}

type Server struct {
	http.Server
	checks   map[string]Check
	gauges   []gauge
	started  time.Time
	requests atomic.Int64
	logger   *log.Logger
}

type Option func(*Server)

// WithCheck adds a dependency verified by /readyz.
func WithCheck(name string, c Check) Option {
	return func(s *Server) { s.checks[name] = c }
}

// WithGauge exposes a sampled value on /metrics.
func WithGauge(name, help string, g Gauge) Option {
	return func(s *Server) { s.gauges = append(s.gauges, gauge{name: name, help: help, sample: g}) }
}

func NewServer(addr string, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		checks:  make(map[string]Check),
		started: time.Now(),
		logger:  logger.WithComponent(log.ComponentHTTP),
	}
	for _, opt := range opts {
		opt(s)
	}
	sort.Slice(s.gauges, func(i, j int) bool { return s.gauges[i].name < s.gauges[j].name })

	r := mux.NewRouter()
	r.Use(s.trace, securityHeaders)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ping", handlePing).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	s.Addr = addr
	s.Handler = r
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 10 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Addr)
		errc <- s.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
