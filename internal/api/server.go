// Package api provides the gateway's status HTTP server.
//
// It exposes liveness, a status snapshot of the running pipeline, and
// Prometheus metrics. The server follows the same lifecycle pattern as
// the other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start()
//	defer server.Close()
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/loxgate/internal/gateway"
	"github.com/nerrad567/loxgate/internal/infrastructure/config"
	"github.com/nerrad567/loxgate/internal/infrastructure/logging"
)

// Timeouts for the status server. The endpoints are small and local;
// anything slow is a problem worth surfacing.
const (
	readTimeout             = 5 * time.Second
	writeTimeout            = 10 * time.Second
	idleTimeout             = 60 * time.Second
	gracefulShutdownTimeout = 5 * time.Second
)

// SinkLister reports the currently active output sinks.
type SinkLister interface {
	Active() []string
}

// Deps holds the dependencies required by the status server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Gateway  *gateway.Gateway
	Sinks    SinkLister
	Registry *prometheus.Registry
	Version  string
}

// Server is the status HTTP server.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	gateway  *gateway.Gateway
	sinks    SinkLister
	registry *prometheus.Registry
	version  string
	server   *http.Server
}

// New creates a status server. It is not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		gateway:  deps.Gateway,
		sinks:    deps.Sinks,
		registry: deps.Registry,
		version:  deps.Version,
	}, nil
}

// Start begins serving in the background. Listen errors after startup
// are logged, not returned.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		s.logger.Info("status API starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("status API failed", "error", err)
		}
	}()
}

// Close shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("status API shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status API: %w", err)
	}
	return nil
}

// buildRouter creates the HTTP router with all routes.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	activeSinks := []string{}
	if s.sinks != nil {
		activeSinks = s.sinks.Active()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":        s.version,
		"device_types":   s.gateway.HandlerTypes(),
		"active_outputs": activeSinks,
		"routing":        s.gateway.Routing().Snapshot(),
	})
}
