// Package httpapi is the JSON HTTP API: signup, login, the current
// principal, and the admin-only calculator, plus health and Prometheus
// endpoints.
//
// Lifecycle follows the gRPC server:
//
//	srv, err := httpapi.New(deps)
//	err = srv.Run(ctx) // blocks until ctx is cancelled
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/carbonx-dev/carbonx/internal/logging"
	"github.com/carbonx-dev/carbonx/internal/server/auth"
	"github.com/carbonx-dev/carbonx/internal/server/metrics"
	"github.com/carbonx-dev/carbonx/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
)

// gracefulShutdownTimeout bounds how long Run waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the collaborators of the API server.
type Deps struct {
	Address     string
	Logger      logging.Logger
	Users       *services.UserService
	Gate        *auth.Gate
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
	Version     string
}

// Server is the HTTP API server.
type Server struct {
	address     string
	logger      logging.Logger
	users       *services.UserService
	gate        *auth.Gate
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	corsOrigins []string
	version     string
	handler     http.Handler
}

// New validates deps and builds the router. Nothing listens until Run.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user service is required")
	}
	if deps.Gate == nil {
		return nil, fmt.Errorf("auth gate is required")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		address:     deps.Address,
		logger:      deps.Logger.With("module", "http_server"),
		users:       deps.Users,
		gate:        deps.Gate,
		metrics:     deps.Metrics,
		gatherer:    deps.Gatherer,
		corsOrigins: deps.CORSOrigins,
		version:     deps.Version,
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on the configured address and serves until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
