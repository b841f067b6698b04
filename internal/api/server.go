// Package api provides the HTTP surface of the question answering
// service.
//
// Endpoints:
//
//	POST /api/v1/qna/stream        - ask a question (SSE streaming)
//	GET  /api/v1/questions/popular - most asked questions
//	GET  /api/v1/parties           - supported parties
//	GET  /health                   - liveness probe
//	GET  /ready                    - readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, logging, CORS, security headers, client IP
//   - burst.go: per-IP request throttling
//   - qna.go: SSE question answering endpoint
//   - questions.go: popular questions and party listing
//   - health.go: probes
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the maximum keep-alive wait between requests.
	IdleTimeout = 120 * time.Second

	// Answer streams must outlive any fixed write timeout, so the server
	// runs without one. Slow-client protection comes from ReadHeaderTimeout
	// and the per-IP burst limiter.
	writeTimeout = 0

	// Burst limiter defaults: 2 requests/sec sustained, bursts of 10.
	burstRate = 2.0
	burstSize = 10
)

// Config contains the server dependencies and settings.
type Config struct {
	Resolver   Resolver
	Questions  QuestionLister
	DB         Pinger
	Logger     *slog.Logger
	CORSOrigin []string
	TrustProxy bool
}

// Server is the HTTP server for the question answering API.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger

	corsOrigins []string
	trustProxy  bool
	burst       *burstLimiter
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if cfg.Questions == nil {
		return nil, errors.New("question lister is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	NewQnA(cfg.Resolver, cfg.TrustProxy, logger).RegisterRoutes(mux)
	NewQuestions(cfg.Questions, logger).RegisterRoutes(mux)
	NewHealth(cfg.DB, logger).RegisterRoutes(mux)

	return &Server{
		mux:         mux,
		logger:      logger,
		corsOrigins: cfg.CORSOrigin,
		trustProxy:  cfg.TrustProxy,
		burst:       newBurstLimiter(burstRate, burstSize),
	}, nil
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery, logging, CORS, security headers, burst limiting.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
		securityHeadersMiddleware,
		burstLimitMiddleware(s.burst, s.trustProxy, s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
