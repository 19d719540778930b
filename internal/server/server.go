// Package server exposes run submission, run status, metrics and evidence
// files over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scalpel-qa/internal/config"
)

// Server is the HTTP front door.
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	handler http.Handler
}

// New builds the router. evidenceDir is served under the evidence URL prefix.
func New(cfg config.ServerConfig, evidence config.EvidenceConfig, evidenceDir string, jobs JobService, logger *zap.Logger) *Server {
	logger = logger.Named("server")
	h := NewHandlers(logger, jobs)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(corsMiddleware)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))

		r.Get("/healthz", h.HandleHealthCheck)
		r.Route("/api", func(r chi.Router) {
			r.With(rateLimit(rate.NewLimiter(rate.Limit(cfg.SubmitRate), cfg.SubmitBurst))).
				Post("/run", h.HandleSubmitRun)
			r.Get("/status/{jobID}", h.HandleGetStatus)
		})

		prefix := "/" + strings.Trim(evidence.URLPrefix, "/")
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(evidenceDir)))
		r.Handle(prefix+"/*", fs)
	})

	return &Server{cfg: cfg, logger: logger, handler: r}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens on the configured address until ctx is canceled, then shuts
// down gracefully within the shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server.")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
