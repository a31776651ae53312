// Package web provides the HTTP JSON API for weather mood recommendations.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/justestif/go-weather-mood/internal/logging"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = ":3000"

	// DefaultFeedbackRate is the default number of feedback writes per
	// minute and client IP.
	DefaultFeedbackRate = 60

	// DefaultPurgeRate is the default number of admin purge requests per
	// minute and client IP.
	DefaultPurgeRate = 5

	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr            string
	FeedbackRate    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP server for the API.
type Server struct {
	router          chi.Router
	server          *http.Server
	handlers        *Handlers
	shutdownTimeout time.Duration
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, handlers *Handlers) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.FeedbackRate <= 0 {
		cfg.FeedbackRate = DefaultFeedbackRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		router:          chi.NewRouter(),
		handlers:        handlers,
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.FeedbackRate)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestMetrics)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(feedbackRate int) {
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handlers.Health)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(DefaultPurgeRate, time.Minute))
			r.Post("/admin/purge", s.handlers.Purge)
		})

		r.Group(func(r chi.Router) {
			r.Use(identity)

			r.Get("/recommendations", s.handlers.Recommendations)
			r.Get("/mood", s.handlers.Mood)
			r.Get("/suggestion", s.handlers.Suggestion)
			r.Get("/stats", s.handlers.Stats)
			r.Post("/explain", s.handlers.Explain)

			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(feedbackRate, time.Minute))
				r.Post("/feedback", s.handlers.RecordFeedback)
				r.Delete("/feedback", s.handlers.ResetFeedback)
			})
		})
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the server until ctx is cancelled, then shuts down gracefully.
// It satisfies suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.server.Addr).Msg("starting server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
		}
		return nil
	case <-ctx.Done():
		logging.Info().Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logging.Info().Msg("server stopped")
	return ctx.Err()
}

func (s *Server) String() string {
	return "http-server"
}
