// Package server exposes the trigger, status and article endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/deusflow/batterynews/internal/metrics"
	"github.com/deusflow/batterynews/internal/news"
	"github.com/deusflow/batterynews/internal/state"
)

// TriggerFunc starts one discovery cycle.
type TriggerFunc func(ctx context.Context, trigger news.Trigger)

// Deps wires the server to the rest of the process.
type Deps struct {
	Store   *state.Store
	Metrics *metrics.Metrics
	Trigger TriggerFunc
	LastRun func() time.Time
	NextRun func() time.Time
	Logger  *slog.Logger
}

type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	log        *slog.Logger

	// baseCtx outlives requests; triggered cycles run under it.
	baseCtx context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:  chi.NewRouter(),
		deps:    deps,
		log:     deps.Logger.With("component", "http"),
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/metrics", s.handleMetrics)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/trigger", s.handleTrigger)
		r.Post("/trigger", s.handleTrigger)
		r.Get("/articles", s.handleArticles)
		r.Get("/status", s.handleStatus)
		r.Post("/history/sync", s.handleHistorySync)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels triggered cycles and waits for
// them until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")

	err := s.httpServer.Shutdown(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}

	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
