package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/michaelbrown/opencompiler/internal/events"
	"github.com/michaelbrown/opencompiler/internal/orchestrator"
)

// Server is the HTTP and websocket front end of the orchestrator.
type Server struct {
	orch     *orchestrator.Orchestrator
	hub      *events.Broadcaster
	clients  *ClientManager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	router   chi.Router
	http     *http.Server

	// ctx bounds compiles started by requests; cancelled on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures a Server.
type Options struct {
	Logger *slog.Logger
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// New creates a Server. hub must be the broadcaster the orchestrator emits to.
func New(orch *orchestrator.Orchestrator, hub *events.Broadcaster, opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		orch:     orch,
		hub:      hub,
		clients:  NewClientManager(),
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
		router:   chi.NewRouter(),
		ctx:      ctx,
		cancel:   cancel,
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		r.Get("/languages", s.handleListLanguages)
		r.Post("/run", s.handleRun)
		r.Post("/input", s.handleInput)
		r.Post("/stop", s.handleStop)
		r.Get("/session", s.handleGetSession)
	})

	r.Get("/ws", s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server_starting", "addr", addr)
	return s.http.ListenAndServe()
}

// Shutdown disconnects websocket clients and stops the HTTP server. The
// running program, if any, is left to the orchestrator's owner.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server_stopping")
	s.cancel()
	s.clients.CloseAll()

	if s.http == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}
