package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ziadkadry99/vecsync/internal/collections"
	"github.com/ziadkadry99/vecsync/internal/search"
	"github.com/ziadkadry99/vecsync/internal/syncer"
)

// Config holds server configuration.
type Config struct {
	Port     int
	AllowAll bool // allow all CORS origins (dev mode)
	// SweepInterval is how often the stale-sync sweep runs.
	SweepInterval time.Duration
}

// Server exposes the sync engine, search engine, and collection store over
// REST.
type Server struct {
	cfg        Config
	store      *collections.Store
	sync       *syncer.Syncer
	search     *search.Engine
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server and wires all feature routes. It also registers the
// collection-deleted cascade hook with the collection store.
func New(cfg Config, store *collections.Store, sync *syncer.Syncer, searchEngine *search.Engine) *Server {
	store.SetDeleteHook(sync.OnCollectionDeleted)

	s := &Server{
		cfg:    cfg,
		store:  store,
		sync:   sync,
		search: searchEngine,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	collections.RegisterRoutes(r, s.store)
	syncer.RegisterRoutes(r, s.sync, s.store)
	search.RegisterRoutes(r, s.search)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port and launches the stale-sync
// sweeper. It blocks until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.sync.StartSweeper(ctx, s.cfg.SweepInterval)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("vecsync server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
