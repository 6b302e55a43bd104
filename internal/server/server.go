// Package server exposes the incident API over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/crimengo/crimengo/internal/auth"
	"github.com/crimengo/crimengo/internal/feed"
	"github.com/crimengo/crimengo/internal/store"
	"github.com/crimengo/crimengo/internal/synth"
)

// Config holds the tunables the handlers need.
type Config struct {
	FeedLimit           int
	FeedRefreshInterval time.Duration
	HotspotThreshold    int
	HotspotBinSize      int
}

// Server wires the store, feed client, generator and auth manager into an
// HTTP handler tree.
type Server struct {
	store store.Store
	feed  *feed.Client
	gen   *synth.Generator
	auth  *auth.Manager
	cfg   Config

	mu    sync.Mutex
	cache feed.Cache
}

func New(st store.Store, feedClient *feed.Client, gen *synth.Generator, authMgr *auth.Manager, cfg Config) *Server {
	return &Server{
		store: st,
		feed:  feedClient,
		gen:   gen,
		auth:  authMgr,
		cfg:   cfg,
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/incidents", s.handleListIncidents)
		r.Get("/incidents/{id}", s.handleGetIncident)
		r.Get("/hotspots", s.handleHotspots)
		r.Get("/zones", s.handleZones)
		r.Get("/stats", s.handleStats)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/admin/generate", s.handleGenerate)
			r.Post("/admin/ingest", s.handleIngest)
			r.Delete("/incidents/{id}", s.handleDeleteIncident)
		})
	})

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
