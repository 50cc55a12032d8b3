package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MastaChicken/Group-Project/internal/config"
	"github.com/MastaChicken/Group-Project/internal/metrics"
	"github.com/MastaChicken/Group-Project/internal/pipeline"
	"github.com/MastaChicken/Group-Project/internal/summary"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Processor structures an uploaded PDF.
type Processor interface {
	Process(ctx context.Context, filename string, data []byte) (*pipeline.Response, error)
}

// Prober reports whether the structuring service is reachable.
type Prober interface {
	IsAlive(ctx context.Context) error
}

// Server is the HTTP API server for the article service.
type Server struct {
	router    chi.Router
	processor Processor
	prober    Prober
	stats     *summary.Stats
	metrics   *metrics.Recorder
	client    *http.Client
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server. prober, stats and rec
// may be nil.
func NewServer(processor Processor, prober Prober, stats *summary.Stats, rec *metrics.Recorder, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		processor: processor,
		prober:    prober,
		stats:     stats,
		metrics:   rec,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(accessLog(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Get("/validate_url", s.handleValidateURL)
	r.Get("/api/stats/summarizer", s.handleSummarizerStats)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(requireAPIKey(s.cfg.APIKey, s.log))
		}
		r.Post("/upload", s.handleUpload)
	})

	if s.cfg.FrontendDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.FrontendDir)))
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReady additionally probes GROBID.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.prober != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.prober.IsAlive(ctx); err != nil {
			jsonError(w, "grobid unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ready"}`))
}
