package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MastaChicken/Group-Project/internal/api"
	"github.com/MastaChicken/Group-Project/internal/config"
	"github.com/MastaChicken/Group-Project/internal/events"
	"github.com/MastaChicken/Group-Project/internal/grobid"
	"github.com/MastaChicken/Group-Project/internal/metrics"
	"github.com/MastaChicken/Group-Project/internal/nlp"
	"github.com/MastaChicken/Group-Project/internal/pipeline"
	"github.com/MastaChicken/Group-Project/internal/store"
	"github.com/MastaChicken/Group-Project/internal/summary"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	engine, err := nlp.New(nlp.DefaultConfig())
	if err != nil {
		log.Error("failed to load language model", "error", err)
		os.Exit(1)
	}
	gc := grobid.NewClient(cfg.GrobidURL, cfg.GrobidTimeout, log)
	summarizer := summary.NewClient(summary.Options{
		BaseURL: cfg.HuggingFaceURL,
		Model:   cfg.HuggingFaceModel,
		Token:   cfg.HuggingFaceToken,
		Timeout: cfg.HuggingFaceTimeout,
		RPS:     cfg.SummarizerRPS,
		UseGPU:  cfg.SummarizerUseGPU,
	})
	if !summarizer.Enabled() {
		log.Info("HUGGINGFACE_API_TOKEN not set, summaries use ranked sentences")
	}

	cache, err := openCache(ctx, cfg)
	if err != nil {
		log.Error("failed to open tei cache", "error", err)
		os.Exit(1)
	}
	publisher := openPublisher(cfg, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	// Initialize pipeline.
	svc := pipeline.NewService(gc, summarizer, engine, cache, publisher, rec, log, pipeline.Options{
		ConsolidateHeader:    cfg.GrobidConsolidateHeader,
		ConsolidateCitations: cfg.GrobidConsolidateCitations,
		MaxRetries:           cfg.GrobidMaxRetries,
		MaxConcurrent:        cfg.MaxConcurrentParses,
		CommonWordThreshold:  cfg.CommonWordThreshold,
	})

	// Initialize HTTP server.
	srv := api.NewServer(svc, gc, summarizer.Stats(), rec, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		gc.Close()
		summarizer.Close()
		publisher.Close()
		if err := cache.Close(shutdownCtx); err != nil {
			log.Warn("closing tei cache", "error", err)
		}
	}()

	log.Info("starting article service", "port", cfg.Port, "grobid", cfg.GrobidURL)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

func openCache(ctx context.Context, cfg config.Config) (store.Cache, error) {
	switch {
	case cfg.MongoURI != "":
		return store.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case cfg.CachePath != "":
		return store.OpenSQLite(ctx, cfg.CachePath)
	}
	return store.Nop{}, nil
}

// openPublisher falls back to discarding events when the broker is
// unreachable at startup.
func openPublisher(cfg config.Config, log *slog.Logger) events.Publisher {
	if cfg.MQTTBroker == "" {
		return events.Nop{}
	}
	p, err := events.NewMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic, log)
	if err != nil {
		log.Warn("mqtt unavailable, events disabled", "broker", cfg.MQTTBroker, "error", err)
		return events.Nop{}
	}
	return p
}
