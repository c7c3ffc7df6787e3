// Package main implements the ResuMatch API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WessleyAI/resumatch/engine/embed"
	"github.com/WessleyAI/resumatch/engine/lexical"
	"github.com/WessleyAI/resumatch/engine/match"
	"github.com/WessleyAI/resumatch/engine/semantic"
	"github.com/WessleyAI/resumatch/pkg/fn"
	"github.com/WessleyAI/resumatch/pkg/metrics"
	"github.com/WessleyAI/resumatch/pkg/ollama"
	"github.com/nats-io/nats.go"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// --- Connect to NATS (optional) ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		var err error
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("resumatch-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
	}

	model, err := newModel(cfg, nc)
	if err != nil {
		return err
	}

	embedOpts := embed.DefaultOptions()
	embedOpts.ChunkSize = cfg.EmbedChunkSize
	embedOpts.Retry = fn.RetryOpts{
		MaxAttempts: cfg.EmbedRetries,
		InitialWait: fn.DefaultRetry.InitialWait,
		MaxWait:     fn.DefaultRetry.MaxWait,
		Jitter:      true,
	}
	embedOpts.Metrics = reg
	embedOpts.Logger = logger

	// --- Connect to Qdrant (optional persistent embedding store) ---
	if cfg.QdrantURL != "" {
		store, err := semantic.New(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = store.EnsureCollection(initCtx, model.Dimension())
		cancel()
		if err != nil {
			return fmt.Errorf("qdrant init: %w", err)
		}
		embedOpts.Store = store
	}

	provider := embed.NewProvider(model, embed.NewMemoryCache(cfg.EmbedCacheSize), embedOpts)
	engine := match.New(
		lexical.New(),
		semantic.NewScorer(provider, cfg.SemanticScale),
		match.Options{
			LexicalWeight:  cfg.LexicalWeight,
			SemanticWeight: cfg.SemanticWeight,
			Metrics:        reg,
			Logger:         logger,
		},
	)

	s := &server{scorer: engine, metrics: reg, cfg: cfg, logger: logger}
	if nc != nil && cfg.NATSEventsSubject != "" {
		s.events = &natsPublisher{nc: nc, subject: cfg.NATSEventsSubject}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "prefix", cfg.APIPrefix, "model", model.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// newModel selects the embedding backend named by EMBED_BACKEND.
func newModel(cfg Config, nc *nats.Conn) (embed.Model, error) {
	switch cfg.EmbedBackend {
	case "", "hashing":
		return embed.NewHashingModel(cfg.EmbedDim), nil
	case "ollama":
		return ollama.NewEmbedClient(cfg.OllamaURL, cfg.OllamaModel, cfg.EmbedDim), nil
	case "nats":
		if nc == nil {
			return nil, fmt.Errorf("embed backend nats requires NATS_URL")
		}
		return embed.NewNATSModel(nc, cfg.NATSEmbedSubject, cfg.OllamaModel, cfg.EmbedDim, cfg.EmbedTimeout), nil
	default:
		return nil, fmt.Errorf("unknown embed backend %q", cfg.EmbedBackend)
	}
}
