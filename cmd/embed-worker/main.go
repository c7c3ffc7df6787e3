// Command embed-worker serves batch embedding requests over NATS, encoding
// them with a local Ollama instance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/WessleyAI/resumatch/engine/embed"
	"github.com/WessleyAI/resumatch/pkg/metrics"
	"github.com/WessleyAI/resumatch/pkg/natsutil"
	"github.com/WessleyAI/resumatch/pkg/ollama"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
)

func main() {
	_ = godotenv.Load()

	var (
		natsURL     = flag.String("nats", envOr("NATS_URL", nats.DefaultURL), "NATS server URL")
		subject     = flag.String("subject", envOr("NATS_EMBED_SUBJECT", embed.DefaultSubject), "subject to serve")
		queue       = flag.String("queue", "embed-workers", "queue group")
		ollamaURL   = flag.String("ollama", envOr("OLLAMA_URL", "http://localhost:11434"), "Ollama base URL")
		ollamaModel = flag.String("model", envOr("OLLAMA_MODEL", ollama.DefaultModel), "default embedding model")
		extraModels = flag.String("models", envOr("EMBED_WORKER_MODELS", ""), "comma-separated models accepted besides the default")
		metricsAddr = flag.String("metrics", envOr("METRICS_ADDR", ":9091"), "metrics listen address (empty to disable)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nc, err := nats.Connect(*natsURL, nats.Name("resumatch-embed-worker"))
	if err != nil {
		logger.Error("nats connect failed", "err", err)
		os.Exit(1)
	}
	defer nc.Drain()

	reg := metrics.New()
	w := newWorker(func(model string) embed.Model {
		return ollama.NewEmbedClient(*ollamaURL, model, 0)
	}, *ollamaModel, strings.Split(*extraModels, ","), reg, logger)

	sub, err := w.serve(nc, *subject, *queue)
	if err != nil {
		logger.Error("subscribe failed", "subject", *subject, "err", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: reg.Handler(), ReadTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "err", err)
			}
		}()
		defer srv.Close()
	}

	logger.Info("embed worker started", "subject", *subject, "queue", *queue, "ollama", *ollamaURL, "model", *ollamaModel)
	<-ctx.Done()
	logger.Info("shutdown signal received")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// worker encodes EncodeRequests with a fixed set of model clients: the
// default model plus any extra models it was started with. The set never
// grows after construction.
type worker struct {
	defaultModel string
	models       map[string]embed.Model
	logger       *slog.Logger

	requests *metrics.Counter
	failures *metrics.Counter
	unknown  *metrics.Counter
	texts    *metrics.Counter
	latency  *metrics.Histogram
}

func newWorker(newModel func(string) embed.Model, defaultModel string, extra []string, reg *metrics.Registry, logger *slog.Logger) *worker {
	models := map[string]embed.Model{defaultModel: newModel(defaultModel)}
	for _, name := range extra {
		name = strings.TrimSpace(name)
		if _, ok := models[name]; name != "" && !ok {
			models[name] = newModel(name)
		}
	}
	return &worker{
		defaultModel: defaultModel,
		models:       models,
		logger:       logger,
		requests:     reg.Counter("embed_worker_requests_total", "Encode requests received"),
		failures:     reg.Counter("embed_worker_failures_total", "Encode requests that failed"),
		unknown:      reg.Counter("embed_worker_unknown_model_total", "Requests naming a model the worker does not serve"),
		texts:        reg.Counter("embed_worker_texts_total", "Texts encoded"),
		latency:      reg.Histogram("embed_worker_encode_duration_seconds", "Model encode latency", nil),
	}
}

func (w *worker) serve(nc *nats.Conn, subject, queue string) (*nats.Subscription, error) {
	return natsutil.Serve(nc, subject, queue, w.handle)
}

// model returns the client for name. Empty and unknown names get the default.
func (w *worker) model(name string) embed.Model {
	if m, ok := w.models[name]; ok {
		return m
	}
	if name != "" {
		w.unknown.Inc()
		w.logger.Warn("unknown model requested, using default", "model", name, "default", w.defaultModel)
	}
	return w.models[w.defaultModel]
}

func (w *worker) handle(ctx context.Context, req embed.EncodeRequest) embed.EncodeResponse {
	w.requests.Inc()
	if len(req.Texts) == 0 {
		return embed.EncodeResponse{Embeddings: [][]float32{}}
	}

	start := time.Now()
	vecs, err := w.model(req.Model).Encode(ctx, req.Texts)
	w.latency.Since(start)
	if err != nil {
		w.failures.Inc()
		w.logger.Error("encode failed", "model", req.Model, "texts", len(req.Texts), "err", err)
		return embed.EncodeResponse{Error: fmt.Sprintf("encode: %v", err)}
	}
	w.texts.Add(int64(len(req.Texts)))
	return embed.EncodeResponse{Embeddings: vecs}
}
