package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/WessleyAI/resumatch/pkg/fn"
	"github.com/WessleyAI/resumatch/pkg/metrics"
	"github.com/WessleyAI/resumatch/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

// DefaultChunkSize is the chunk length, in runes, for long texts.
const DefaultChunkSize = 500

// Options configures a Provider.
type Options struct {
	// ChunkSize is the rune count above which text is split into
	// ChunkSize-rune segments whose embeddings are averaged.
	ChunkSize int
	Retry     fn.RetryOpts
	Breaker   resilience.BreakerOpts
	// Store, if set, is checked on cache misses and written on computation.
	Store   Store
	Metrics *metrics.Registry
	Logger  *slog.Logger
}

// DefaultOptions returns the defaults used by the API server.
func DefaultOptions() Options {
	return Options{
		ChunkSize: DefaultChunkSize,
		Retry:     fn.DefaultRetry,
		Breaker:   resilience.DefaultBreakerOpts,
	}
}

// Provider turns text into embeddings, caching by content hash. It never
// fails: when the model is unavailable it returns a zero vector so the
// semantic score degrades to 0.
type Provider struct {
	model   Model
	cache   Cache
	store   Store
	breaker *resilience.Breaker
	group   singleflight.Group
	opts    Options
	logger  *slog.Logger

	hits      *metrics.Counter
	misses    *metrics.Counter
	storeHits *metrics.Counter
	failures  *metrics.Counter
	entries   *metrics.Gauge
	latency   *metrics.Histogram
}

// NewProvider creates a Provider. A nil cache gets an unbounded memory cache.
func NewProvider(model Model, cache Cache, opts Options) *Provider {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.New()
	}

	breakerOpts := opts.Breaker
	breakerOpts.OnStateChange = func(from, to resilience.State) {
		logger.Warn("embed: model breaker state change", "model", model.Name(), "from", from.String(), "to", to.String())
	}

	return &Provider{
		model:     model,
		cache:     cache,
		store:     opts.Store,
		breaker:   resilience.NewBreaker(breakerOpts),
		opts:      opts,
		logger:    logger,
		hits:      reg.Counter("embed_cache_hits_total", "Embedding cache hits"),
		misses:    reg.Counter("embed_cache_misses_total", "Embedding cache misses"),
		storeHits: reg.Counter("embed_store_hits_total", "Embeddings served from the persistent store"),
		failures:  reg.Counter("embed_failures_total", "Embeddings replaced by a zero vector"),
		entries:   reg.Gauge("embed_cache_entries", "Vectors held in the in-memory cache"),
		latency:   reg.Histogram("embed_model_duration_seconds", "Model encode latency", nil),
	}
}

// Dimension is the length of every vector Embed returns.
func (p *Provider) Dimension() int { return p.model.Dimension() }

// Embed returns the embedding of text. Empty text and model failures yield a
// zero vector. Cached vectors are shared and must be treated as read-only.
func (p *Provider) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return p.zero()
	}

	key := Key(text)
	if vec, ok := p.cache.Get(key); ok {
		p.hits.Inc()
		return vec
	}
	p.misses.Inc()

	// The flight is shared, so it must not die with the caller that started
	// it. Each caller still stops waiting when its own ctx is done.
	flightCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.load(flightCtx, key, text)
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			p.failures.Inc()
			p.logger.Warn("embed: model unavailable, using zero vector",
				"model", p.model.Name(), "chars", len(text), "err", r.Err)
			return p.zero()
		}
		return r.Val.([]float32)
	case <-ctx.Done():
		p.logger.Debug("embed: caller gave up waiting", "model", p.model.Name(), "err", ctx.Err())
		return p.zero()
	}
}

// load resolves a cache miss from the store or the model.
func (p *Provider) load(ctx context.Context, key, text string) ([]float32, error) {
	if vec, ok := p.cache.Get(key); ok {
		return vec, nil
	}

	storeKey := StoreKey(p.model.Name(), key)
	if p.store != nil {
		vec, ok, err := p.store.Lookup(ctx, storeKey)
		switch {
		case err != nil:
			p.logger.Warn("embed: store lookup failed", "key", storeKey, "err", err)
		case ok && len(vec) == p.model.Dimension():
			p.storeHits.Inc()
			p.put(key, vec)
			return vec, nil
		}
	}

	vec, err := p.compute(ctx, text)
	if err != nil {
		return nil, err
	}
	p.put(key, vec)

	if p.store != nil {
		if err := p.store.Save(ctx, storeKey, vec); err != nil {
			p.logger.Warn("embed: store save failed", "key", storeKey, "err", err)
		}
	}
	return vec, nil
}

func (p *Provider) put(key string, vec []float32) {
	p.cache.Put(key, vec)
	p.entries.Set(int64(p.cache.Len()))
}

// compute encodes text, chunked when long, and averages the chunk vectors.
func (p *Provider) compute(ctx context.Context, text string) ([]float32, error) {
	chunks := p.chunks(text)
	start := time.Now()

	var vecs [][]float32
	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		r := fn.Retry(ctx, p.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
			out, err := p.model.Encode(ctx, chunks)
			return fn.FromPair(out, err)
		})
		var err error
		vecs, err = r.Unwrap()
		return err
	})
	p.latency.Since(start)
	if err != nil {
		return nil, fmt.Errorf("embed: encode %d chunks: %w", len(chunks), err)
	}

	return meanVector(vecs, len(chunks), p.model.Dimension())
}

// chunks splits text into ChunkSize-rune segments; shorter text is one chunk.
func (p *Provider) chunks(text string) []string {
	runes := []rune(text)
	if len(runes) <= p.opts.ChunkSize {
		return []string{text}
	}
	return fn.Map(fn.Chunk(runes, p.opts.ChunkSize), func(r []rune) string { return string(r) })
}

var errBadShape = errors.New("embed: model returned vectors of the wrong shape")

// meanVector averages vecs element-wise after checking there are want vectors
// of length dim.
func meanVector(vecs [][]float32, want, dim int) ([]float32, error) {
	if len(vecs) != want || want == 0 {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", errBadShape, len(vecs), want)
	}
	sum := make([]float64, dim)
	for _, v := range vecs {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: got dimension %d, want %d", errBadShape, len(v), dim)
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	n := float64(len(vecs))
	for i, s := range sum {
		out[i] = float32(s / n)
	}
	return out, nil
}

func (p *Provider) zero() []float32 {
	return make([]float32, p.model.Dimension())
}
