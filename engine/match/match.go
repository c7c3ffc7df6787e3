// Package match combines lexical and semantic similarity into the hybrid
// resume-to-job match score.
package match

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/WessleyAI/resumatch/engine/lexical"
	"github.com/WessleyAI/resumatch/engine/semantic"
	"github.com/WessleyAI/resumatch/pkg/fn"
	"github.com/WessleyAI/resumatch/pkg/metrics"
)

// Default component weights. They sum to 1 so the final score stays in 0–100.
const (
	DefaultLexicalWeight  = 0.4
	DefaultSemanticWeight = 0.6
)

// Result is the outcome of scoring one resume against one job description.
// All scores are in [0, 100] and rounded to two decimals; Score is derived
// from the rounded Lexical and Semantic values.
type Result struct {
	Score    float64
	Missing  []string
	Lexical  float64
	Semantic float64
}

// Options configures an Engine.
type Options struct {
	LexicalWeight  float64
	SemanticWeight float64
	Metrics        *metrics.Registry
	Logger         *slog.Logger
}

// DefaultOptions returns the standard 0.4 / 0.6 weighting.
func DefaultOptions() Options {
	return Options{LexicalWeight: DefaultLexicalWeight, SemanticWeight: DefaultSemanticWeight}
}

type texts struct {
	resume, job string
}

// Engine runs the lexical and semantic stages and blends their scores.
type Engine struct {
	lexicalStage  fn.Stage[texts, lexical.Result]
	semanticStage fn.Stage[texts, float64]
	wLex, wSem    float64
	logger        *slog.Logger

	scores   *metrics.Histogram
	duration *metrics.Histogram
}

// New creates an Engine. Weights that are both zero fall back to the defaults.
func New(lex *lexical.Scorer, sem *semantic.Scorer, opts Options) *Engine {
	if opts.LexicalWeight == 0 && opts.SemanticWeight == 0 {
		opts.LexicalWeight, opts.SemanticWeight = DefaultLexicalWeight, DefaultSemanticWeight
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.New()
	}

	return &Engine{
		lexicalStage: fn.TracedStage("match.lexical", fn.MapStage(func(t texts) lexical.Result {
			return lex.Score(t.resume, t.job)
		})),
		semanticStage: fn.TracedStage("match.semantic", func(ctx context.Context, t texts) fn.Result[float64] {
			return fn.Ok(sem.Score(ctx, t.resume, t.job))
		}),
		wLex:     opts.LexicalWeight,
		wSem:     opts.SemanticWeight,
		logger:   logger,
		scores:   reg.Histogram("match_score", "Final hybrid match scores", metrics.ScoreBuckets),
		duration: reg.Histogram("match_duration_seconds", "Time to score one resume/job pair", nil),
	}
}

// Score computes the hybrid match of resume against job. It never fails:
// empty inputs and unavailable embeddings score 0 on the affected component.
func (e *Engine) Score(ctx context.Context, resume, job string) Result {
	start := time.Now()
	in := texts{resume: resume, job: job}

	var (
		wg  sync.WaitGroup
		sem float64
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sem = e.semanticStage(ctx, in).UnwrapOr(0)
	}()
	lex := e.lexicalStage(ctx, in).UnwrapOr(lexical.Result{Missing: []string{}})
	wg.Wait()

	res := Combine(lex.Score, sem, e.wLex, e.wSem)
	res.Missing = lex.Missing
	if res.Missing == nil {
		res.Missing = []string{}
	}

	e.duration.Since(start)
	e.scores.Observe(res.Score)
	e.logger.DebugContext(ctx, "match: scored",
		"score", res.Score, "lexical", res.Lexical, "semantic", res.Semantic, "missing", len(res.Missing))
	return res
}

// Combine clamps and rounds both components and blends them with the given
// weights. The final score is computed from the rounded components.
func Combine(lex, sem, wLex, wSem float64) Result {
	l := round2(clamp(lex))
	s := round2(clamp(sem))
	return Result{
		Score:    round2(clamp(wLex*l + wSem*s)),
		Lexical:  l,
		Semantic: s,
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(v, 100))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
