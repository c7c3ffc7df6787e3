package semantic

import (
	"context"
	"math"
	"testing"

	"github.com/WessleyAI/resumatch/engine/embed"
)

type fixedEmbedder map[string][]float32

func (f fixedEmbedder) Embed(_ context.Context, text string) []float32 {
	if v, ok := f[text]; ok {
		return v
	}
	return []float32{0, 0, 0}
}

func TestScoreIdentical(t *testing.T) {
	e := fixedEmbedder{"a": {1, 2, 3}, "b": {1, 2, 3}}
	got := NewScorer(e, 0).Score(context.Background(), "a", "b")
	if math.Abs(got-100) > 1e-9 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestScoreEmptyInputs(t *testing.T) {
	e := fixedEmbedder{"a": {1, 0, 0}}
	s := NewScorer(e, 0)
	if got := s.Score(context.Background(), "", "a"); got != 0 {
		t.Fatalf("empty resume: expected 0, got %v", got)
	}
	if got := s.Score(context.Background(), "a", ""); got != 0 {
		t.Fatalf("empty job: expected 0, got %v", got)
	}
}

func TestScoreZeroVector(t *testing.T) {
	e := fixedEmbedder{"a": {1, 0, 0}}
	if got := NewScorer(e, 0).Score(context.Background(), "a", "unknown"); got != 0 {
		t.Fatalf("expected 0 for zero embedding, got %v", got)
	}
}

func TestScoreClampsAndScales(t *testing.T) {
	e := fixedEmbedder{
		"a":   {1, 0},
		"b":   {1, 1},
		"neg": {-1, 0},
	}
	ctx := context.Background()

	half := NewScorer(e, 100).Score(ctx, "a", "b")
	if math.Abs(half-100/math.Sqrt2) > 1e-6 {
		t.Fatalf("expected %v, got %v", 100/math.Sqrt2, half)
	}
	if got := NewScorer(e, 170).Score(ctx, "a", "b"); got != 100 {
		t.Fatalf("expected clamp to 100, got %v", got)
	}
	if got := NewScorer(e, 100).Score(ctx, "a", "neg"); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"parallel", []float32{2, 0}, []float32{5, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreWithHashingProvider(t *testing.T) {
	p := embed.NewProvider(embed.NewHashingModel(0), embed.NewMemoryCache(0), embed.DefaultOptions())
	s := NewScorer(p, 0)
	ctx := context.Background()

	text := "Senior Go engineer with Kubernetes and PostgreSQL experience"
	if got := s.Score(ctx, text, text); math.Abs(got-100) > 1e-3 {
		t.Fatalf("expected ~100 for identical text, got %v", got)
	}
	related := s.Score(ctx, text, "Go engineer, Kubernetes required")
	unrelated := s.Score(ctx, text, "Pastry chef for a busy bakery")
	if related <= unrelated {
		t.Fatalf("expected related (%v) > unrelated (%v)", related, unrelated)
	}
}
