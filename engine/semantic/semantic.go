// Package semantic scores meaning-level similarity between a resume and a job
// description from their embeddings, and persists embeddings in Qdrant.
package semantic

import (
	"context"
	"math"
)

// DefaultScale maps cosine similarity onto 0–100.
const DefaultScale = 100.0

// Embedder returns the embedding of a text. It must not fail; unavailable
// embeddings are zero vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// Scorer computes semantic similarity scores.
type Scorer struct {
	embedder Embedder
	scale    float64
}

// NewScorer creates a Scorer. scale multiplies the raw cosine before
// clamping; values <= 0 use DefaultScale.
func NewScorer(e Embedder, scale float64) *Scorer {
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Scorer{embedder: e, scale: scale}
}

// Score returns cosine(embed(resume), embed(job)) × scale, clamped to
// [0, 100]. It is 0 when either text is empty or either embedding is zero.
func (s *Scorer) Score(ctx context.Context, resume, job string) float64 {
	if resume == "" || job == "" {
		return 0
	}
	sim := Cosine(s.embedder.Embed(ctx, resume), s.embedder.Embed(ctx, job))
	return math.Max(0, math.Min(sim*s.scale, 100))
}

// Cosine returns the cosine similarity of a and b, or 0 if either has zero
// norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
