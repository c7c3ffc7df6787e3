package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/WessleyAI/resumatch/engine/textproc"
)

// HashingModel is an offline signed feature-hashing encoder over stemmed
// unigrams and bigrams. It needs no model weights, which makes it the fallback
// when no embedding backend is configured, but it only captures shared
// vocabulary, not meaning.
type HashingModel struct {
	dim int
}

// NewHashingModel returns a HashingModel producing vectors of length dim
// (DefaultDimension if dim <= 0).
func NewHashingModel(dim int) *HashingModel {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashingModel{dim: dim}
}

func (m *HashingModel) Dimension() int { return m.dim }
func (m *HashingModel) Name() string   { return "hashing-bow" }

// Encode implements Model.
func (m *HashingModel) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.encodeOne(t)
	}
	return out, nil
}

func (m *HashingModel) encodeOne(text string) []float32 {
	vec := make([]float32, m.dim)
	tokens := textproc.Tokenize(text)
	if len(tokens) == 0 {
		tokens = textproc.Words(text)
	}
	for i, tok := range tokens {
		m.add(vec, tok, 1)
		if i > 0 {
			m.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// add hashes feature into a bucket; one hash bit picks the sign so unrelated
// features colliding in a bucket tend to cancel.
func (m *HashingModel) add(vec []float32, feature string, weight float32) {
	sum := sha256.Sum256([]byte(feature))
	h := binary.BigEndian.Uint64(sum[:8])
	idx := int(h % uint64(m.dim))
	if sum[8]&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
