// Package embed maps text to dense embedding vectors through a pluggable
// model backend and a content-addressed cache.
package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// DefaultDimension matches all-MiniLM-L6-v2 sentence embeddings.
const DefaultDimension = 384

// Model is a pretrained, deterministic text encoder.
type Model interface {
	// Encode returns one vector per input text, in order.
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the length of every vector Encode returns.
	Dimension() int
	// Name identifies the model, e.g. "all-minilm".
	Name() string
}

// Key returns the cache key for text: the first 128 bits of its SHA-256
// digest, hex encoded.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// StoreKey scopes a content key to the model that produced the vector. It is
// the key used with a persistent Store, which may hold vectors from several
// models of the same dimension.
func StoreKey(model, key string) string {
	return model + "/" + key
}
