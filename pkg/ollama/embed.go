// Package ollama provides an Ollama-backed embedding model.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/WessleyAI/resumatch/pkg/fn"
)

const (
	// DefaultModel is a small sentence-embedding model available in Ollama.
	DefaultModel = "all-minilm"
	// DefaultDimension is the vector length of DefaultModel.
	DefaultDimension = 384
)

// EmbedClient encodes text with Ollama's batch embedding endpoint.
type EmbedClient struct {
	baseURL string
	model   string
	dim     int
	client  *http.Client
}

// NewEmbedClient creates an Ollama embedding client. dim is the vector length
// the model produces.
func NewEmbedClient(baseURL, model string, dim int) *EmbedClient {
	if model == "" {
		model = DefaultModel
	}
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &EmbedClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dim:     dim,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func (c *EmbedClient) Dimension() int { return c.dim }
func (c *EmbedClient) Name() string   { return "ollama:" + c.model }

// Encode implements embed.Model with a single POST /api/embed call.
func (c *EmbedClient) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedReq{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama embed: decode: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("ollama embed: %s", result.Error)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	return fn.Map(result.Embeddings, toFloat32), nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
