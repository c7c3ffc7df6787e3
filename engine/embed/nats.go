package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/WessleyAI/resumatch/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject served by cmd/embed-worker.
const DefaultSubject = "ml.embed"

// EncodeRequest is the NATS request body for a batch encode.
type EncodeRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

// EncodeResponse is the NATS reply. Error is set instead of Embeddings when
// the worker could not encode.
type EncodeResponse struct {
	Embeddings [][]float32 `json:"embeddings,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// NATSModel encodes through a remote worker using NATS request-reply.
type NATSModel struct {
	nc      *nats.Conn
	subject string
	model   string
	dim     int
	timeout time.Duration
}

// NewNATSModel creates a NATS-backed model. model is forwarded to the worker
// and dim is the dimension the worker's model produces.
func NewNATSModel(nc *nats.Conn, subject, model string, dim int, timeout time.Duration) *NATSModel {
	if subject == "" {
		subject = DefaultSubject
	}
	if dim <= 0 {
		dim = DefaultDimension
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NATSModel{nc: nc, subject: subject, model: model, dim: dim, timeout: timeout}
}

func (m *NATSModel) Dimension() int { return m.dim }
func (m *NATSModel) Name() string   { return "nats:" + m.model }

// Encode implements Model.
func (m *NATSModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := natsutil.Request[EncodeRequest, EncodeResponse](ctx, m.nc, m.subject, EncodeRequest{Model: m.model, Texts: texts})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("embed: worker: %s", resp.Error)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: worker returned %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}
