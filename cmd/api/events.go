package main

import (
	"context"
	"time"

	"github.com/WessleyAI/resumatch/pkg/natsutil"
	"github.com/nats-io/nats.go"
)

// AnalysisEvent summarizes one completed analysis. It never carries the
// submitted texts.
type AnalysisEvent struct {
	Score        float64   `json:"score"`
	Lexical      float64   `json:"lexical"`
	Semantic     float64   `json:"semantic"`
	MissingCount int       `json:"missing_count"`
	At           time.Time `json:"at"`
}

// natsPublisher publishes AnalysisEvents to a NATS subject.
type natsPublisher struct {
	nc      *nats.Conn
	subject string
}

func (p *natsPublisher) Publish(ctx context.Context, ev AnalysisEvent) error {
	return natsutil.Publish(ctx, p.nc, p.subject, ev)
}
