package embed

import (
	"context"
	"testing"
	"time"

	"github.com/WessleyAI/resumatch/pkg/natsutil"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func TestNATSModelRoundTrip(t *testing.T) {
	nc := startTestNATS(t)
	local := NewHashingModel(16)

	sub, err := natsutil.Serve(nc, DefaultSubject, "", func(ctx context.Context, req EncodeRequest) EncodeResponse {
		vecs, _ := local.Encode(ctx, req.Texts)
		return EncodeResponse{Embeddings: vecs}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	m := NewNATSModel(nc, "", "all-minilm", 16, time.Second)
	if m.Name() != "nats:all-minilm" {
		t.Fatalf("unexpected name %q", m.Name())
	}
	got, err := m.Encode(context.Background(), []string{"python", "kubernetes"})
	if err != nil {
		t.Fatal(err)
	}
	want, _ := local.Encode(context.Background(), []string{"python", "kubernetes"})
	if len(got) != 2 || got[1][0] != want[1][0] {
		t.Fatalf("unexpected vectors %v", got)
	}
}

func TestNATSModelWorkerError(t *testing.T) {
	nc := startTestNATS(t)
	sub, err := natsutil.Serve(nc, "test.embed", "", func(context.Context, EncodeRequest) EncodeResponse {
		return EncodeResponse{Error: "model not loaded"}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	m := NewNATSModel(nc, "test.embed", "x", 16, time.Second)
	if _, err := m.Encode(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected worker error")
	}
}

func TestNATSModelShortReply(t *testing.T) {
	nc := startTestNATS(t)
	sub, err := natsutil.Serve(nc, "test.short", "", func(context.Context, EncodeRequest) EncodeResponse {
		return EncodeResponse{Embeddings: [][]float32{{1}}}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	m := NewNATSModel(nc, "test.short", "x", 1, time.Second)
	if _, err := m.Encode(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
