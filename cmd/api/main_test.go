package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/WessleyAI/resumatch/engine/embed"
	"github.com/WessleyAI/resumatch/engine/lexical"
	"github.com/WessleyAI/resumatch/engine/match"
	"github.com/WessleyAI/resumatch/engine/semantic"
	"github.com/WessleyAI/resumatch/pkg/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []AnalysisEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type panicScorer struct{}

func (panicScorer) Score(context.Context, string, string) match.Result { panic("boom") }

func testConfig() Config {
	return Config{
		APIPrefix:      "/api",
		CORSOrigin:     "*",
		MaxTextChars:   200,
		MaxUploadBytes: 1 << 20,
		PDFMaxPages:    2,
	}
}

func newTestServer(t *testing.T, cfg Config, scorer Scorer, events EventPublisher) http.Handler {
	t.Helper()
	reg := metrics.New()
	if scorer == nil {
		p := embed.NewProvider(embed.NewHashingModel(0), embed.NewMemoryCache(0), embed.DefaultOptions())
		scorer = match.New(lexical.New(), semantic.NewScorer(p, 0), match.Options{Metrics: reg})
	}
	s := &server{
		scorer:  scorer,
		events:  events,
		metrics: reg,
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return s.routes()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "alive" || body["message"] != "ResuMatch Backend Ready" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestAnalyze(t *testing.T) {
	pub := &recordingPublisher{}
	h := newTestServer(t, testConfig(), nil, pub)

	payload := `{"resume":"Experienced Python developer with AWS and Docker skills","job":"Looking for a candidate skilled in Python, Kubernetes, and AWS"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp AnalyzeResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "success" {
		t.Fatalf("expected success, got %q", resp.Status)
	}
	d := resp.Data
	if d.Score <= 0 || d.Score >= 100 {
		t.Fatalf("expected 0 < score < 100, got %v", d.Score)
	}
	if len(d.Missing) == 0 || d.Missing[0] != "Kubernetes" {
		t.Fatalf("expected Kubernetes missing, got %v", d.Missing)
	}
	if len(pub.events) != 1 || pub.events[0].Score != d.Score || pub.events[0].MissingCount != len(d.Missing) {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestAnalyzeEmptyMissingIsArray(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, nil)
	payload := `{"resume":"Go Kubernetes","job":"Go Kubernetes"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"missing":[]`) {
		t.Fatalf("expected empty missing array, got %s", rec.Body.String())
	}
}

func TestAnalyzeBadRequests(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, nil)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{"resume":`, "invalid request body"},
		{"missing resume", `{"job":"Go engineer"}`, "resume"},
		{"blank job", `{"resume":"Go","job":"   "}`, "job"},
		{"too long", fmt.Sprintf(`{"resume":%q,"job":"Go"}`, strings.Repeat("a", 201)), "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if !strings.Contains(body["error"], tt.want) {
				t.Fatalf("expected error containing %q, got %q", tt.want, body["error"])
			}
		})
	}
}

func TestAnalyzePublishFailureIsNotFatal(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, &recordingPublisher{err: errors.New("nats down")})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"resume":"Go","job":"Rust"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAnalyzePanicRecovered(t *testing.T) {
	h := newTestServer(t, testConfig(), panicScorer{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"resume":"Go","job":"Rust"}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Fatalf("panic detail leaked: %s", rec.Body.String())
	}
}

func TestAnalyzeWrongMethod(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCustomPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.APIPrefix = "/v1/"
	h := newTestServer(t, cfg, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, nil)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"resume":"Go","job":"Go"}`)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, want := range []string{"match_score_count 1", "http_requests_total"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("expected %q in metrics:\n%s", want, rec.Body.String())
		}
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	h := newTestServer(t, cfg, nil, nil)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
}

// --- PDF upload ---

func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("other", "value")
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/parse-pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// onePagePDF builds a minimal valid PDF containing text on a single page.
func onePagePDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestParsePDF(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "file", "resume.PDF", onePagePDF("Senior Go Engineer")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ParsePDFResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "success" || !strings.Contains(resp.Text, "Engineer") {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestParsePDFErrors(t *testing.T) {
	h := newTestServer(t, testConfig(), nil, nil)
	tests := []struct {
		name   string
		req    *http.Request
		status int
		want   string
	}{
		{"no file", multipartRequest(t, "", "", nil), http.StatusBadRequest, "No file uploaded"},
		{"no filename", multipartRequest(t, "file", "", []byte("%PDF-1.4")), http.StatusBadRequest, "No file"},
		{"wrong extension", multipartRequest(t, "file", "resume.docx", []byte("PK")), http.StatusBadRequest, "Invalid file type. Please upload a PDF."},
		{"not a pdf", multipartRequest(t, "file", "resume.pdf", []byte("plain text")), http.StatusBadRequest, "Invalid file type. Please upload a PDF."},
		{"corrupt pdf", multipartRequest(t, "file", "resume.pdf", []byte("%PDF-1.4 broken")), http.StatusInternalServerError, "failed to parse PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if !strings.Contains(body["error"], tt.want) {
				t.Fatalf("expected error containing %q, got %q", tt.want, body["error"])
			}
		})
	}
}

func TestParsePDFTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxUploadBytes = 1024
	h := newTestServer(t, cfg, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, multipartRequest(t, "file", "resume.pdf", bytes.Repeat([]byte("x"), 4096)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestNewModel(t *testing.T) {
	tests := []struct {
		backend string
		name    string
		wantErr bool
	}{
		{"", "hashing-bow", false},
		{"hashing", "hashing-bow", false},
		{"ollama", "ollama:all-minilm", false},
		{"nats", "", true},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := Config{EmbedBackend: tt.backend, OllamaURL: "http://localhost:11434", OllamaModel: "all-minilm", EmbedDim: 384}
			m, err := newModel(cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Name() != tt.name || m.Dimension() != 384 {
				t.Fatalf("unexpected model %q/%d", m.Name(), m.Dimension())
			}
		})
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_TEXT_CHARS", "500")
	t.Setenv("SEMANTIC_SCALE", "170")
	t.Setenv("EMBED_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg := loadConfig()
	if cfg.Port != "9090" || cfg.MaxTextChars != 500 || cfg.SemanticScale != 170 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.EmbedTimeout.String() != "3s" {
		t.Fatalf("unexpected timeout %v", cfg.EmbedTimeout)
	}
	if cfg.RateLimitBurst != 20 || cfg.APIPrefix != "/api" {
		t.Fatalf("expected defaults, got burst=%d prefix=%q", cfg.RateLimitBurst, cfg.APIPrefix)
	}
}
