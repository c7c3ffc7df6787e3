package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/WessleyAI/resumatch/engine/domain"
	"github.com/WessleyAI/resumatch/engine/match"
	"github.com/WessleyAI/resumatch/pkg/metrics"
	"github.com/WessleyAI/resumatch/pkg/mid"
	"github.com/WessleyAI/resumatch/pkg/pdftext"
)

// maxAnalyzeBody bounds the JSON body of an analyze request. Per-field rune
// limits are checked after decoding.
const maxAnalyzeBody = 1 << 20

// Scorer is the hybrid scoring engine.
type Scorer interface {
	Score(ctx context.Context, resume, job string) match.Result
}

// EventPublisher announces completed analyses.
type EventPublisher interface {
	Publish(ctx context.Context, ev AnalysisEvent) error
}

type server struct {
	scorer  Scorer
	events  EventPublisher
	metrics *metrics.Registry
	cfg     Config
	logger  *slog.Logger
}

func (s *server) routes() http.Handler {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+prefix+"/health", handleHealth)
	mux.HandleFunc("POST "+prefix+"/analyze", s.handleAnalyze)
	mux.HandleFunc("POST "+prefix+"/parse-pdf", s.handleParsePDF)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mw := []mid.Middleware{
		mid.Recover(s.logger),
		mid.Logger(s.logger),
		mid.Metrics(s.metrics),
		mid.CORS(s.cfg.CORSOrigin),
		mid.OTel("resumatch-api"),
	}
	if s.cfg.RateLimitRPS > 0 {
		mw = append(mw, mid.RateLimit(mid.NewClientLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)))
	}
	return mid.Chain(mux, mw...)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "alive",
		"message": "ResuMatch Backend Ready",
	})
}

// AnalyzeResponse is the JSON response for POST /api/analyze.
type AnalyzeResponse struct {
	Status string      `json:"status"`
	Data   AnalyzeData `json:"data"`
}

// AnalyzeData carries the match result.
type AnalyzeData struct {
	Score     float64   `json:"score"`
	Missing   []string  `json:"missing"`
	Breakdown Breakdown `json:"breakdown"`
}

// Breakdown is the per-component score.
type Breakdown struct {
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req domain.AnalyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAnalyzeBody))
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, domain.ErrInvalidBody.Error())
		return
	}
	if err := req.Validate(s.cfg.MaxTextChars); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.scorer.Score(r.Context(), req.Resume, req.Job)

	if s.events != nil {
		ev := AnalysisEvent{
			Score:        res.Score,
			Lexical:      res.Lexical,
			Semantic:     res.Semantic,
			MissingCount: len(res.Missing),
			At:           time.Now().UTC(),
		}
		if err := s.events.Publish(r.Context(), ev); err != nil {
			s.logger.Warn("publish analysis event failed", "err", err)
		}
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Status: "success",
		Data: AnalyzeData{
			Score:     res.Score,
			Missing:   res.Missing,
			Breakdown: Breakdown{Lexical: res.Lexical, Semantic: res.Semantic},
		},
	})
}

// ParsePDFResponse is the JSON response for POST /api/parse-pdf.
type ParsePDFResponse struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

func (s *server) handleParsePDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload a PDF.")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("read upload failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to parse PDF")
		return
	}
	if !pdftext.IsPDF(data) {
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload a PDF.")
		return
	}

	text, err := pdftext.Extract(data, s.cfg.PDFMaxPages)
	if err != nil {
		s.logger.Error("pdf extraction failed", "file", header.Filename, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to parse PDF")
		return
	}
	writeJSON(w, http.StatusOK, ParsePDFResponse{Status: "success", Text: text})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
