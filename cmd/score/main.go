// Command score prints the hybrid match of a resume against a job description
// without running the API server. Either file may be plain text or PDF.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/WessleyAI/resumatch/engine/embed"
	"github.com/WessleyAI/resumatch/engine/lexical"
	"github.com/WessleyAI/resumatch/engine/match"
	"github.com/WessleyAI/resumatch/engine/semantic"
	"github.com/WessleyAI/resumatch/pkg/ollama"
	"github.com/WessleyAI/resumatch/pkg/pdftext"
)

type output struct {
	Score    float64  `json:"score"`
	Lexical  float64  `json:"lexical"`
	Semantic float64  `json:"semantic"`
	Missing  []string `json:"missing"`
	Model    string   `json:"model"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if err := run(context.Background(), os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "score:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, logger *slog.Logger) error {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	var (
		resumePath = fs.String("resume", "", "resume file (.txt or .pdf)")
		jobPath    = fs.String("job", "", "job description file (.txt or .pdf)")
		ollamaURL  = fs.String("ollama", "", "Ollama base URL (hashing model if empty)")
		model      = fs.String("model", ollama.DefaultModel, "Ollama embedding model")
		scale      = fs.Float64("scale", semantic.DefaultScale, "semantic similarity multiplier")
		pages      = fs.Int("pages", pdftext.DefaultMaxPages, "PDF pages to read")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *resumePath == "" || *jobPath == "" {
		return fmt.Errorf("both -resume and -job are required")
	}

	resume, err := readText(*resumePath, *pages)
	if err != nil {
		return err
	}
	job, err := readText(*jobPath, *pages)
	if err != nil {
		return err
	}

	var m embed.Model = embed.NewHashingModel(0)
	if *ollamaURL != "" {
		m = ollama.NewEmbedClient(*ollamaURL, *model, 0)
	}
	opts := embed.DefaultOptions()
	opts.Logger = logger
	provider := embed.NewProvider(m, embed.NewMemoryCache(0), opts)

	engine := match.New(lexical.New(), semantic.NewScorer(provider, *scale), match.Options{Logger: logger})
	res := engine.Score(ctx, resume, job)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{
		Score:    res.Score,
		Lexical:  res.Lexical,
		Semantic: res.Semantic,
		Missing:  res.Missing,
		Model:    m.Name(),
	})
}

func readText(path string, pages int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") || pdftext.IsPDF(data) {
		text, err := pdftext.Extract(data, pages)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", path, err)
		}
		return text, nil
	}
	return string(data), nil
}
