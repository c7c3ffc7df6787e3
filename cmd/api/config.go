package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	APIPrefix  string
	CORSOrigin string

	MaxTextChars   int
	MaxUploadBytes int64
	PDFMaxPages    int

	EmbedBackend   string
	OllamaURL      string
	OllamaModel    string
	EmbedDim       int
	EmbedChunkSize int
	EmbedCacheSize int
	EmbedRetries   int
	EmbedTimeout   time.Duration

	NATSURL           string
	NATSEmbedSubject  string
	NATSEventsSubject string

	QdrantURL        string
	QdrantCollection string

	SemanticScale  float64
	LexicalWeight  float64
	SemanticWeight float64

	RateLimitRPS   float64
	RateLimitBurst int
}

func loadConfig() Config {
	// A missing .env file is fine; the process environment wins either way.
	_ = godotenv.Load()

	return Config{
		Port:       envOr("PORT", "8080"),
		APIPrefix:  envOr("API_PREFIX", "/api"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),

		MaxTextChars:   envInt("MAX_TEXT_CHARS", 20000),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		PDFMaxPages:    envInt("PDF_MAX_PAGES", 2),

		EmbedBackend:   envOr("EMBED_BACKEND", "hashing"),
		OllamaURL:      envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:    envOr("OLLAMA_MODEL", "all-minilm"),
		EmbedDim:       envInt("EMBED_DIM", 384),
		EmbedChunkSize: envInt("EMBED_CHUNK_SIZE", 500),
		EmbedCacheSize: envInt("EMBED_CACHE_SIZE", 0),
		EmbedRetries:   envInt("EMBED_RETRIES", 2),
		EmbedTimeout:   envDuration("EMBED_TIMEOUT", 10*time.Second),

		NATSURL:           envOr("NATS_URL", ""),
		NATSEmbedSubject:  envOr("NATS_EMBED_SUBJECT", "ml.embed"),
		NATSEventsSubject: envOr("NATS_EVENTS_SUBJECT", ""),

		QdrantURL:        envOr("QDRANT_URL", ""),
		QdrantCollection: envOr("QDRANT_COLLECTION", "resumatch_embeddings"),

		SemanticScale:  envFloat("SEMANTIC_SCALE", 100),
		LexicalWeight:  envFloat("LEXICAL_WEIGHT", 0.4),
		SemanticWeight: envFloat("SEMANTIC_WEIGHT", 0.6),

		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 20),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
