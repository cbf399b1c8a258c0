// Package embed provides a transport-agnostic embedding client that
// converts element content to float32 vectors via any OpenAI-compatible
// embedding server, plus a deterministic fallback for when no server is
// configured or reachable.
//
// It decouples vector production from caching/ranking so any component can
// convert text to vectors without knowing the backend (CPU ONNX, GPU vLLM,
// RunPod serverless, or Ollama).
//
// Usage:
//
//	emb := embed.New(embed.Config{
//	    Endpoint: "http://localhost:8003",
//	    Model:    "multilingual-e5-large",
//	})
//	vec, err := emb.Embed(ctx, "Sign in button, role button")
package embed

import (
	"context"
	"log/slog"
	"time"
)

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension (D_elem). Returns 0 if not
	// yet detected (first call not made).
	Dimension() int

	// Model returns the model name.
	Model() string
}

// Config configures the embedding client.
type Config struct {
	// Endpoint is the base URL of the embedding server. If empty, the
	// deterministic fallback embedder is returned instead of an HTTP client.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the model name sent in the request.
	Model string `json:"model" yaml:"model"`

	// Dimension is D_elem, used by the fallback embedder (768 unless
	// overridden). The HTTP client ignores it and auto-detects the
	// dimension from its first response.
	Dimension int `json:"dimension" yaml:"dimension"`

	// BatchSize is the maximum number of texts per HTTP request. Default: 32.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Dimension <= 0 {
		c.Dimension = 768
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Embedder from config. If Endpoint is empty, returns the
// deterministic fallback embedder (spec.md §4.2's EmbedderUnavailable path).
func New(cfg Config) Embedder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return newFallbackEmbedder(cfg.Dimension, cfg.Model)
	}
	return newOpenAIClient(cfg)
}
