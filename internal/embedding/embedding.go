// Package embedding turns text chunks into vectors through one of several
// interchangeable backends.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/eun-legal/backend/pkg/config"
)

// ErrEmptyEmbedding is returned when a backend answers with no usable
// vector for a non-empty input.
var ErrEmptyEmbedding = errors.New("backend returned an empty embedding")

// Provider computes embeddings. Dimension must be known before any
// collection touching this provider's vectors is created.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension(ctx context.Context) (int, error)
}

// New builds the provider selected by configuration.
func New(cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "huggingface":
		return NewHFProvider(cfg.HFURL, cfg.HFToken, cfg.HFModel), nil
	case "ollama":
		return NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
