package services

import (
	"context"
	"fmt"
	"time"

	"github/itish2003/docsearch/config"
	"github/itish2003/docsearch/models"
)

// Embedder turns text into a vector. Implementations make exactly one call
// to the model per Embed; there is no retry at this layer.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// guardedEmbedder classifies every failure as models.ErrEmbedding and
// rejects vectors whose length differs from the collection dimension.
type guardedEmbedder struct {
	inner     Embedder
	dimension int
	timeout   time.Duration
}

// NewGuardedEmbedder wraps inner so that it only ever returns vectors of
// exactly dimension floats. A positive timeout bounds each call.
func NewGuardedEmbedder(inner Embedder, dimension int, timeout time.Duration) Embedder {
	return &guardedEmbedder{inner: inner, dimension: dimension, timeout: timeout}
}

func (g *guardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	vec, err := g.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: model returned an empty vector", models.ErrEmbedding)
	}
	if len(vec) != g.dimension {
		return nil, fmt.Errorf("%w: got %d dimensions, collection expects %d", models.ErrEmbedding, len(vec), g.dimension)
	}
	return vec, nil
}

// NewEmbedder builds the backend selected in cfg, wrapped in the dimension
// guard.
func NewEmbedder(ctx context.Context, cfg config.EmbedderConfig, dimension int) (Embedder, error) {
	var inner Embedder
	var err error

	switch cfg.Type {
	case "ollama", "":
		inner = NewOllamaEmbedder(nil, cfg.OllamaHost, cfg.Model)
	case "ollama-api":
		inner, err = NewOllamaAPIEmbedder(cfg.OllamaHost, cfg.Model)
	case "langchain":
		inner, err = NewLangchainEmbedder(cfg.OllamaHost, cfg.Model)
	case "gemini":
		inner, err = NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.Model, dimension)
	case "command":
		inner = NewCommandEmbedder(cfg.Command, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%s embedder init failed: %w", cfg.Type, err)
	}
	return NewGuardedEmbedder(inner, dimension, cfg.Timeout), nil
}
