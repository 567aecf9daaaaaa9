package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaAPIEmbedder uses the official Ollama Go client.
type OllamaAPIEmbedder struct {
	client *api.Client
	model  string
}

func NewOllamaAPIEmbedder(host, model string) (*OllamaAPIEmbedder, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	client := api.NewClient(u, &http.Client{Timeout: 30 * time.Second})
	return &OllamaAPIEmbedder{client: client, model: model}, nil
}

func (o *OllamaAPIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  o.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
