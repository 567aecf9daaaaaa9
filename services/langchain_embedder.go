package services

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangchainEmbedder embeds through langchaingo's Ollama LLM wrapper.
type LangchainEmbedder struct {
	embedder embeddings.Embedder
}

func NewLangchainEmbedder(serverURL, model string) (*LangchainEmbedder, error) {
	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(serverURL))
	if err != nil {
		return nil, err
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &LangchainEmbedder{embedder: e}, nil
}

func (l *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return l.embedder.EmbedQuery(ctx, text)
}
