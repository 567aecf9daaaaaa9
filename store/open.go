package store

import (
	"context"
	"fmt"

	"github/itish2003/docsearch/config"
)

// NewOpener returns the Opener for the backend selected in cfg.
func NewOpener(cfg config.StoreConfig) (Opener, error) {
	switch cfg.Type {
	case "qdrant", "":
		return func(context.Context) (Store, error) {
			return NewQdrantStore(QdrantOptions{
				URL:        cfg.Qdrant.URL,
				APIKey:     cfg.Qdrant.APIKey,
				Collection: cfg.Collection,
			})
		}, nil
	case "chroma":
		return func(context.Context) (Store, error) {
			return NewChromaStore(ChromaOptions{
				URL:        cfg.Chroma.URL,
				Token:      cfg.Chroma.Token,
				Collection: cfg.Collection,
			})
		}, nil
	case "sqlite":
		return func(context.Context) (Store, error) {
			return NewSQLiteStore(cfg.SQLite.Path, cfg.Collection)
		}, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// Open connects to the configured backend with the configured retry policy
// and makes sure the collection exists.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	opener, err := NewOpener(cfg)
	if err != nil {
		return nil, err
	}
	s, err := Connect(ctx, opener, RetryPolicy{Attempts: cfg.Retries, Delay: cfg.RetryDelay})
	if err != nil {
		return nil, err
	}
	if err := s.EnsureCollection(ctx, cfg.Dimension, Cosine); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
