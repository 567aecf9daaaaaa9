// Package store wraps the vector database behind a small interface and
// provides the backends the service can run against: Qdrant, Chroma and an
// embedded SQLite store.
//
// A Store is bound to one collection when it is opened. Every Store
// implementation is safe for concurrent use; the process keeps a single
// handle for its whole lifetime and shares it between requests.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github/itish2003/docsearch/models"
)

// Distance is the similarity metric of a collection.
type Distance string

const (
	Cosine    Distance = "Cosine"
	Dot       Distance = "Dot"
	Euclidean Distance = "Euclid"
)

// Store is the vector database client used by the pipelines.
type Store interface {
	// Ping verifies the database is reachable and accepts our credentials.
	Ping(ctx context.Context) error
	// EnsureCollection creates the bound collection if it does not exist.
	// An existing collection is left untouched, even if its configuration
	// differs from dim and distance.
	EnsureCollection(ctx context.Context, dim int, distance Distance) error
	// Upsert inserts or replaces the record at id.
	Upsert(ctx context.Context, id string, vector []float32, content string) error
	// Get returns the document stored at id, or an error wrapping
	// models.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Document, error)
	// Search returns at most topK hits ordered by decreasing similarity.
	Search(ctx context.Context, vector []float32, topK int) ([]models.SearchHit, error)
	// Count returns the number of documents in the collection.
	Count(ctx context.Context) (int, error)
	Close() error
}

// Opener creates a new, not yet verified, Store handle.
type Opener func(ctx context.Context) (Store, error)

// RetryPolicy bounds the connection attempts made by Connect.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is five attempts two seconds apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Delay: 2 * time.Second}

// Connect opens a Store and pings it, retrying transient failures according
// to policy. The returned error wraps models.ErrStore once all attempts are
// spent; callers treat that as fatal.
func Connect(ctx context.Context, open Opener, policy RetryPolicy) (Store, error) {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		s, err := open(ctx)
		if err == nil {
			if err = s.Ping(ctx); err == nil {
				log.Printf("STORE: Connected on attempt %d/%d", attempt, policy.Attempts)
				return s, nil
			}
			_ = s.Close()
		}
		lastErr = err
		log.Printf("STORE: Retrying connection (attempt %d/%d): %v", attempt, policy.Attempts, err)

		if attempt == policy.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: connect cancelled: %w", models.ErrStore, ctx.Err())
		case <-time.After(policy.Delay):
		}
	}
	return nil, fmt.Errorf("%w: failed to connect after %d attempts: %w", models.ErrStore, policy.Attempts, lastErr)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStore, op, err)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", models.ErrNotFound, id)
}
