package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github/itish2003/docsearch/models"

	_ "modernc.org/sqlite"
)

// SQLiteStore is an embedded Store for local use. Search is a brute-force
// scan of the collection, which is fine for the document counts a single
// workstation indexes.
type SQLiteStore struct {
	db         *sql.DB
	collection string
}

// NewSQLiteStore opens (creating if needed) the database at path and binds
// the store to collection.
func NewSQLiteStore(path, collection string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr("open sqlite", err)
	}

	s := &SQLiteStore{db: db, collection: collection}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return storeErr("pragma", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			distance TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			PRIMARY KEY (collection, id)
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return storeErr("create schema", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *SQLiteStore) EnsureCollection(ctx context.Context, dim int, distance Distance) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name, dimension, distance) VALUES (?, ?, ?)",
		s.collection, dim, string(distance))
	if err != nil {
		return storeErr("ensure collection", err)
	}
	return nil
}

// Upsert is a single statement, so a failed call never leaves a partial row.
func (s *SQLiteStore) Upsert(ctx context.Context, id string, vector []float32, content string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO documents (collection, id, content, embedding) VALUES (?, ?, ?, ?)",
		s.collection, id, content, encodeEmbedding(vector))
	if err != nil {
		return storeErr("upsert", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Document, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"SELECT content FROM documents WHERE collection = ? AND id = ?",
		s.collection, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storeErr("get", err)
	}
	return &models.Document{ID: id, Content: content}, nil
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchHit, error) {
	if topK <= 0 {
		return []models.SearchHit{}, nil
	}

	distance, err := s.distance(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, embedding FROM documents WHERE collection = ?", s.collection)
	if err != nil {
		return nil, storeErr("search", err)
	}
	defer rows.Close()

	hits := []models.SearchHit{}
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, storeErr("search scan", err)
		}
		emb, err := decodeEmbedding(blob)
		if err != nil {
			return nil, storeErr("search decode "+id, err)
		}
		hits = append(hits, models.SearchHit{ID: id, Score: similarity(distance, vector, emb)})
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("search", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count returns the number of documents in the bound collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE collection = ?", s.collection).Scan(&n)
	if err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

func (s *SQLiteStore) distance(ctx context.Context) (Distance, error) {
	var d string
	err := s.db.QueryRowContext(ctx,
		"SELECT distance FROM collections WHERE name = ?", s.collection).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return Cosine, nil
	}
	if err != nil {
		return "", storeErr("read collection", err)
	}
	return Distance(d), nil
}

// collectionInfo reports the stored configuration of the bound collection.
func (s *SQLiteStore) collectionInfo(ctx context.Context) (int, Distance, error) {
	var dim int
	var d string
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension, distance FROM collections WHERE name = ?", s.collection).Scan(&dim, &d)
	if err != nil {
		return 0, "", fmt.Errorf("collection %s: %w", s.collection, err)
	}
	return dim, Distance(d), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
