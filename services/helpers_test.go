package services

import (
	"bytes"
	"context"
	"errors"
	"hash/fnv"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github/itish2003/docsearch/models"
	"github/itish2003/docsearch/store"
)

const testDim = 16

// hashEmbedder is a bag-of-words embedder: identical texts get identical
// vectors, texts sharing words get similar ones.
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	vec := make([]float32, testDim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		vec[f.Sum32()%testDim]++
	}
	vec[0] += 0.01 // never a zero vector
	return vec, nil
}

func (h *hashEmbedder) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// fakePDFExtractor accepts "%PDF" followed by pages separated by form feeds
// and returns the pages concatenated in order.
type fakePDFExtractor struct {
	calls int
}

func (f *fakePDFExtractor) Extract(r io.ReadSeeker) (string, error) {
	f.calls++
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", errors.Join(models.ErrExtraction, errors.New("not a pdf"))
	}
	pages := strings.Split(string(data[len("%PDF"):]), "\f")
	return strings.Join(pages, ""), nil
}

func fakePDF(pages ...string) []byte {
	return []byte("%PDF" + strings.Join(pages, "\f"))
}

// failingStore fails every write and read.
type failingStore struct {
	store.Store
	err error
}

func (f *failingStore) Upsert(context.Context, string, []float32, string) error {
	return f.err
}

func (f *failingStore) Search(context.Context, []float32, int) ([]models.SearchHit, error) {
	return nil, f.err
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"), "rag_documents")
	require.NoError(t, err)
	require.NoError(t, s.EnsureCollection(context.Background(), testDim, store.Cosine))
	t.Cleanup(func() { s.Close() })
	return s
}

type testPipeline struct {
	svc       DocumentService
	embedder  *hashEmbedder
	extractor *fakePDFExtractor
	store     *store.SQLiteStore
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	p := &testPipeline{
		embedder:  &hashEmbedder{},
		extractor: &fakePDFExtractor{},
		store:     newTestStore(t),
	}
	p.svc = NewDocumentService(NewGuardedEmbedder(p.embedder, testDim, 0), p.extractor, p.store)
	return p
}
