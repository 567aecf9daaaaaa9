package store

import (
	"context"
	"strings"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github/itish2003/docsearch/models"
)

// ChromaOptions configures NewChromaStore.
type ChromaOptions struct {
	URL        string
	Token      string
	Collection string
}

// ChromaStore is a Store backed by a Chroma server. The collection handle is
// resolved by EnsureCollection, so that must run before any other call.
type ChromaStore struct {
	client     chromago.Client
	name       string
	collection chromago.Collection
}

func NewChromaStore(opts ChromaOptions) (*ChromaStore, error) {
	clientOpts := []chromago.ClientOption{}
	if opts.URL != "" {
		clientOpts = append(clientOpts, chromago.WithBaseURL(opts.URL))
	}
	if opts.Token != "" {
		clientOpts = append(clientOpts, chromago.WithDefaultHeaders(map[string]string{
			"Authorization": "Bearer " + opts.Token,
		}))
	}

	client, err := chromago.NewHTTPClient(clientOpts...)
	if err != nil {
		return nil, storeErr("create chroma client", err)
	}
	return &ChromaStore{client: client, name: opts.Collection}, nil
}

func (s *ChromaStore) Ping(ctx context.Context) error {
	if err := s.client.Heartbeat(ctx); err != nil {
		return storeErr("heartbeat", err)
	}
	return nil
}

// EnsureCollection uses GetOrCreateCollection: the metadata below only takes
// effect when the collection is created. Chroma fixes the dimension on the
// first insert. Vectors always come from our embedder, so the collection gets
// an embedding function that refuses to embed instead of chroma-go's ONNX
// default.
func (s *ChromaStore) EnsureCollection(ctx context.Context, dim int, distance Distance) error {
	collection, err := s.client.GetOrCreateCollection(
		ctx,
		s.name,
		chromago.WithEmbeddingFunctionCreate(precomputedEmbeddings{}),
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", chromaSpace(distance)),
				chromago.NewIntAttribute("dimension", int64(dim)),
				chromago.NewStringAttribute("created_by", "docsearch"),
			),
		),
	)
	if err != nil {
		return storeErr("get or create collection", err)
	}
	s.collection = collection
	return nil
}

func chromaSpace(d Distance) string {
	switch d {
	case Dot:
		return "ip"
	case Euclidean:
		return "l2"
	default:
		return "cosine"
	}
}

func (s *ChromaStore) Upsert(ctx context.Context, id string, vector []float32, content string) error {
	if s.collection == nil {
		return storeErr("upsert", errNoCollection)
	}
	err := s.collection.Upsert(ctx,
		chromago.WithIDs(chromago.DocumentID(id)),
		chromago.WithTexts(content),
		chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
	)
	if err != nil {
		return storeErr("upsert", err)
	}
	return nil
}

func (s *ChromaStore) Get(ctx context.Context, id string) (*models.Document, error) {
	if s.collection == nil {
		return nil, storeErr("get", errNoCollection)
	}
	results, err := s.collection.Get(ctx, chromago.WithIDsGet(chromago.DocumentID(id)))
	if isChromaNotFound(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storeErr("get", err)
	}

	ids := results.GetIDs()
	documents := results.GetDocuments()
	if len(ids) == 0 {
		return nil, notFound(id)
	}
	if len(documents) == 0 || documents[0] == nil {
		return nil, storeErr("decode document "+id, errNoContent)
	}
	return &models.Document{ID: string(ids[0]), Content: documents[0].ContentString()}, nil
}

// Search reports 1-distance as the score. For the cosine space that is the
// cosine similarity; for the other spaces it only preserves Chroma's order.
func (s *ChromaStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchHit, error) {
	if s.collection == nil {
		return nil, storeErr("search", errNoCollection)
	}
	if topK <= 0 {
		return []models.SearchHit{}, nil
	}

	results, err := s.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
	)
	if err != nil {
		return nil, storeErr("search", err)
	}

	hits := []models.SearchHit{}
	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 {
		return hits, nil
	}
	var distances embeddings.Distances
	if groups := results.GetDistancesGroups(); len(groups) > 0 {
		distances = groups[0]
	}
	for i, id := range idGroups[0] {
		var score float32
		if i < len(distances) {
			score = 1 - float32(distances[i])
		}
		hits = append(hits, models.SearchHit{ID: string(id), Score: score})
	}
	return hits, nil
}

func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	if s.collection == nil {
		return 0, storeErr("count", errNoCollection)
	}
	count, err := s.collection.Count(ctx)
	if err != nil {
		return 0, storeErr("count", err)
	}
	return int(count), nil
}

func (s *ChromaStore) Close() error {
	return s.client.Close()
}

// precomputedEmbeddings is the embedding function of every collection we
// open. Upsert and Query always carry vectors, so it is never asked to embed.
type precomputedEmbeddings struct{}

func (precomputedEmbeddings) EmbedDocuments(context.Context, []string) ([]embeddings.Embedding, error) {
	return nil, errPrecomputed
}

func (precomputedEmbeddings) EmbedQuery(context.Context, string) (embeddings.Embedding, error) {
	return nil, errPrecomputed
}

type chromaError string

func (e chromaError) Error() string { return string(e) }

const (
	errNoCollection = chromaError("collection not initialised, call EnsureCollection first")
	errNoContent    = chromaError("document has no content")
	errPrecomputed  = chromaError("documents must be stored with precomputed embeddings")
)

var _ Store = (*ChromaStore)(nil)

// isChromaNotFound is true for the error Chroma returns when an id filter
// matches nothing on older servers.
func isChromaNotFound(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}
