package store

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github/itish2003/docsearch/models"
)

const (
	qdrantGRPCPort = 6334
	contentField   = "content"
)

// QdrantOptions configures NewQdrantStore. URL is either host:port or a full
// URL; an https scheme turns TLS on. The go client speaks gRPC, so the port
// is the gRPC one (6334 by default), not the REST port.
type QdrantOptions struct {
	URL        string
	APIKey     string
	Collection string
}

// QdrantStore is a Store backed by a Qdrant server.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

func NewQdrantStore(opts QdrantOptions) (*QdrantStore, error) {
	host, port, useTLS, err := parseQdrantURL(opts.URL)
	if err != nil {
		return nil, storeErr("parse qdrant url", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: opts.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, storeErr("create qdrant client", err)
	}
	return &QdrantStore{client: client, collection: opts.Collection}, nil
}

func parseQdrantURL(raw string) (host string, port int, useTLS bool, err error) {
	if raw == "" {
		return "localhost", qdrantGRPCPort, false, nil
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", 0, false, err
		}
		port := qdrantGRPCPort
		if p := u.Port(); p != "" {
			if port, err = strconv.Atoi(p); err != nil {
				return "", 0, false, fmt.Errorf("invalid port %q", p)
			}
		}
		return u.Hostname(), port, u.Scheme == "https", nil
	}
	h, p, err := net.SplitHostPort(raw)
	if err != nil {
		// bare host
		return raw, qdrantGRPCPort, false, nil
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid port %q", p)
	}
	return h, port, false, nil
}

// Ping lists collections, which also exercises the API key.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.ListCollections(ctx); err != nil {
		return storeErr("list collections", err)
	}
	return nil
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, dim int, distance Distance) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return storeErr("collection exists", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrantDistance(distance),
		}),
	})
	if err != nil {
		return storeErr("create collection", err)
	}
	return nil
}

func qdrantDistance(d Distance) qdrant.Distance {
	switch d {
	case Dot:
		return qdrant.Distance_Dot
	case Euclidean:
		return qdrant.Distance_Euclid
	default:
		return qdrant.Distance_Cosine
	}
}

// Upsert waits for the write to be applied so a following Get sees it.
func (s *QdrantStore) Upsert(ctx context.Context, id string, vector []float32, content string) error {
	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{contentField: content}),
			},
		},
	})
	if err != nil {
		return storeErr("upsert", err)
	}
	return nil
}

// Get looks a point up by id. Qdrant only accepts UUID or integer ids, so
// anything else cannot exist and is reported as not found.
func (s *QdrantStore) Get(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, storeErr("get", err)
	}
	if len(points) == 0 {
		return nil, notFound(id)
	}
	return documentFromPoint(points[0])
}

// documentFromPoint maps a retrieved point to a Document. A payload without
// a string content field is a store error.
func documentFromPoint(p *qdrant.RetrievedPoint) (*models.Document, error) {
	id := pointID(p.GetId())
	content, err := payloadContent(p.GetPayload())
	if err != nil {
		return nil, storeErr("decode point "+id, err)
	}
	return &models.Document{ID: id, Content: content}, nil
}

func payloadContent(payload map[string]*qdrant.Value) (string, error) {
	v, ok := payload[contentField]
	if !ok {
		return "", fmt.Errorf("payload has no %q field", contentField)
	}
	sv, ok := v.GetKind().(*qdrant.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("payload field %q is not a string", contentField)
	}
	return sv.StringValue, nil
}

func pointID(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchHit, error) {
	if topK <= 0 {
		return []models.SearchHit{}, nil
	}
	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, storeErr("search", err)
	}

	hits := make([]models.SearchHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, models.SearchHit{ID: pointID(p.GetId()), Score: p.GetScore()})
	}
	return hits, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, storeErr("count", err)
	}
	return int(n), nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

var _ Store = (*QdrantStore)(nil)
