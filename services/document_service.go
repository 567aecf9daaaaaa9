package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"

	"github.com/google/uuid"

	"github/itish2003/docsearch/models"
	"github/itish2003/docsearch/store"
)

// SearchTopK is the number of hits a search returns.
const SearchTopK = 10

const pdfMediaType = "application/pdf"

// DocumentService is the ingestion and query pipeline.
type DocumentService interface {
	// AddText stores content as a new document and returns its id.
	AddText(c context.Context, content string) (string, error)
	// AddPDF extracts the text of the PDF in r and stores it. contentType is
	// the media type declared by the caller and must be application/pdf.
	AddPDF(c context.Context, contentType string, r io.ReadSeeker) (string, error)
	// AddPDFFile extracts and stores the PDF at path.
	AddPDFFile(c context.Context, path string) (string, error)
	// Get returns the stored document, or an error wrapping
	// models.ErrNotFound.
	Get(c context.Context, id string) (*models.Document, error)
	// Search returns the ids of the most similar documents, best first.
	Search(c context.Context, query string) ([]string, error)
}

// documentServiceImpl holds the dependencies it needs to do its job
type documentServiceImpl struct {
	embedder  Embedder
	extractor Extractor
	store     store.Store
	newID     func() string
}

// NewDocumentService creates a new document service instance
func NewDocumentService(embedder Embedder, extractor Extractor, s store.Store) DocumentService {
	return &documentServiceImpl{
		embedder:  embedder,
		extractor: extractor,
		store:     s,
		newID:     uuid.NewString,
	}
}

// AddText implements DocumentService
func (d *documentServiceImpl) AddText(c context.Context, content string) (string, error) {
	log.Printf("SERVICE: Ingesting text document (%d bytes)", len(content))
	return d.ingest(c, content)
}

// AddPDF implements DocumentService. The media type is checked before any
// extraction or embedding work is done.
func (d *documentServiceImpl) AddPDF(c context.Context, contentType string, r io.ReadSeeker) (string, error) {
	if !isPDFMediaType(contentType) {
		return "", fmt.Errorf("%w: only PDF files are supported, got %q", models.ErrInvalidInput, contentType)
	}

	content, err := d.extractor.Extract(r)
	if err != nil {
		return "", err
	}
	log.Printf("SERVICE: Extracted %d bytes of text from uploaded PDF", len(content))
	return d.ingest(c, content)
}

// AddPDFFile implements DocumentService
func (d *documentServiceImpl) AddPDFFile(c context.Context, path string) (string, error) {
	content, err := ExtractFile(d.extractor, path)
	if err != nil {
		return "", err
	}
	log.Printf("SERVICE: Extracted %d bytes of text from %s", len(content), path)
	return d.ingest(c, content)
}

// ingest embeds content and stores it under a fresh id. The store is only
// written once both the text and its vector exist.
func (d *documentServiceImpl) ingest(c context.Context, content string) (string, error) {
	docID := d.newID()

	vector, err := d.embedder.Embed(c, content)
	if err != nil {
		return "", fmt.Errorf("could not generate embedding for document: %w", err)
	}

	if err := d.store.Upsert(c, docID, vector, content); err != nil {
		return "", fmt.Errorf("failed to store document %s: %w", docID, err)
	}

	log.Printf("SERVICE: Successfully added document %s", docID)
	return docID, nil
}

// Get implements DocumentService
func (d *documentServiceImpl) Get(c context.Context, id string) (*models.Document, error) {
	doc, err := d.store.Get(c, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Search implements DocumentService. An empty collection yields an empty,
// non-nil slice.
func (d *documentServiceImpl) Search(c context.Context, query string) ([]string, error) {
	log.Printf("SERVICE: Searching for: '%s'", query)

	vector, err := d.embedder.Embed(c, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	hits, err := d.store.Search(c, vector, SearchTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}
	if len(hits) > SearchTopK {
		hits = hits[:SearchTopK]
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	log.Printf("SERVICE: Search returned %d documents", len(ids))
	return ids, nil
}

func isPDFMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == pdfMediaType
}
