package models

import (
	"errors"
	"net/http"
)

// Error kinds. Pipeline stages wrap the underlying cause together with one of
// these so callers can branch with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrExtraction   = errors.New("pdf extraction failed")
	ErrEmbedding    = errors.New("embedding generation failed")
	ErrStore        = errors.New("vector store error")
	ErrNotFound     = errors.New("document not found")
)

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
