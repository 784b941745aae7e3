// Package storage persists ingested documents and their passages.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and chunk persistence operations.
type Storage interface {
	// SaveDocument stores doc and replaces all of its chunks atomically.
	SaveDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	// DeleteDocument removes doc and its chunks and returns the removed chunk IDs.
	DeleteDocument(ctx context.Context, id string) ([]string, error)

	GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error)
	// GetChunks returns the chunks found among ids keyed by ID. Missing IDs are skipped.
	GetChunks(ctx context.Context, ids []string) (map[string]*models.DocumentChunk, error)
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.DocumentChunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	// Clear removes every document and chunk.
	Clear(ctx context.Context) error

	Close() error
}
