package interfaces

import (
	"context"
	"errors"

	"github.com/madhura1396/rocbot/internal/models"
)

// ErrDocumentNotFound is returned when a document lookup has no match
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStorage is the document store consumed by ranking and the HTTP layer.
// Iteration order is stable: documents are returned in insertion order.
type DocumentStorage interface {
	// SaveDocument upserts by URL. An existing document keeps its ID and ScrapedAt.
	SaveDocument(ctx context.Context, doc *models.Document) error

	// SaveDocuments upserts a batch and returns how many were new
	SaveDocuments(ctx context.Context, docs []*models.Document) (int, error)

	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByURL(ctx context.Context, url string) (*models.Document, error)

	// FindByCategory returns up to limit documents with the given category tag
	FindByCategory(ctx context.Context, category string, limit int) ([]*models.Document, error)

	// TextSearch returns documents whose title, content or description contains any
	// keyword, case-insensitively, deduplicated by ID. limit <= 0 means no limit.
	TextSearch(ctx context.Context, keywords []string, limit int) ([]*models.Document, error)

	// ListDocuments performs a full scan. limit <= 0 means no limit.
	ListDocuments(ctx context.Context, limit int) ([]*models.Document, error)

	// CountDocuments reports totals by source and by category
	CountDocuments(ctx context.Context) (*models.DocumentStats, error)

	DeleteDocument(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
}
