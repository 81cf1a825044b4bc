package search

import (
	"context"
	"strings"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// mockDocumentStorage keeps documents in insertion order and matches keywords
// case-insensitively against title, content and description
type mockDocumentStorage struct {
	documents []*models.Document
	searches  [][]string
}

func (m *mockDocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	m.documents = append(m.documents, doc)
	return nil
}

func (m *mockDocumentStorage) SaveDocuments(ctx context.Context, docs []*models.Document) (int, error) {
	m.documents = append(m.documents, docs...)
	return len(docs), nil
}

func (m *mockDocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	for _, doc := range m.documents {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, interfaces.ErrDocumentNotFound
}

func (m *mockDocumentStorage) GetDocumentByURL(ctx context.Context, url string) (*models.Document, error) {
	for _, doc := range m.documents {
		if doc.URL == url {
			return doc, nil
		}
	}
	return nil, interfaces.ErrDocumentNotFound
}

func (m *mockDocumentStorage) FindByCategory(ctx context.Context, category string, limit int) ([]*models.Document, error) {
	var results []*models.Document
	for _, doc := range m.documents {
		if doc.Category == category {
			results = append(results, doc)
		}
	}
	return truncate(results, limit), nil
}

func (m *mockDocumentStorage) TextSearch(ctx context.Context, keywords []string, limit int) ([]*models.Document, error) {
	m.searches = append(m.searches, keywords)
	var results []*models.Document
	for _, doc := range m.documents {
		text := strings.ToLower(doc.Title + "\x00" + doc.ContentFull + "\x00" + doc.Description)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				results = append(results, doc)
				break
			}
		}
	}
	return truncate(results, limit), nil
}

func (m *mockDocumentStorage) ListDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	return truncate(m.documents, limit), nil
}

func (m *mockDocumentStorage) CountDocuments(ctx context.Context) (*models.DocumentStats, error) {
	stats := &models.DocumentStats{Total: len(m.documents), BySource: map[string]int{}, ByCategory: map[string]int{}}
	for _, doc := range m.documents {
		stats.BySource[doc.Source]++
		stats.ByCategory[doc.Category]++
	}
	return stats, nil
}

func (m *mockDocumentStorage) DeleteDocument(ctx context.Context, id string) error { return nil }
func (m *mockDocumentStorage) ClearAll(ctx context.Context) error {
	m.documents = nil
	return nil
}

func truncate(docs []*models.Document, limit int) []*models.Document {
	if limit > 0 && len(docs) > limit {
		return docs[:limit]
	}
	return docs
}
