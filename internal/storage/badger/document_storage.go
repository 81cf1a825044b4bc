package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// DocumentStorage implements the DocumentStorage interface for Badger.
// Keys are time-ordered document IDs, so key order is insertion order.
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDocument upserts by URL. Re-saving a known URL keeps its ID and ScrapedAt.
func (s *DocumentStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	_, err := s.saveDocument(ctx, doc)
	return err
}

func (s *DocumentStorage) saveDocument(ctx context.Context, doc *models.Document) (bool, error) {
	if doc.URL == "" {
		return false, fmt.Errorf("document URL is required")
	}

	now := time.Now()
	isNew := false

	existing, err := s.GetDocumentByURL(ctx, doc.URL)
	switch {
	case err == nil:
		doc.ID = existing.ID
		doc.ScrapedAt = existing.ScrapedAt
	case err == interfaces.ErrDocumentNotFound:
		isNew = true
		if doc.ID == "" {
			doc.ID = common.NewDocumentID()
		}
		if doc.ScrapedAt.IsZero() {
			doc.ScrapedAt = now
		}
	default:
		return false, err
	}
	doc.UpdatedAt = now

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return false, fmt.Errorf("failed to save document: %w", err)
	}
	return isNew, nil
}

// SaveDocuments upserts each document and returns how many were new
func (s *DocumentStorage) SaveDocuments(ctx context.Context, docs []*models.Document) (int, error) {
	created := 0
	for _, doc := range docs {
		isNew, err := s.saveDocument(ctx, doc)
		if err != nil {
			return created, fmt.Errorf("failed to save %s: %w", doc.URL, err)
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

func (s *DocumentStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) GetDocumentByURL(ctx context.Context, url string) (*models.Document, error) {
	var docs []models.Document
	if err := s.db.Store().Find(&docs, badgerhold.Where("URL").Eq(url).Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to find document by url: %w", err)
	}
	if len(docs) == 0 {
		return nil, interfaces.ErrDocumentNotFound
	}
	return &docs[0], nil
}

func (s *DocumentStorage) FindByCategory(ctx context.Context, category string, limit int) ([]*models.Document, error) {
	query := badgerhold.Where("Category").Eq(category)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to find documents by category: %w", err)
	}
	return toPointers(docs), nil
}

// TextSearch matches any keyword as a case-insensitive literal substring
// of Title, ContentFull or Description. Results follow store iteration order.
func (s *DocumentStorage) TextSearch(ctx context.Context, keywords []string, limit int) ([]*models.Document, error) {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			terms = append(terms, kw)
		}
	}
	if len(terms) == 0 {
		return []*models.Document{}, nil
	}

	// One pass over the keys; Or'd queries would concatenate per-field results.
	query := badgerhold.Where(badgerhold.Key).MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		doc, ok := ra.Record().(*models.Document)
		if !ok {
			return false, fmt.Errorf("unexpected record type %T", ra.Record())
		}
		return containsAny(doc, terms), nil
	})
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.logger.Debug().
		Strs("keywords", keywords).
		Int("matches", len(docs)).
		Msg("Text search completed")

	return toPointers(docs), nil
}

func containsAny(doc *models.Document, terms []string) bool {
	fields := [...]string{
		strings.ToLower(doc.Title),
		strings.ToLower(doc.ContentFull),
		strings.ToLower(doc.Description),
	}
	for _, term := range terms {
		for _, field := range fields {
			if strings.Contains(field, term) {
				return true
			}
		}
	}
	return false
}

func (s *DocumentStorage) ListDocuments(ctx context.Context, limit int) ([]*models.Document, error) {
	query := badgerhold.Where("ID").Ne("")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return toPointers(docs), nil
}

// CountDocuments scans the store once and partitions counts by source and category
func (s *DocumentStorage) CountDocuments(ctx context.Context) (*models.DocumentStats, error) {
	var docs []models.Document
	if err := s.db.Store().Find(&docs, nil); err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	stats := &models.DocumentStats{
		Total:      len(docs),
		BySource:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, doc := range docs {
		stats.BySource[doc.Source]++
		stats.ByCategory[doc.Category]++
	}
	return stats, nil
}

func (s *DocumentStorage) DeleteDocument(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Document{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) ClearAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.Document{}, nil); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	s.logger.Info().Msg("All documents deleted")
	return nil
}

func toPointers(docs []models.Document) []*models.Document {
	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result
}
