package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// DocumentFile is the import format shared by TOML, YAML and JSON files:
//
//	[[documents]]
//	source = "cityofrochester"
//	category = "services"
//	title = "Trash Pickup"
//	url = "https://www.cityofrochester.gov/trash"
//	content = "..."
type DocumentFile struct {
	Documents []DocumentRecord `toml:"documents" yaml:"documents" json:"documents"`
}

// DocumentRecord is one document as written in an import file
type DocumentRecord struct {
	Source      string                 `toml:"source" yaml:"source" json:"source"`
	Category    string                 `toml:"category" yaml:"category" json:"category"`
	Type        string                 `toml:"type" yaml:"type" json:"type"`
	Title       string                 `toml:"title" yaml:"title" json:"title"`
	Description string                 `toml:"description" yaml:"description" json:"description"`
	Content     string                 `toml:"content" yaml:"content" json:"content"`
	URL         string                 `toml:"url" yaml:"url" json:"url"`
	ImageURL    string                 `toml:"image_url" yaml:"image_url" json:"image_url"`
	DateStart   string                 `toml:"date_start" yaml:"date_start" json:"date_start"`
	DateEnd     string                 `toml:"date_end" yaml:"date_end" json:"date_end"`
	Location    string                 `toml:"location" yaml:"location" json:"location"`
	Metadata    map[string]interface{} `toml:"metadata" yaml:"metadata" json:"metadata"`
}

// LoadResult summarises a document import
type LoadResult struct {
	Loaded  int `json:"loaded"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// LoadDocumentsFromFile imports documents from a .toml, .yaml/.yml or .json file
func (m *Manager) LoadDocumentsFromFile(ctx context.Context, path string) (*LoadResult, error) {
	return LoadDocumentsFromFile(ctx, m.document, path, m.logger)
}

// LoadDocumentsFromFile parses, validates and upserts documents by URL.
// Invalid records are skipped and logged; the rest are saved.
func LoadDocumentsFromFile(ctx context.Context, storage interfaces.DocumentStorage, path string, logger arbor.ILogger) (*LoadResult, error) {
	file, err := parseDocumentFile(path)
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	result := &LoadResult{}
	docs := make([]*models.Document, 0, len(file.Documents))

	for i, record := range file.Documents {
		doc, err := record.toDocument()
		if err == nil {
			err = validate.Struct(doc)
		}
		if err != nil {
			logger.Warn().
				Err(err).
				Int("index", i).
				Str("url", record.URL).
				Msg("Skipping invalid document record")
			result.Skipped++
			continue
		}
		docs = append(docs, doc)
	}

	created, err := storage.SaveDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}
	result.Loaded = len(docs)
	result.Created = created

	logger.Info().
		Str("file", path).
		Int("loaded", result.Loaded).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("Documents loaded from file")

	return result, nil
}

func parseDocumentFile(path string) (*DocumentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file %s: %w", path, err)
	}

	var file DocumentFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &file)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".json":
		err = json.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported document file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse document file %s: %w", path, err)
	}

	return &file, nil
}

func (r DocumentRecord) toDocument() (*models.Document, error) {
	doc := &models.Document{
		Source:      strings.TrimSpace(r.Source),
		Category:    strings.TrimSpace(r.Category),
		Type:        r.Type,
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		ContentFull: r.Content,
		URL:         strings.TrimSpace(r.URL),
		ImageURL:    r.ImageURL,
		Location:    r.Location,
		Metadata:    r.Metadata,
	}

	var err error
	if doc.DateStart, err = parseEventDate(r.DateStart); err != nil {
		return nil, fmt.Errorf("date_start: %w", err)
	}
	if doc.DateEnd, err = parseEventDate(r.DateEnd); err != nil {
		return nil, fmt.Errorf("date_end: %w", err)
	}

	return doc, nil
}

// parseEventDate accepts RFC 3339 timestamps or plain dates
func parseEventDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised date %q", value)
}
