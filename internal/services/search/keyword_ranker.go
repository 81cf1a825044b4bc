package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// Scoring weights and long-document penalties
const (
	titleMatchScore    = 100.0
	wordMatchScore     = 50.0
	longBodyChars      = 5000
	longBodyFactor     = 0.5
	veryLongBodyChars  = 10000
	veryLongBodyFactor = 0.3
)

var errMalformedDocument = errors.New("malformed document")

// KeywordRanker scores documents by keyword occurrences in title and body
type KeywordRanker struct {
	storage interfaces.DocumentStorage
	logger  arbor.ILogger
}

// NewKeywordRanker creates a keyword relevance ranker over the document store
func NewKeywordRanker(storage interfaces.DocumentStorage, logger arbor.ILogger) *KeywordRanker {
	return &KeywordRanker{
		storage: storage,
		logger:  logger,
	}
}

func (r *KeywordRanker) Mode() string { return "keyword" }

// Rank returns up to limit documents ordered by descending score.
// Candidates are discovered keyword by keyword; equal scores keep discovery order.
func (r *KeywordRanker) Rank(ctx context.Context, query string, limit int) ([]models.RankedResult, error) {
	keywords := ExtractKeywords(query)

	candidates, err := r.collectCandidates(ctx, keywords)
	if err != nil {
		return nil, err
	}

	results := make([]models.RankedResult, 0, len(candidates))
	for _, doc := range candidates {
		score, err := ScoreDocument(doc, keywords)
		if err != nil {
			r.logger.Warn().Err(err).Msg("Skipping document during ranking")
			continue
		}
		results = append(results, models.RankedResult{Document: doc, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	r.logger.Debug().
		Strs("keywords", keywords).
		Int("candidates", len(candidates)).
		Int("results", len(results)).
		Msg("Keyword ranking completed")

	return results, nil
}

// collectCandidates unions per-keyword matches, deduplicated by document ID
func (r *KeywordRanker) collectCandidates(ctx context.Context, keywords []string) ([]*models.Document, error) {
	seen := make(map[string]struct{})
	candidates := make([]*models.Document, 0)

	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		docs, err := r.storage.TextSearch(ctx, []string{keyword}, 0)
		if err != nil {
			return nil, fmt.Errorf("text search for %q failed: %w", keyword, err)
		}
		for _, doc := range docs {
			if doc == nil {
				continue
			}
			key := doc.ID
			if key == "" {
				key = doc.URL
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			candidates = append(candidates, doc)
		}
	}

	return candidates, nil
}

// ScoreDocument computes the keyword relevance score of one document.
// Per keyword: +100 when the title contains it, +50 when the body contains it as a
// whole word, plus the number of occurrences in the body. Bodies over 10000
// characters are scaled by 0.3, over 5000 by 0.5.
func ScoreDocument(doc *models.Document, keywords []string) (float64, error) {
	if doc == nil || (doc.ID == "" && doc.URL == "") {
		return 0, errMalformedDocument
	}

	title := strings.ToLower(doc.Title)
	body := strings.ToLower(doc.ContentFull)

	score := 0.0
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(title, keyword) {
			score += titleMatchScore
		}
		if containsWord(body, keyword) {
			score += wordMatchScore
		}
		score += float64(strings.Count(body, keyword))
	}

	return score * lengthPenalty(utf8.RuneCountInString(doc.ContentFull)), nil
}

// lengthPenalty applies only the deepest matching tier
func lengthPenalty(bodyChars int) float64 {
	switch {
	case bodyChars > veryLongBodyChars:
		return veryLongBodyFactor
	case bodyChars > longBodyChars:
		return longBodyFactor
	default:
		return 1.0
	}
}
