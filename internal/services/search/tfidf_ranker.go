package search

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// TFIDFRanker ranks documents by cosine similarity between TF-IDF vectors of
// the question and of each document. The vocabulary is rebuilt from a full
// scan on every call, so newly loaded documents are ranked immediately.
type TFIDFRanker struct {
	storage  interfaces.DocumentStorage
	logger   arbor.ILogger
	minScore float64
}

// NewTFIDFRanker creates a TF-IDF cosine ranker over the document store
func NewTFIDFRanker(storage interfaces.DocumentStorage, logger arbor.ILogger) *TFIDFRanker {
	return &TFIDFRanker{
		storage:  storage,
		logger:   logger,
		minScore: 0.01,
	}
}

func (r *TFIDFRanker) Mode() string { return "tfidf" }

type sparseVector map[string]float64

func (r *TFIDFRanker) Rank(ctx context.Context, query string, limit int) ([]models.RankedResult, error) {
	docs, err := r.storage.ListDocuments(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	corpus := make([]*models.Document, 0, len(docs))
	termCounts := make([]map[string]int, 0, len(docs))
	df := make(map[string]int)

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		counts := termFrequencies(doc.Title + " " + doc.Description + " " + doc.ContentFull)
		for term := range counts {
			df[term]++
		}
		corpus = append(corpus, doc)
		termCounts = append(termCounts, counts)
	}

	queryCounts := termFrequencies(query)
	if len(corpus) == 0 || len(queryCounts) == 0 {
		return []models.RankedResult{}, nil
	}

	n := float64(len(corpus))
	idf := func(term string) float64 {
		// Smoothed IDF; unseen terms carry no weight
		if df[term] == 0 {
			return 0
		}
		return math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	queryVec := weigh(queryCounts, idf)
	results := make([]models.RankedResult, 0)
	for i, doc := range corpus {
		score := dot(queryVec, weigh(termCounts[i], idf))
		if score < r.minScore {
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
		Int("corpus", len(corpus)).
		Int("results", len(results)).
		Msg("TF-IDF ranking completed")

	return results, nil
}

func termFrequencies(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		counts[tok]++
	}
	return counts
}

// weigh builds an L2-normalised TF-IDF vector
func weigh(counts map[string]int, idf func(string) float64) sparseVector {
	total := 0
	for _, c := range counts {
		total += c
	}
	vec := make(sparseVector, len(counts))
	if total == 0 {
		return vec
	}

	norm := 0.0
	for term, c := range counts {
		w := float64(c) / float64(total) * idf(term)
		if w == 0 {
			continue
		}
		vec[term] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for term := range vec {
			vec[term] /= norm
		}
	}
	return vec
}

func dot(a, b sparseVector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for term, w := range a {
		sum += w * b[term]
	}
	return sum
}
