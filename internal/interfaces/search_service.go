package interfaces

import (
	"context"

	"github.com/madhura1396/rocbot/internal/models"
)

// Ranker orders stored documents by relevance to a question.
//
// Results are sorted by descending score with ties kept in store order.
// An empty result is the "no relevant content" signal, not an error.
type Ranker interface {
	Rank(ctx context.Context, query string, limit int) ([]models.RankedResult, error)

	// Mode names the strategy ("keyword", "tfidf")
	Mode() string
}
