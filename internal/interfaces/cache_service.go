package interfaces

import (
	"context"

	"github.com/madhura1396/rocbot/internal/models"
)

// ResponseCache memoizes answers to first-turn questions, keyed by question fingerprint
type ResponseCache interface {
	// Get returns a cached answer. Misses and expired entries return false.
	Get(ctx context.Context, fingerprint string) (*models.AnswerResult, bool)

	// Put stores an answer, replacing any previous entry for the fingerprint
	Put(ctx context.Context, fingerprint string, result *models.AnswerResult) error

	// Prune removes expired entries and returns how many were removed
	Prune(ctx context.Context) (int, error)

	// Len returns the number of live entries
	Len(ctx context.Context) int
}
