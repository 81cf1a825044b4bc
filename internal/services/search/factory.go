package search

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
)

// NewRanker creates a ranker based on configuration.
// Supported modes:
//   - "keyword": title/body keyword scoring with length penalty (default)
//   - "tfidf": TF-IDF cosine similarity
func NewRanker(storage interfaces.DocumentStorage, logger arbor.ILogger, config *common.Config) interfaces.Ranker {
	mode := strings.ToLower(strings.TrimSpace(config.Search.Mode))

	switch mode {
	case "tfidf":
		logger.Info().Str("mode", mode).Msg("Initializing TF-IDF ranker")
		return NewTFIDFRanker(storage, logger)

	case "keyword", "":
		logger.Info().Str("mode", "keyword").Msg("Initializing keyword ranker")
		return NewKeywordRanker(storage, logger)

	default:
		logger.Warn().
			Str("mode", mode).
			Str("fallback", "keyword").
			Msg("Unknown search mode, falling back to keyword ranking")
		return NewKeywordRanker(storage, logger)
	}
}
