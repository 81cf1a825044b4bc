package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the effective setup
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("rocbot", GetVersion())

	logger.Info().
		Str("version", GetVersion()).
		Str("environment", config.Environment).
		Str("provider", string(config.LLM.DefaultProvider)).
		Str("search_mode", config.Search.Mode).
		Str("cache_backend", config.Cache.Backend).
		Msg("rocbot starting")
}
