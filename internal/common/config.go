package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"

	"github.com/madhura1396/rocbot/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment"` // "development" or "production"
	Server       ServerConfig       `toml:"server"`
	Storage      StorageConfig      `toml:"storage"`
	Logging      LoggingConfig      `toml:"logging"`
	LLM          LLMConfig          `toml:"llm"`
	Ollama       OllamaConfig       `toml:"ollama"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Claude       ClaudeConfig       `toml:"claude"`
	Search       SearchConfig       `toml:"search"`
	Conversation ConversationConfig `toml:"conversation"`
	Cache        CacheConfig        `toml:"cache"`
	Janitor      JanitorConfig      `toml:"janitor"`
}

type ServerConfig struct {
	Port           int    `toml:"port"`
	Host           string `toml:"host"`
	AllowedOrigins string `toml:"allowed_origins"` // CORS Access-Control-Allow-Origin value
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
}

// LLMProvider represents the generation backend type
type LLMProvider string

const (
	// LLMProviderOllama uses a local Ollama server
	LLMProviderOllama LLMProvider = "ollama"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the generation backend
type LLMConfig struct {
	DefaultProvider   LLMProvider   `toml:"default_provider"`   // "ollama" (default), "gemini" or "claude"
	FallbackProviders []LLMProvider `toml:"fallback_providers"` // Tried in order when the default provider errors
	Timeout           string        `toml:"timeout"`            // Per generation call, duration string (default: "2m")
}

// OllamaConfig contains local Ollama server configuration
type OllamaConfig struct {
	BaseURL     string  `toml:"base_url"`    // default "http://localhost:11434"
	Model       string  `toml:"model"`       // default "llama3.2:latest"
	Temperature float32 `toml:"temperature"` // default 0.7
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // default "gemini-2.5-flash"
	RateLimit   string  `toml:"rate_limit"` // Minimum spacing between calls (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// SearchConfig contains ranking and context assembly settings
type SearchConfig struct {
	Mode         string `toml:"mode"`          // "keyword" (default) or "tfidf"
	MaxSources   int    `toml:"max_sources"`   // Default ranking limit per question (default: 5)
	ContextChars int    `toml:"context_chars"` // Body characters per context block (default: 2000)
}

// ConversationConfig contains conversation memory settings
type ConversationConfig struct {
	Window  int    `toml:"window"`   // Turns passed to generation (default: 10)
	IdleTTL string `toml:"idle_ttl"` // Evict sessions idle longer than this. Empty = never
}

// CacheConfig contains first-turn response cache settings
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Backend string `toml:"backend"` // "memory" (default) or "badger"
	TTL     string `toml:"ttl"`     // Entry lifetime. Empty = never expire
}

// JanitorConfig schedules eviction of idle sessions and expired cache entries
type JanitorConfig struct {
	Schedule string `toml:"schedule"` // Cron with seconds field (default: every 5 minutes)
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:           8000,
			Host:           "localhost",
			AllowedOrigins: "*",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/rocbot",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderOllama,
			Timeout:         "2m",
		},
		Ollama: OllamaConfig{
			BaseURL:     "http://localhost:11434",
			Model:       "llama3.2:latest",
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			RateLimit:   "4s",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-3-5-haiku-latest",
			MaxTokens:   1024,
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		Search: SearchConfig{
			Mode:         "keyword",
			MaxSources:   5,
			ContextChars: 2000,
		},
		Conversation: ConversationConfig{
			Window: 10,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
		},
		Janitor: JanitorConfig{
			Schedule: "0 */5 * * * *",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// CLI flags are applied afterwards by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier ones
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ROCBOT_ENV"); env != "" {
		config.Environment = env
	}

	// Server
	if port := os.Getenv("ROCBOT_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ROCBOT_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage
	if badgerPath := os.Getenv("ROCBOT_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging
	if level := os.Getenv("ROCBOT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ROCBOT_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Generation backends
	if provider := os.Getenv("ROCBOT_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Ollama.BaseURL = baseURL
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		config.Ollama.Model = model
	}
	if model := os.Getenv("ROCBOT_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if model := os.Getenv("ROCBOT_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Search
	if mode := os.Getenv("ROCBOT_SEARCH_MODE"); mode != "" {
		config.Search.Mode = mode
	}
	if maxSources := os.Getenv("ROCBOT_SEARCH_MAX_SOURCES"); maxSources != "" {
		if n, err := strconv.Atoi(maxSources); err == nil {
			config.Search.MaxSources = n
		}
	}

	// Cache
	if enabled := os.Getenv("ROCBOT_CACHE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = b
		}
	}
	if backend := os.Getenv("ROCBOT_CACHE_BACKEND"); backend != "" {
		config.Cache.Backend = backend
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	switch c.LLM.DefaultProvider {
	case LLMProviderOllama, LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("unknown llm.default_provider %q", c.LLM.DefaultProvider)
	}

	switch c.Search.Mode {
	case "keyword", "tfidf":
	default:
		return fmt.Errorf("unknown search.mode %q", c.Search.Mode)
	}

	switch c.Cache.Backend {
	case "memory", "badger":
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}

	if c.Search.MaxSources <= 0 {
		return fmt.Errorf("search.max_sources must be positive, got %d", c.Search.MaxSources)
	}
	if c.Conversation.Window <= 0 {
		return fmt.Errorf("conversation.window must be positive, got %d", c.Conversation.Window)
	}

	for name, value := range map[string]string{
		"llm.timeout":           c.LLM.Timeout,
		"conversation.idle_ttl": c.Conversation.IdleTTL,
		"cache.ttl":             c.Cache.TTL,
		"gemini.rate_limit":     c.Gemini.RateLimit,
		"claude.rate_limit":     c.Claude.RateLimit,
	} {
		if _, err := ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if c.HousekeepingEnabled() {
		if err := ValidateJanitorSchedule(c.Janitor.Schedule); err != nil {
			return err
		}
	}

	return nil
}

// HousekeepingEnabled reports whether any expiry policy is configured
func (c *Config) HousekeepingEnabled() bool {
	return c.Conversation.IdleTTL != "" || (c.Cache.Enabled && c.Cache.TTL != "")
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ParseDuration parses a duration string, treating empty as zero
func ParseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// ValidateJanitorSchedule validates a six-field cron expression (seconds first)
func ValidateJanitorSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid janitor.schedule: %w", err)
	}
	return nil
}

// ResolveAPIKey resolves an API key with priority: environment -> KV store -> config
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key": {"ROCBOT_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"claude_api_key": {"ROCBOT_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	}

	for _, envVarName := range keyToEnvMapping[name] {
		if envValue := os.Getenv(envVarName); envValue != "" {
			return envValue, nil
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}
