package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/handlers"
	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/services/cache"
	"github.com/madhura1396/rocbot/internal/services/chat"
	"github.com/madhura1396/rocbot/internal/services/conversation"
	"github.com/madhura1396/rocbot/internal/services/llm"
	"github.com/madhura1396/rocbot/internal/services/scheduler"
	"github.com/madhura1396/rocbot/internal/services/search"
	"github.com/madhura1396/rocbot/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager *badger.Manager

	// Core services
	Ranker        interfaces.Ranker
	LLMService    interfaces.LLMService
	Conversations *conversation.Store
	ResponseCache interfaces.ResponseCache
	ChatService   interfaces.ChatService
	Janitor       *scheduler.Janitor

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	ChatHandler     *handlers.ChatHandler
	WSHandler       *handlers.WebSocketHandler
	DocumentHandler *handlers.DocumentHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.startJanitor(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to start janitor: %w", err)
	}

	logger.Info().
		Str("llm", app.LLMService.Name()).
		Str("search_mode", app.Ranker.Mode()).
		Bool("cache_enabled", app.ResponseCache != nil).
		Bool("janitor_enabled", app.Janitor != nil).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes the services in dependency order:
// ranker, generation backend, conversation memory, response cache, chat.
func (a *App) initServices(ctx context.Context) error {
	var err error

	a.Ranker = search.NewRanker(a.StorageManager.DocumentStorage(), a.Logger, a.Config)

	a.LLMService, err = llm.NewLLMService(ctx, a.Config, a.StorageManager.KeyValueStorage(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM service: %w", err)
	}

	a.Conversations = conversation.NewStore(a.Config.Conversation.Window, a.Logger)

	a.ResponseCache, err = a.newResponseCache()
	if err != nil {
		return err
	}

	a.ChatService = chat.NewChatService(
		a.Ranker,
		a.LLMService,
		a.StorageManager.DocumentStorage(),
		a.Conversations,
		a.ResponseCache,
		chat.NewPhraseClassifier(),
		chat.Config{
			MaxSources:   a.Config.Search.MaxSources,
			ContextChars: a.Config.Search.ContextChars,
		},
		a.Logger,
	)

	return nil
}

// newResponseCache builds the configured cache backend. Returns nil when caching is disabled.
func (a *App) newResponseCache() (interfaces.ResponseCache, error) {
	if !a.Config.Cache.Enabled {
		a.Logger.Info().Msg("Response cache disabled")
		return nil, nil
	}

	ttl, err := common.ParseDuration(a.Config.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid cache.ttl: %w", err)
	}

	switch backend := strings.ToLower(a.Config.Cache.Backend); backend {
	case "badger":
		a.Logger.Info().Dur("ttl", ttl).Msg("Using persistent response cache")
		return a.StorageManager.ResponseCacheStorage(ttl), nil
	case "memory", "":
		a.Logger.Info().Dur("ttl", ttl).Msg("Using in-memory response cache")
		return cache.NewMemoryCache(ttl, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown cache.backend %q", backend)
	}
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.ChatService, a.LLMService.Name(), a.Logger)
	a.ChatHandler = handlers.NewChatHandler(a.ChatService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.ChatService, a.Config.Server.AllowedOrigins, a.Logger)
	a.DocumentHandler = handlers.NewDocumentHandler(a.StorageManager.DocumentStorage(), a.Ranker, a.Logger)
}

// startJanitor schedules session and cache expiry when either is configured
func (a *App) startJanitor() error {
	if !a.Config.HousekeepingEnabled() {
		a.Logger.Debug().Msg("No expiry configured, janitor not started")
		return nil
	}

	idleTTL, err := common.ParseDuration(a.Config.Conversation.IdleTTL)
	if err != nil {
		return fmt.Errorf("invalid conversation.idle_ttl: %w", err)
	}

	a.Janitor = scheduler.NewJanitor(a.Conversations, a.ResponseCache, idleTTL, a.Logger)
	if err := a.Janitor.Start(a.Config.Janitor.Schedule); err != nil {
		a.Janitor = nil
		return err
	}
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.Janitor != nil {
		a.Janitor.Stop()
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		} else {
			a.Logger.Info().Msg("LLM service closed")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
