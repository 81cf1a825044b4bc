package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
)

const healthCheckTimeout = 5 * time.Second

type APIHandler struct {
	chatService interfaces.ChatService
	llmName     string
	logger      arbor.ILogger
}

func NewAPIHandler(chatService interfaces.ChatService, llmName string, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		chatService: chatService,
		llmName:     llmName,
		logger:      logger,
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"name":       "rocbot",
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler reports document store and generation backend health.
// An unreachable store is unhealthy (503); an unreachable backend is degraded.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	stats, err := h.chatService.Stats(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Health check failed: document store unavailable")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": "unavailable",
			"error":    err.Error(),
		})
		return
	}

	body := map[string]interface{}{
		"status":      "healthy",
		"database":    "connected",
		"items_count": stats.Total,
		"llm": map[string]interface{}{
			"name":    h.llmName,
			"healthy": true,
		},
	}

	if err := h.chatService.HealthCheck(ctx); err != nil {
		h.logger.Warn().Err(err).Str("llm", h.llmName).Msg("Generation backend unhealthy")
		body["status"] = "degraded"
		body["llm"] = map[string]interface{}{
			"name":    h.llmName,
			"healthy": false,
			"error":   err.Error(),
		}
	}

	WriteJSON(w, http.StatusOK, body)
}

// RootHandler answers GET / with service info and anything else unmatched with 404
func (h *APIHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFoundHandler(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"name":    "rocbot",
		"version": common.GetVersion(),
		"status":  "running",
	})
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"success": false,
		"error":   "Not Found",
		"path":    r.URL.Path,
	})
}
