package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// DocumentHandler serves read-only views of the document store
type DocumentHandler struct {
	storage interfaces.DocumentStorage
	ranker  interfaces.Ranker
	logger  arbor.ILogger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(storage interfaces.DocumentStorage, ranker interfaces.Ranker, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		storage: storage,
		ranker:  ranker,
		logger:  logger,
	}
}

// SearchHandler handles GET /api/search?q=query&limit=10
func (h *DocumentHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		WriteError(w, http.StatusBadRequest, "Query parameter 'q' is required")
		return
	}
	limit := GetLimitParam(r, 10, 100)

	results, err := h.ranker.Rank(r.Context(), query, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("query", query).Msg("Search failed")
		WriteError(w, http.StatusInternalServerError, "Search failed: "+err.Error())
		return
	}
	if results == nil {
		results = []models.RankedResult{}
	}

	h.logger.Debug().
		Str("query", query).
		Str("mode", h.ranker.Mode()).
		Int("results", len(results)).
		Msg("Search completed")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"mode":    h.ranker.Mode(),
		"count":   len(results),
		"results": results,
	})
}

// EventsHandler handles GET /api/events?limit=20
func (h *DocumentHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := GetLimitParam(r, 20, 200)
	events, err := h.storage.FindByCategory(r.Context(), models.CategoryEvents, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch events")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []*models.Document{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"events": events,
	})
}

// StatsHandler handles GET /api/stats
func (h *DocumentHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	stats, err := h.storage.CountDocuments(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to count documents")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
