package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket chat
	mux.HandleFunc("/ws/chat", s.app.WSHandler.HandleChat)

	// API routes - Chat
	mux.HandleFunc("/api/chat", s.app.ChatHandler.ChatHandler)
	mux.HandleFunc("/api/chat/stream", s.app.ChatHandler.StreamHandler)
	mux.HandleFunc("/api/conversation/{id}", s.app.ChatHandler.ClearConversationHandler)

	// API routes - Documents
	mux.HandleFunc("/api/search", s.app.DocumentHandler.SearchHandler)
	mux.HandleFunc("/api/events", s.app.DocumentHandler.EventsHandler)
	mux.HandleFunc("/api/stats", s.app.DocumentHandler.StatsHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Root info and 404 for everything else
	mux.HandleFunc("/", s.app.APIHandler.RootHandler)

	return mux
}
