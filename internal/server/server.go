package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/madhura1396/rocbot/internal/app"
)

// Server serves the chat API. Streamed answers (SSE and WebSocket) run on a
// base context that is cancelled as soon as Shutdown begins.
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server

	cancelAnswers context.CancelFunc
}

// New creates the HTTP server for application
func New(application *app.App) *Server {
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		app:           application,
		cancelAnswers: cancel,
	}
	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(s.router),
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // answers stream for as long as generation runs
		IdleTimeout:       60 * time.Second,
	}

	// Shutdown does not wait on hijacked WebSockets and would wait out long SSE answers
	s.server.RegisterOnShutdown(func() {
		s.app.Logger.Debug().
			Int("websocket_clients", s.app.WSHandler.ActiveClients()).
			Msg("Cancelling in-flight answers")
		cancel()
	})

	return s
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	addr := ln.Addr().String()
	s.app.Logger.Info().
		Str("address", addr).
		Str("chat", fmt.Sprintf("http://%s/api/chat", addr)).
		Str("websocket", fmt.Sprintf("ws://%s/ws/chat", addr)).
		Str("llm", s.app.LLMService.Name()).
		Str("search_mode", s.app.Ranker.Mode()).
		Msg("rocbot API listening")

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels streamed answers and waits for
// handlers to return or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	started := time.Now()
	s.app.Logger.Info().Msg("Shutting down rocbot API")

	err := s.server.Shutdown(ctx)
	s.cancelAnswers()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().
		Dur("elapsed", time.Since(started)).
		Msg("rocbot API stopped")
	return nil
}
