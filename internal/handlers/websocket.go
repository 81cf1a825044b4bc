package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/common"
	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 64 * 1024
)

// WebSocketHandler streams chat answers over a WebSocket connection.
// The client sends one chat request per message; the server replies with
// one JSON frame per stream event.
type WebSocketHandler struct {
	chatService interfaces.ChatService
	upgrader    websocket.Upgrader
	logger      arbor.ILogger

	mu      sync.Mutex
	clients int
}

// NewWebSocketHandler creates a WebSocket chat handler. allowedOrigin "*" or
// empty accepts any origin.
func NewWebSocketHandler(chatService interfaces.ChatService, allowedOrigin string, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		chatService: chatService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		logger: logger,
	}
}

// HandleChat handles GET /ws/chat
func (h *WebSocketHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	h.track(1)
	defer h.track(-1)

	// r.Context() is not cancelled when a hijacked peer goes away;
	// the read loop owns cancellation instead.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stopClose := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopClose()

	requests := make(chan *models.AskRequest)
	common.SafeGo(h.logger, "websocket-chat-reader", func() {
		h.readRequests(ctx, cancel, conn, requests)
	})

	for req := range requests {
		if !h.relay(ctx, conn, req) {
			return
		}
	}
}

// readRequests decodes client messages until the connection fails, then cancels
// any answer still in flight. It is the connection's only reader.
func (h *WebSocketHandler) readRequests(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, requests chan<- *models.AskRequest) {
	defer close(requests)
	defer cancel()

	for {
		var body chatRequest
		if err := conn.ReadJSON(&body); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		select {
		case requests <- body.toAskRequest():
		case <-ctx.Done():
			return
		}
	}
}

// relay writes every event of one answer. Returns false when the connection is unusable.
func (h *WebSocketHandler) relay(ctx context.Context, conn *websocket.Conn, req *models.AskRequest) bool {
	for event := range h.chatService.AskStream(ctx, req) {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug().Err(err).Msg("WebSocket write failed")
			return false
		}
	}
	return true
}

// ActiveClients returns the number of open chat connections
func (h *WebSocketHandler) ActiveClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

func (h *WebSocketHandler) track(delta int) {
	h.mu.Lock()
	h.clients += delta
	n := h.clients
	h.mu.Unlock()

	h.logger.Debug().Int("clients", n).Msg("WebSocket chat clients changed")
}
