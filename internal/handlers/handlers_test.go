package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// mockChatService implements interfaces.ChatService for testing
type mockChatService struct {
	askFunc    func(ctx context.Context, req *models.AskRequest) (*models.AnswerResult, error)
	streamFunc func(ctx context.Context, req *models.AskRequest) iter.Seq[models.StreamEvent]
	events     []models.StreamEvent
	cleared    []string
	stats      *models.DocumentStats
	statsErr   error
	healthErr  error
	lastStream *models.AskRequest
}

func (m *mockChatService) Ask(ctx context.Context, req *models.AskRequest) (*models.AnswerResult, error) {
	if m.askFunc != nil {
		return m.askFunc(ctx, req)
	}
	return &models.AnswerResult{Answer: "ok", Sources: []models.Citation{}, Query: req.Question, ConversationID: req.ConversationID}, nil
}

func (m *mockChatService) AskStream(ctx context.Context, req *models.AskRequest) iter.Seq[models.StreamEvent] {
	if m.streamFunc != nil {
		return m.streamFunc(ctx, req)
	}
	m.lastStream = req
	return func(yield func(models.StreamEvent) bool) {
		for _, e := range m.events {
			if !yield(e) {
				return
			}
		}
	}
}

func (m *mockChatService) ClearConversation(ctx context.Context, id string) error {
	m.cleared = append(m.cleared, id)
	return nil
}

func (m *mockChatService) Stats(ctx context.Context) (*models.DocumentStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &models.DocumentStats{BySource: map[string]int{}, ByCategory: map[string]int{}}, nil
}

func (m *mockChatService) HealthCheck(ctx context.Context) error {
	return m.healthErr
}

type stubRanker struct {
	results []models.RankedResult
	err     error
	limit   int
}

func (s *stubRanker) Rank(ctx context.Context, query string, limit int) ([]models.RankedResult, error) {
	s.limit = limit
	return s.results, s.err
}

func (s *stubRanker) Mode() string { return "keyword" }

type stubStorage struct {
	interfaces.DocumentStorage
	docs     []*models.Document
	category string
	limit    int
}

func (s *stubStorage) FindByCategory(ctx context.Context, category string, limit int) ([]*models.Document, error) {
	s.category, s.limit = category, limit
	return s.docs, nil
}

func (s *stubStorage) CountDocuments(ctx context.Context) (*models.DocumentStats, error) {
	return &models.DocumentStats{
		Total:      len(s.docs),
		BySource:   map[string]int{"eventbrite": len(s.docs)},
		ByCategory: map[string]int{"events": len(s.docs)},
	}, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestChatHandler_Success(t *testing.T) {
	svc := &mockChatService{
		askFunc: func(ctx context.Context, req *models.AskRequest) (*models.AnswerResult, error) {
			assert.Equal(t, "When is trash pickup?", req.Question)
			assert.Equal(t, 3, req.MaxSources)
			return &models.AnswerResult{
				Answer:         "Trash is collected on **Monday**.",
				Sources:        []models.Citation{{Title: "Trash Pickup", URL: "https://x/trash", Source: "city", Category: "services"}},
				Query:          req.Question,
				ConversationID: "c1",
			}, nil
		},
	}
	h := NewChatHandler(svc, arbor.NewLogger())

	rec := postJSON(h.ChatHandler, "/api/chat", `{"question":"When is trash pickup?","conversation_id":"c1","max_sources":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Trash is collected on **Monday**.", body["answer"])
	assert.Equal(t, "c1", body["conversation_id"])
	assert.Len(t, body["sources"], 1)
	assert.NotContains(t, body, "answer_html")
}

func TestChatHandler_MessageAliasAndHTML(t *testing.T) {
	svc := &mockChatService{
		askFunc: func(ctx context.Context, req *models.AskRequest) (*models.AnswerResult, error) {
			return &models.AnswerResult{Answer: "Go **now**", Sources: []models.Citation{}, Query: req.Question, ConversationID: "c"}, nil
		},
	}
	h := NewChatHandler(svc, arbor.NewLogger())

	rec := postJSON(h.ChatHandler, "/api/chat", `{"message":"hello","render":"html"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "hello", body["query"])
	assert.Contains(t, body["answer_html"], "<strong>now</strong>")
}

func TestChatHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		err    error
		status int
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"malformed body", http.MethodPost, "{", nil, http.StatusBadRequest},
		{"invalid request", http.MethodPost, `{"question":""}`, interfaces.ErrInvalidRequest, http.StatusBadRequest},
		{"generation failed", http.MethodPost, `{"question":"q"}`, &interfaces.GenerationError{Stage: interfaces.StageFallback, Cause: errors.New("down")}, http.StatusBadGateway},
		{"other error", http.MethodPost, `{"question":"q"}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockChatService{
				askFunc: func(ctx context.Context, req *models.AskRequest) (*models.AnswerResult, error) {
					return nil, tt.err
				},
			}
			h := NewChatHandler(svc, arbor.NewLogger())

			req := httptest.NewRequest(tt.method, "/api/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ChatHandler(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, false, decodeBody(t, rec)["success"])
		})
	}
}

func TestStreamHandler_WritesOneFramePerEvent(t *testing.T) {
	svc := &mockChatService{
		events: []models.StreamEvent{
			{Type: models.StreamEventSources, Sources: []models.Citation{{Title: "A"}}},
			{Type: models.StreamEventToken, Token: "Hello "},
			{Type: models.StreamEventToken, Token: "world"},
			{Type: models.StreamEventDone, ConversationID: "c1", Sources: []models.Citation{{Title: "A"}}},
		},
	}
	h := NewChatHandler(svc, arbor.NewLogger())

	rec := postJSON(h.StreamHandler, "/api/chat/stream", `{"question":"hi","conversation_id":"c1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "hi", svc.lastStream.Question)

	var types []string
	var text strings.Builder
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		require.True(t, strings.HasPrefix(line, "data: "), line)

		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame))
		types = append(types, frame.Type)
		if frame.Type == "token" {
			var token string
			require.NoError(t, json.Unmarshal(frame.Data, &token))
			text.WriteString(token)
		}
	}

	assert.Equal(t, []string{"sources", "token", "token", "done"}, types)
	assert.Equal(t, "Hello world", text.String())
}

func TestStreamHandler_MalformedBody(t *testing.T) {
	h := NewChatHandler(&mockChatService{}, arbor.NewLogger())
	rec := postJSON(h.StreamHandler, "/api/chat/stream", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearConversationHandler(t *testing.T) {
	svc := &mockChatService{}
	h := NewChatHandler(svc, arbor.NewLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("/api/conversation/{id}", h.ClearConversationHandler)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/conversation/abc", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
	assert.Equal(t, []string{"abc"}, svc.cleared)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversation/abc", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebSocketHandler_StreamsEvents(t *testing.T) {
	svc := &mockChatService{
		events: []models.StreamEvent{
			{Type: models.StreamEventToken, Token: "Hi"},
			{Type: models.StreamEventDone, ConversationID: "c9"},
		},
	}
	h := NewWebSocketHandler(svc, "*", arbor.NewLogger())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleChat))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"question": "hello", "conversation_id": "c9"}))

	var types []string
	for len(types) < 2 {
		var frame map[string]interface{}
		require.NoError(t, conn.ReadJSON(&frame))
		types = append(types, frame["type"].(string))
	}
	assert.Equal(t, []string{"token", "done"}, types)
}

func TestWebSocketHandler_DisconnectCancelsGeneration(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	svc := &mockChatService{
		streamFunc: func(ctx context.Context, req *models.AskRequest) iter.Seq[models.StreamEvent] {
			return func(yield func(models.StreamEvent) bool) {
				close(started)
				<-ctx.Done()
				close(cancelled)
			}
		},
	}
	h := NewWebSocketHandler(svc, "*", arbor.NewLogger())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleChat))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(map[string]string{"question": "slow question"}))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("generation never started")
	}

	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("generation was not cancelled after the client disconnected")
	}

	assert.Eventually(t, func() bool { return h.ActiveClients() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestDocumentHandler_Search(t *testing.T) {
	ranker := &stubRanker{results: []models.RankedResult{
		{Document: &models.Document{ID: "d1", Title: "Trash Pickup"}, Score: 151},
	}}
	h := NewDocumentHandler(&stubStorage{}, ranker, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=trash&limit=500", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "trash", body["query"])
	assert.Equal(t, float64(1), body["count"])
	assert.Equal(t, 100, ranker.limit, "limit is clamped")

	rec = httptest.NewRecorder()
	h.SearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=%20", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentHandler_SearchNoResults(t *testing.T) {
	h := NewDocumentHandler(&stubStorage{}, &stubRanker{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.SearchHandler(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=nothing", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestDocumentHandler_EventsAndStats(t *testing.T) {
	storage := &stubStorage{docs: []*models.Document{{ID: "e1", Title: "Lilac Festival", Category: "events"}}}
	h := NewDocumentHandler(storage, &stubRanker{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.EventsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["count"])
	assert.Equal(t, "events", storage.category)
	assert.Equal(t, 20, storage.limit)

	rec = httptest.NewRecorder()
	h.StatsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, map[string]interface{}{"events": float64(1)}, body["by_category"])
}

func TestAPIHandler_Health(t *testing.T) {
	tests := []struct {
		name   string
		svc    *mockChatService
		code   int
		status string
	}{
		{"healthy", &mockChatService{stats: &models.DocumentStats{Total: 42}}, http.StatusOK, "healthy"},
		{"backend down", &mockChatService{healthErr: errors.New("connection refused")}, http.StatusOK, "degraded"},
		{"store down", &mockChatService{statsErr: errors.New("closed")}, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAPIHandler(tt.svc, "ollama/llama3.2:latest", arbor.NewLogger())
			rec := httptest.NewRecorder()
			h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.status, decodeBody(t, rec)["status"])
		})
	}
}

func TestAPIHandler_RootAndVersion(t *testing.T) {
	h := NewAPIHandler(&mockChatService{}, "ollama/x", arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.RootHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decodeBody(t, rec)["status"])

	rec = httptest.NewRecorder()
	h.RootHandler(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Equal(t, "rocbot", decodeBody(t, rec)["name"])
}
