package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytakahashi/todo-api/internal/config"
	"github.com/ytakahashi/todo-api/internal/models"
	"github.com/ytakahashi/todo-api/internal/services"
)

func newTestServer(t *testing.T, cfg config.Config, bot *nopReplier) *Server {
	t.Helper()
	deps := Deps{
		Store:  services.NewMemoryStore(),
		Logger: log.New(io.Discard),
	}
	if bot != nil {
		deps.Bot = bot
	}
	return New(cfg, deps)
}

type nopReplier struct{}

func (nopReplier) ReplyMessage(*messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error) {
	return &messaging_api.ReplyMessageResponse{}, nil
}

func call(s *Server, method, target, body, userID string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != "" {
		req.Header.Set("x-user-id", userID)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeTodos(t *testing.T, rec *httptest.ResponseRecorder) []models.Todo {
	t.Helper()
	var todos []models.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todos))
	return todos
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) models.Todo {
	t.Helper()
	var todo models.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todo))
	return todo
}

func TestServer_CreateThenList(t *testing.T) {
	s := newTestServer(t, config.Default(), nil)

	rec := call(s, http.MethodPost, "/api/todos", `{"title":"Buy milk"}`, "u1")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeTodo(t, rec)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)
	assert.False(t, created.CreatedAt.IsZero())

	rec = call(s, http.MethodGet, "/api/todos", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	todos := decodeTodos(t, rec)
	require.Len(t, todos, 1)
	assert.Equal(t, created.ID, todos[0].ID)
}

func TestServer_SearchFilters(t *testing.T) {
	s := newTestServer(t, config.Default(), nil)
	call(s, http.MethodPost, "/api/todos", `{"title":"Buy milk"}`, "u1")
	call(s, http.MethodPost, "/api/todos", `{"title":"Walk dog"}`, "u1")

	rec := call(s, http.MethodGet, "/api/todos?search=dog", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	todos := decodeTodos(t, rec)
	require.Len(t, todos, 1)
	assert.Equal(t, "Walk dog", todos[0].Title)
}

func TestServer_ToggleTwice(t *testing.T) {
	s := newTestServer(t, config.Default(), nil)
	call(s, http.MethodPost, "/api/todos", `{"title":"Task"}`, "u1")

	rec := call(s, http.MethodPatch, "/api/todos/1", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeTodo(t, rec).Completed)

	rec = call(s, http.MethodPatch, "/api/todos/1", "", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeTodo(t, rec).Completed)
}

func TestServer_ToggleMissingOnEmptyStore(t *testing.T) {
	s := newTestServer(t, config.Default(), nil)

	rec := call(s, http.MethodPatch, "/api/todos/999", "", "u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(s, http.MethodGet, "/api/todos", "", "u1")
	assert.Empty(t, decodeTodos(t, rec))
}

func TestServer_IdentityHeader(t *testing.T) {
	s := newTestServer(t, config.Default(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	req.Header.Set("x-user-id", "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(s, http.MethodGet, "/api/todos", "", "u1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, config.Default(), nil)

	rec := call(s, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_RequestID(t *testing.T) {
	s := newTestServer(t, config.Default(), nil)

	rec := call(s, http.MethodGet, "/health", "", "")
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

func TestServer_CORSPreflight(t *testing.T) {
	cfg := config.Default()
	cfg.CORSOrigins = []string{"http://localhost:3000"}
	s := newTestServer(t, cfg, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/todos", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPatch)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "x-user-id")
}

func TestServer_CustomPrefix(t *testing.T) {
	cfg := config.Default()
	cfg.Prefix = "/v1"
	s := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusOK, call(s, http.MethodGet, "/v1/todos", "", "u1").Code)
	assert.Equal(t, http.StatusNotFound, call(s, http.MethodGet, "/api/todos", "", "u1").Code)
}

func TestServer_WebhookMountedOnlyWithBot(t *testing.T) {
	cfg := config.Default()
	cfg.LineChannelSecret = "secret"
	cfg.LineChannelToken = "token"

	without := newTestServer(t, cfg, nil)
	assert.Equal(t, http.StatusNotFound, call(without, http.MethodPost, "/webhook", `{}`, "").Code)

	with := newTestServer(t, cfg, &nopReplier{})
	// Unsigned requests are rejected, which proves the route exists.
	assert.Equal(t, http.StatusBadRequest, call(with, http.MethodPost, "/webhook", `{"events":[]}`, "").Code)
}

func TestServer_RunAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 0
	cfg.ShutdownTimeout = time.Second
	s := newTestServer(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.echo.ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)

	addr, ok := s.echo.ListenerAddr().(*net.TCPAddr)
	require.True(t, ok)
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", addr.Port))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
