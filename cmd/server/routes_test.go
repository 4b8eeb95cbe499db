package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/gameclock/internal/auth"
	"github.com/tecu23/gameclock/pkg/config"
	"github.com/tecu23/gameclock/pkg/events"
	"github.com/tecu23/gameclock/pkg/manager"
	"github.com/tecu23/gameclock/pkg/messages"
	"github.com/tecu23/gameclock/pkg/repository"
	"github.com/tecu23/gameclock/pkg/server"
)

func newTestApp(t *testing.T) *application {
	t.Helper()

	logger := zap.NewNop()
	publisher := events.NewPublisher(logger)
	gm := manager.NewManager(manager.Config{}, repository.NewInMemoryRepository(logger), publisher, logger)
	hub := server.NewHub(gm, publisher, logger)
	go hub.Run()

	t.Cleanup(func() {
		hub.Shutdown()
		gm.Close()
	})

	return &application{
		Auth:      auth.NewAPIKeyAuth([]string{"secret"}),
		Logger:    logger,
		Config:    &config.Config{Port: "0"},
		Publisher: publisher,
		Manager:   gm,
		Hub:       hub,
		Upgrader:  newUpgrader(""),
		StartTime: time.Now(),
	}
}

func TestHealthIsUnauthenticated(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestWebSocketRequiresAPIKey(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("X-Api-Key", "wrong")
	rec = httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "APIKey", rec.Header().Get("WWW-Authenticate"))
}

func TestWebSocketConnects(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)

	header := http.Header{}
	header.Set("X-Api-Key", "secret")
	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg messages.OutboundMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, messages.EventConnected, msg.Event)
}

func TestUpgraderChecksOrigin(t *testing.T) {
	upgrader := newUpgrader("https://clock.example")

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://clock.example")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, upgrader.CheckOrigin(req))
}

func TestWebSocketAcceptsQueryAPIKey(t *testing.T) {
	app := newTestApp(t)
	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?api_key=secret", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg messages.OutboundMessage
	require.NoError(t, ws.ReadJSON(&msg))
	assert.Equal(t, messages.EventConnected, msg.Event)
}
