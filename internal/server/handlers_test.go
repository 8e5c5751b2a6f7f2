package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordan13p/websocket-test/internal/config"
	"github.com/jordan13p/websocket-test/internal/identity"
)

type stubCounter struct {
	mu    sync.Mutex
	count int
}

func (s *stubCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *stubCounter) set(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = n
}

// The echoprometheus middleware registers collectors on the default
// Prometheus registry, so the server is constructed once per test run.
var (
	testOnce    sync.Once
	testSrv     *Server
	testCounter = &stubCounter{}
)

func testIdentity() identity.ServiceIdentity {
	return identity.ServiceIdentity{
		InstanceID:  "abcd1234",
		Hostname:    "test-host",
		ContainerIP: "10.1.2.3",
		ServiceName: "websocket-test-service",
		Environment: "local",
		DisplayName: "websocket-test-service-test-host",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	testOnce.Do(func() {
		cfg := &config.Config{
			AppEnv:    "test",
			HTTPPort:  "8080",
			WSPort:    "8765",
			LogLevel:  "error",
			LogFormat: "text",
		}
		clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
		testSrv = NewServer(cfg, testCounter, testIdentity(), clock)
	})
	return testSrv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	testCounter.set(3)

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, "healthy", payload["status"])
		assert.Equal(t, "websocket-test-service", payload["service"])
		assert.Equal(t, "1.0.0", payload["version"])
		assert.Equal(t, float64(3), payload["active_websocket_connections"])
		assert.Equal(t, "2025-01-02T03:04:05Z", payload["timestamp"])

		id, ok := payload["service_identity"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "abcd1234", id["instance_id"])
		assert.Equal(t, "websocket-test-service-test-host", id["display_name"])
	}
}

func TestHealthEndpoint_ReflectsLiveCount(t *testing.T) {
	srv := newTestServer(t)

	for _, want := range []int{0, 7, 2} {
		testCounter.set(want)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, float64(want), payload["active_websocket_connections"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func dialWS(t *testing.T, httpURL, path string) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(httpURL, "http") + path
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *ws.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg, &payload))
	return payload
}

func TestWebSocketUpgradePath(t *testing.T) {
	srv := newTestServer(t)
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	conn := dialWS(t, httpSrv.URL, "/ws")

	welcome := readJSON(t, conn)
	assert.Equal(t, "welcome", welcome["type"])
	assert.Contains(t, welcome["message"], "via HTTP WebSocket")

	// JSON object is echoed back parsed
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"type":"ping","x":1}`)))
	reply := readJSON(t, conn)
	assert.Equal(t, "http_echo", reply["type"])
	assert.Equal(t, map[string]any{"type": "ping", "x": float64(1)}, reply["echoed_data"])

	// This path has no routing protocol: even "ping" above came back as a
	// plain echo, and JSON scalars are echoed too
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("42")))
	reply = readJSON(t, conn)
	assert.Equal(t, "http_echo", reply["type"])
	assert.Equal(t, float64(42), reply["echoed_data"])

	// Unparsable text falls back to a bare text echo without a length field
	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("not json")))
	reply = readJSON(t, conn)
	assert.Equal(t, "text_echo", reply["type"])
	assert.Equal(t, "not json", reply["original_message"])
	assert.NotContains(t, reply, "message_length")
}
