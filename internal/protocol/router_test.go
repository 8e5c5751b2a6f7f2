package protocol

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     uuid.UUID
	remote string
}

func (c *fakeConn) ID() uuid.UUID          { return c.id }
func (c *fakeConn) RemoteAddr() string     { return c.remote }
func (c *fakeConn) WriteText([]byte) error { return nil }
func (c *fakeConn) Close() error           { return nil }

type fakeFanout struct {
	sent []Envelope
}

func (f *fakeFanout) Broadcast(env Envelope) {
	f.sent = append(f.sent, env)
}

type fakeCounter struct {
	count int
}

func (f *fakeCounter) Count() int { return f.count }

func newTestRouter(count int) (*Router, *fakeFanout, *fakeConn) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	fanout := &fakeFanout{}
	router := NewRouter(clock, fanout, &fakeCounter{count: count})
	sender := &fakeConn{id: uuid.New(), remote: "192.0.2.10"}
	return router, fanout, sender
}

const wantTimestamp = "2025-01-02T03:04:05Z"

func TestRouter_PlainTextGetsTextEcho(t *testing.T) {
	router, _, sender := newTestRouter(0)

	reply := router.Route(sender, "hello there")

	echo, ok := reply.(TextEcho)
	require.True(t, ok, "expected TextEcho, got %T", reply)
	assert.Equal(t, "text_echo", echo.Type)
	assert.Equal(t, "hello there", echo.OriginalMessage)
	assert.Equal(t, 11, echo.MessageLength)
	assert.Equal(t, wantTimestamp, echo.Timestamp)
}

func TestRouter_MessageLengthCountsCharacters(t *testing.T) {
	router, _, sender := newTestRouter(0)

	// 6 characters, 10 bytes
	reply := router.Route(sender, "héllö✓")

	echo := reply.(TextEcho)
	assert.Equal(t, 6, echo.MessageLength)
}

func TestRouter_NonObjectJSONGetsTextEcho(t *testing.T) {
	router, _, sender := newTestRouter(0)

	// Valid JSON that is not an object is treated as plain text,
	// echoed from the raw string rather than the parsed value.
	for _, raw := range []string{"42", `"quoted"`, "true", "null", `[1,2,3]`} {
		reply := router.Route(sender, raw)
		echo, ok := reply.(TextEcho)
		require.True(t, ok, "raw %q: expected TextEcho, got %T", raw, reply)
		assert.Equal(t, raw, echo.OriginalMessage)
	}
}

func TestRouter_PingGetsPong(t *testing.T) {
	router, _, sender := newTestRouter(0)

	reply := router.Route(sender, `{"type":"ping","x":1}`)

	pong, ok := reply.(Pong)
	require.True(t, ok, "expected Pong, got %T", reply)
	assert.Equal(t, "pong", pong.Type)
	assert.Equal(t, wantTimestamp, pong.Timestamp)
	assert.Equal(t, map[string]any{"type": "ping", "x": float64(1)}, pong.OriginalData)
}

func TestRouter_EchoGetsEchoResponse(t *testing.T) {
	router, _, sender := newTestRouter(0)

	reply := router.Route(sender, `{"type":"echo","x":1}`)

	echo, ok := reply.(EchoResponse)
	require.True(t, ok, "expected EchoResponse, got %T", reply)
	assert.Equal(t, "echo_response", echo.Type)
	assert.Equal(t, map[string]any{"type": "echo", "x": float64(1)}, echo.EchoedData)
}

func TestRouter_UnknownTypeGetsError(t *testing.T) {
	router, _, sender := newTestRouter(0)

	reply := router.Route(sender, `{"type":"frobnicate"}`)

	errEnv, ok := reply.(Error)
	require.True(t, ok, "expected Error, got %T", reply)
	assert.Equal(t, "error", errEnv.Type)
	assert.Contains(t, errEnv.Message, "Unknown message type: frobnicate")
	assert.Equal(t, map[string]any{"type": "frobnicate"}, errEnv.ReceivedData)
}

func TestRouter_MissingTypeDefaultsToUnknown(t *testing.T) {
	router, _, sender := newTestRouter(0)

	reply := router.Route(sender, `{"x":1}`)

	errEnv, ok := reply.(Error)
	require.True(t, ok, "expected Error, got %T", reply)
	assert.Contains(t, errEnv.Message, "Unknown message type: unknown")
}

func TestRouter_NonStringTypeGetsError(t *testing.T) {
	router, _, sender := newTestRouter(0)

	reply := router.Route(sender, `{"type":5}`)

	errEnv, ok := reply.(Error)
	require.True(t, ok, "expected Error, got %T", reply)
	assert.Contains(t, errEnv.Message, "Unknown message type: 5")
}

func TestRouter_BroadcastFansOutAndConfirms(t *testing.T) {
	router, fanout, sender := newTestRouter(3)

	reply := router.Route(sender, `{"type":"broadcast","message":"hi all"}`)

	require.Len(t, fanout.sent, 1)
	env, ok := fanout.sent[0].(Broadcast)
	require.True(t, ok, "expected Broadcast, got %T", fanout.sent[0])
	assert.Equal(t, "broadcast", env.Type)
	assert.Equal(t, "hi all", env.Message)
	assert.Equal(t, "192.0.2.10", env.Sender)
	assert.Equal(t, wantTimestamp, env.Timestamp)

	conf, ok := reply.(BroadcastConfirmation)
	require.True(t, ok, "expected BroadcastConfirmation, got %T", reply)
	assert.Equal(t, "broadcast_confirmation", conf.Type)
	assert.Equal(t, 3, conf.Recipients)
}

func TestRouter_BroadcastMissingMessageDefaultsToEmpty(t *testing.T) {
	router, fanout, sender := newTestRouter(1)

	router.Route(sender, `{"type":"broadcast"}`)

	require.Len(t, fanout.sent, 1)
	env := fanout.sent[0].(Broadcast)
	assert.Equal(t, "", env.Message)
}
