package session

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// SocketConn adapts a gorilla connection to the registry.Conn and
// FrameSource contracts. Writes are serialized with a mutex since gorilla
// supports only one concurrent writer, and the keepalive ticker writes
// control frames concurrently with router replies.
type SocketConn struct {
	id       uuid.UUID
	ws       *websocket.Conn
	remoteIP string

	writeMu sync.Mutex
}

// Wrap creates a SocketConn around an upgraded gorilla connection.
func Wrap(ws *websocket.Conn) *SocketConn {
	return &SocketConn{
		id:       uuid.New(),
		ws:       ws,
		remoteIP: remoteIP(ws),
	}
}

func remoteIP(ws *websocket.Conn) string {
	addr := ws.RemoteAddr()
	if addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func (c *SocketConn) ID() uuid.UUID { return c.id }

func (c *SocketConn) RemoteAddr() string { return c.remoteIP }

func (c *SocketConn) WriteText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *SocketConn) Close() error {
	return c.ws.Close()
}

// NextFrame blocks until the next inbound frame arrives or the connection
// reaches a terminal state. Binary payloads are handled as raw text.
func (c *SocketConn) NextFrame() (string, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// StartKeepalive sends protocol pings every interval and expects a pong
// within timeout, closing the connection via read deadline otherwise.
// The returned stop function must be called when the connection ends.
func (c *SocketConn) StartKeepalive(interval, timeout time.Duration) (stop func()) {
	deadline := interval + timeout

	c.ws.SetReadDeadline(time.Now().Add(deadline))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(deadline))
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.writeMu.Lock()
				err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				c.writeMu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
