package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is a single bidirectional connection to the conversation gateway
type Conn interface {
	Send(data []byte) error
	Read() ([]byte, error)
	Close() error
}

// Dialer opens transport connections. Abstracted so tests can substitute an
// in-memory transport for the real websocket.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// wsConn wraps a gorilla websocket connection. Writes are serialized; gorilla
// allows at most one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// WebSocketDialer dials real websocket connections
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
}

// Dial establishes a websocket connection to the given URL
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	return &wsConn{conn: conn}, nil
}

// sessionURL builds the websocket address for a session from the gateway's
// HTTP base URL.
func sessionURL(baseURL, sessionID string) string {
	return fmt.Sprintf("%s/ws/chat/%s", toWebSocketBase(baseURL), sessionID)
}

// toWebSocketBase converts an http(s) base URL to its ws(s) equivalent
func toWebSocketBase(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
