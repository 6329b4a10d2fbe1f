package heartbeat

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketDialer opens liveness channels as websocket connections to the
// agent's own /api/v1/alive endpoint.
type WebSocketDialer struct {
	URL          string // e.g. ws://127.0.0.1:50998/api/v1/alive
	WriteTimeout time.Duration
	Dialer       *websocket.Dialer
}

// NewWebSocketDialer returns a dialer for the given alive endpoint.
func NewWebSocketDialer(endpoint string) *WebSocketDialer {
	return &WebSocketDialer{
		URL:          endpoint,
		WriteTimeout: 5 * time.Second,
		Dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

// AliveURL converts the agent listen address into the alive endpoint URL.
func AliveURL(listen string) string {
	return (&url.URL{Scheme: "ws", Host: listen, Path: "/api/v1/alive"}).String()
}

// Open dials the endpoint with ?name=<name> and starts a reader that
// reports the disconnect.
func (d *WebSocketDialer) Open(ctx context.Context, name string, onDisconnect func(err error)) (Channel, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("parse alive url: %w", err)
	}
	q := u.Query()
	q.Set("name", name)
	u.RawQuery = q.Encode()

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: HTTP %d: %w", u.Redacted(), resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	ch := &wsChannel{name: name, conn: conn, writeTimeout: d.WriteTimeout}
	go ch.readLoop(onDisconnect)
	return ch, nil
}

type wsChannel struct {
	name         string
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	closed  atomic.Bool
}

func (c *wsChannel) Name() string { return c.name }

func (c *wsChannel) Send(ctx context.Context, msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *wsChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// readLoop drains the connection until it fails. Nothing the host sends is
// interpreted; the loop only exists to observe the disconnect.
func (c *wsChannel) readLoop(onDisconnect func(err error)) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			local := c.closed.Swap(true)
			c.conn.Close()
			if local {
				err = nil
			}
			if onDisconnect != nil {
				onDisconnect(disconnectCause(err))
			}
			return
		}
	}
}

// disconnectCause maps an orderly close to nil.
func disconnectCause(err error) error {
	if err == nil {
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}
