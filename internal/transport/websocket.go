// Package transport opens message-oriented connections to sidecar workers.
//
// Each worker serves a WebSocket on its loopback port. A Conn carries whole
// messages; framing beyond the WebSocket's own message boundaries is not used.
package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AGS-Lab/tailor/internal/errors"
)

const (
	// handshakeTimeout bounds the opening handshake when ctx has no earlier deadline.
	handshakeTimeout = 10 * time.Second

	// closeGracePeriod bounds writing the close frame on Close.
	closeGracePeriod = time.Second
)

// FrameType distinguishes data frames.
type FrameType int

const (
	// TextFrame carries UTF-8 text, one JSON document per frame.
	TextFrame FrameType = websocket.TextMessage

	// BinaryFrame carries bytes; the protocol ignores it.
	BinaryFrame FrameType = websocket.BinaryMessage
)

// Frame is one received message.
type Frame struct {
	Type FrameType
	Data []byte
}

// Conn is a connection to one worker. One goroutine may read while another writes.
type Conn interface {
	// Write sends data as a single text frame.
	Write(ctx context.Context, data []byte) error

	// Read returns the next data frame. A close frame or end of stream is
	// reported as an error wrapping ErrConnectionClosed.
	Read(ctx context.Context) (Frame, error)

	// Close sends a normal-closure frame and releases the connection.
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// URL returns the WebSocket URL of a worker listening on the loopback port.
func URL(port int) string {
	return "ws://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}

// WebSocketDialer dials workers with gorilla/websocket.
type WebSocketDialer struct {
	log    *slog.Logger
	dialer *websocket.Dialer
}

// Compile-time verification that WebSocketDialer implements Dialer.
var _ Dialer = (*WebSocketDialer)(nil)

// NewWebSocketDialer creates a dialer. Proxies are never used for loopback workers.
func NewWebSocketDialer(log *slog.Logger) *WebSocketDialer {
	return &WebSocketDialer{
		log: log.With("component", "transport"),
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial opens a WebSocket to url.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	d.log.Debug("Dialing sidecar", "url", url)

	conn, resp, err := d.dialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return &wsConn{log: d.log, conn: conn}, nil
}

// wsConn adapts *websocket.Conn to Conn.
type wsConn struct {
	log  *slog.Logger
	conn *websocket.Conn
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	// Unblock a stuck write when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetWriteDeadline(time.Now())
	})
	defer stop()

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return err
	}

	return nil
}

func (c *wsConn) Read(ctx context.Context) (Frame, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	msgType, data, err := c.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return Frame{}, ctx.Err()
		}

		if closeErr, ok := stderrors.AsType[*websocket.CloseError](err); ok {
			c.log.Debug("Sidecar closed the connection", "code", closeErr.Code, "reason", closeErr.Text)
		}

		return Frame{}, fmt.Errorf("%w: %w", errors.ErrConnectionClosed, err)
	}

	return Frame{Type: FrameType(msgType), Data: data}, nil
}

func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod)); err != nil {
		c.log.Debug("Failed to send close frame", "error", err)
	}

	return c.conn.Close()
}
