package protocol

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/AGS-Lab/tailor/internal/errors"
	"github.com/AGS-Lab/tailor/internal/transport"
)

// responder produces the frames a worker sends back for a request.
// Returning closed=true ends the stream after the frames are delivered.
type responder func(req Request) (frames []transport.Frame, closed bool)

// mockDialer hands out mockConns driven by respond.
type mockDialer struct {
	respond  responder
	dialErr  error
	writeErr error

	mu    sync.Mutex
	dials int
	conns []*mockConn
}

func newMockDialer(respond responder) *mockDialer {
	return &mockDialer{respond: respond}
}

func (d *mockDialer) Dial(ctx context.Context, _ string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++

	if d.dialErr != nil {
		return nil, d.dialErr
	}

	conn := &mockConn{
		respond:  d.respond,
		writeErr: d.writeErr,
		frames:   make(chan transport.Frame, 16),
	}
	d.conns = append(d.conns, conn)

	return conn, nil
}

func (d *mockDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

// mockConn delivers scripted frames.
type mockConn struct {
	respond  responder
	writeErr error
	frames   chan transport.Frame

	mu      sync.Mutex
	sent    []Request
	closed  bool
}

func (c *mockConn) Write(_ context.Context, data []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	c.mu.Lock()
	c.sent = append(c.sent, req)
	c.mu.Unlock()

	if c.respond == nil {
		return nil
	}

	frames, closed := c.respond(req)
	for _, f := range frames {
		c.frames <- f
	}

	if closed {
		close(c.frames)
	}

	return nil
}

func (c *mockConn) Read(ctx context.Context) (transport.Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return transport.Frame{}, errors.ErrConnectionClosed
		}

		return f, nil
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	return nil
}

func (c *mockConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// text builds a text frame from v.
func text(v any) transport.Frame {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return transport.Frame{Type: transport.TextFrame, Data: data}
}
