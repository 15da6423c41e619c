package protocol

import (
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"

	"github.com/AGS-Lab/tailor/internal/errors"
	"github.com/AGS-Lab/tailor/internal/transport"
)

func newTestCaller(t *testing.T, dialer transport.Dialer, timeout time.Duration) *Caller {
	t.Helper()

	caller, err := NewCaller(slog.Default(), dialer, timeout, nil)
	require.NoError(t, err)

	return caller
}

func TestCaller_EchoReturnsMatchingPayload(t *testing.T) {
	dialer := newMockDialer(func(req Request) ([]transport.Frame, bool) {
		return []transport.Frame{text(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "ok",
		})}, false
	})

	caller := newTestCaller(t, dialer, time.Second)

	resp, err := caller.Call(context.Background(), 9000, "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	require.Equal(t, "ok", resp["result"])
	require.Equal(t, "2.0", resp["jsonrpc"])

	conn := dialer.conns[0]
	require.Len(t, conn.sent, 1)
	require.Equal(t, conn.sent[0].ID, resp["id"])
	require.Equal(t, "echo", conn.sent[0].Method)
	require.True(t, conn.isClosed())
}

func TestCaller_DiscardsUnrelatedIDs(t *testing.T) {
	dialer := newMockDialer(func(req Request) ([]transport.Frame, bool) {
		return []transport.Frame{
			text(map[string]any{"jsonrpc": "2.0", "id": "someone-else", "result": "wrong"}),
			text(map[string]any{"jsonrpc": "2.0", "method": "event.notify", "params": map[string]any{}}),
			text([]any{"not", "an", "object"}),
			{Type: transport.BinaryFrame, Data: []byte{0xff}},
			text(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "right"}),
		}, false
	})

	resp, err := newTestCaller(t, dialer, time.Second).Call(context.Background(), 9000, "ping", nil)
	require.NoError(t, err)
	require.Equal(t, "right", resp["result"])
}

func TestCaller_ErrorResponseReturnedAsIs(t *testing.T) {
	dialer := newMockDialer(func(req Request) ([]transport.Frame, bool) {
		return []transport.Frame{text(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": float64(-32601), "message": "Method not found"},
		})}, false
	})

	resp, err := newTestCaller(t, dialer, time.Second).Call(context.Background(), 9000, "nope", nil)
	require.NoError(t, err)
	require.Equal(t, float64(-32601), resp["error"].(map[string]any)["code"])
}

func TestCaller_CloseBeforeMatch(t *testing.T) {
	dialer := newMockDialer(func(Request) ([]transport.Frame, bool) {
		return []transport.Frame{
			text(map[string]any{"jsonrpc": "2.0", "id": "unrelated", "result": "x"}),
		}, true
	})

	_, err := newTestCaller(t, dialer, time.Second).Call(context.Background(), 9000, "ping", nil)
	require.ErrorIs(t, err, errors.ErrConnectionClosed)
}

func TestCaller_MalformedJSON(t *testing.T) {
	dialer := newMockDialer(func(Request) ([]transport.Frame, bool) {
		return []transport.Frame{{Type: transport.TextFrame, Data: []byte(`{"id": `)}}, false
	})

	_, err := newTestCaller(t, dialer, time.Second).Call(context.Background(), 9000, "ping", nil)

	protoErr, ok := stderrors.AsType[*errors.ProtocolError](err)
	require.True(t, ok)
	require.Equal(t, `{"id": `, protoErr.RawData)
}

func TestCaller_DialFailure(t *testing.T) {
	dialer := newMockDialer(nil)
	dialer.dialErr = stderrors.New("connection refused")

	_, err := newTestCaller(t, dialer, time.Second).Call(context.Background(), 9123, "ping", nil)

	connErr, ok := stderrors.AsType[*errors.ConnectionError](err)
	require.True(t, ok)
	require.Equal(t, "ws://127.0.0.1:9123", connErr.URL)
}

func TestCaller_SendFailure(t *testing.T) {
	dialer := newMockDialer(nil)
	dialer.writeErr = stderrors.New("broken pipe")

	_, err := newTestCaller(t, dialer, time.Second).Call(context.Background(), 9000, "ping", nil)

	_, ok := stderrors.AsType[*errors.SendError](err)
	require.True(t, ok)
	require.True(t, dialer.conns[0].isClosed())
}

func TestCaller_Timeout(t *testing.T) {
	// Worker never answers
	dialer := newMockDialer(func(Request) ([]transport.Frame, bool) { return nil, false })

	start := time.Now()
	_, err := newTestCaller(t, dialer, 50*time.Millisecond).Call(context.Background(), 9000, "ping", nil)

	require.ErrorIs(t, err, errors.ErrCallTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestCaller_CallerCancellation(t *testing.T) {
	dialer := newMockDialer(func(Request) ([]transport.Frame, bool) { return nil, false })

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestCaller(t, dialer, 0).Call(ctx, 9000, "ping", nil)

	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, errors.ErrCallTimeout)
}

func TestCaller_FreshConnectionAndIDPerCall(t *testing.T) {
	dialer := newMockDialer(func(req Request) ([]transport.Frame, bool) {
		return []transport.Frame{text(map[string]any{"id": req.ID, "result": req.Method})}, false
	})

	caller := newTestCaller(t, dialer, time.Second)

	for range 3 {
		_, err := caller.Call(context.Background(), 9000, "ping", nil)
		require.NoError(t, err)
	}

	require.Equal(t, 3, dialer.dialCount())
	require.NotEqual(t, dialer.conns[0].sent[0].ID, dialer.conns[1].sent[0].ID)
	require.NotEqual(t, dialer.conns[1].sent[0].ID, dialer.conns[2].sent[0].ID)
}

func TestCaller_MethodSchema(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"query"},
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string"},
		},
	}

	dialer := newMockDialer(func(req Request) ([]transport.Frame, bool) {
		return []transport.Frame{text(map[string]any{"id": req.ID, "result": "found"})}, false
	})

	caller, err := NewCaller(slog.Default(), dialer, time.Second, map[string]*jsonschema.Schema{"search": schema})
	require.NoError(t, err)

	_, err = caller.Call(context.Background(), 9000, "search", map[string]any{"limit": 3})

	paramsErr, ok := stderrors.AsType[*errors.InvalidParamsError](err)
	require.True(t, ok)
	require.Equal(t, "search", paramsErr.Method)
	require.Zero(t, dialer.dialCount(), "invalid params must not reach the worker")

	resp, err := caller.Call(context.Background(), 9000, "search", map[string]any{"query": "notes"})
	require.NoError(t, err)
	require.Equal(t, "found", resp["result"])

	// Methods without a schema are not validated
	_, err = caller.Call(context.Background(), 9000, "other", 42)
	require.NoError(t, err)
}
