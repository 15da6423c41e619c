package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/AGS-Lab/tailor/internal/errors"
	"github.com/AGS-Lab/tailor/internal/transport"
)

// Caller issues correlated calls to workers.
type Caller struct {
	log     *slog.Logger
	dialer  transport.Dialer
	timeout time.Duration
	schemas map[string]*jsonschema.Resolved
}

// NewCaller creates a caller. A positive timeout bounds every call on top of
// the caller's context. Schemas are resolved up front; an invalid schema is
// reported here rather than on first use.
func NewCaller(
	log *slog.Logger,
	dialer transport.Dialer,
	timeout time.Duration,
	schemas map[string]*jsonschema.Schema,
) (*Caller, error) {
	resolved := make(map[string]*jsonschema.Resolved, len(schemas))

	for method, schema := range schemas {
		rs, err := schema.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("resolve params schema for %q: %w", method, err)
		}

		resolved[method] = rs
	}

	return &Caller{
		log:     log.With("component", "protocol"),
		dialer:  dialer,
		timeout: timeout,
		schemas: resolved,
	}, nil
}

// Call sends method with params to the worker on port and returns the first
// response whose id matches the request.
func (c *Caller) Call(ctx context.Context, port int, method string, params any) (map[string]any, error) {
	if err := c.validate(method, params); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeoutCause(ctx, c.timeout, errors.ErrCallTimeout)
		defer cancel()
	}

	req := NewRequest(method, params)
	log := c.log.With("request_id", req.ID, "method", method, "port", port)

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := transport.URL(port)

	conn, err := c.dialer.Dial(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.contextError(ctx)
		}

		log.Debug("Failed to connect to sidecar", "error", err)

		return nil, &errors.ConnectionError{URL: url, Err: err}
	}

	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug("Failed to close sidecar connection", "error", err)
		}
	}()

	if err := conn.Write(ctx, data); err != nil {
		if ctx.Err() != nil {
			return nil, c.contextError(ctx)
		}

		log.Debug("Failed to send request", "error", err)

		return nil, &errors.SendError{Err: err}
	}

	log.Debug("Request sent, waiting for response")

	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.contextError(ctx)
			}

			log.Debug("Stream ended before response", "error", err)

			if stderrors.Is(err, errors.ErrConnectionClosed) {
				return nil, err
			}

			return nil, fmt.Errorf("%w: %w", errors.ErrConnectionClosed, err)
		}

		if frame.Type != transport.TextFrame {
			continue
		}

		var value any
		if err := json.Unmarshal(frame.Data, &value); err != nil {
			log.Warn("Malformed response frame", "error", err)

			return nil, &errors.ProtocolError{RawData: string(frame.Data), Err: err}
		}

		msg, ok := value.(map[string]any)
		if !ok || !req.Matches(msg) {
			log.Debug("Discarding unrelated frame")

			continue
		}

		log.Debug("Received response")

		return msg, nil
	}
}

// validate checks params against the schema registered for method, if any.
func (c *Caller) validate(method string, params any) error {
	rs, ok := c.schemas[method]
	if !ok {
		return nil
	}

	// Validate the JSON form so structs and maps are treated alike.
	raw, err := json.Marshal(params)
	if err != nil {
		return &errors.InvalidParamsError{Method: method, Err: err}
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return &errors.InvalidParamsError{Method: method, Err: err}
	}

	if err := rs.Validate(instance); err != nil {
		return &errors.InvalidParamsError{Method: method, Err: err}
	}

	return nil
}

// contextError reports why ctx ended, distinguishing the call timeout.
func (c *Caller) contextError(ctx context.Context) error {
	if stderrors.Is(context.Cause(ctx), errors.ErrCallTimeout) {
		return fmt.Errorf("%w after %s: %w", errors.ErrCallTimeout, c.timeout, ctx.Err())
	}

	return ctx.Err()
}
