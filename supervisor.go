package tailor

import (
	"context"
)

// Supervisor owns the sidecar worker of every session.
//
// Each session gets one worker process bound to a port from the supervisor's
// allocator. Calls open a fresh WebSocket to the session's worker, send one
// JSON-RPC request and wait for the reply with the same id.
//
// Example usage:
//
//	sup, err := tailor.New(tailor.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Close()
//
//	port, err := sup.Spawn(ctx, "main", "/home/me/vault")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := sup.WaitReady(ctx, "main"); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := sup.Call(ctx, "main", "ping", map[string]any{})
type Supervisor interface {
	// Spawn starts a worker for sessionID operating on vaultPath and returns
	// its port. Returns ExecutableNotFoundError if no interpreter responds,
	// SpawnError if the process cannot be created and ErrSessionExists if the
	// session is live and replacement is not enabled.
	Spawn(ctx context.Context, sessionID, vaultPath string) (int, error)

	// Terminate stops tracking sessionID, kills its worker and waits for it
	// to exit. Kill and wait failures are logged, not returned. Terminating
	// an unknown session is a no-op.
	Terminate(ctx context.Context, sessionID string) error

	// ShutdownAll terminates every session. If the session table cannot be
	// acquired within the shutdown lock timeout, cleanup is skipped and logged
	// rather than blocking the caller.
	ShutdownAll()

	// Port returns the port of sessionID's worker.
	Port(sessionID string) (int, bool)

	// Sessions returns a snapshot of live sessions sorted by id.
	Sessions() []SessionInfo

	// WaitReady blocks until sessionID's worker accepts TCP connections,
	// the worker exits, or ctx is done.
	WaitReady(ctx context.Context, sessionID string) error

	// Call sends a JSON-RPC request to sessionID's worker and returns the
	// response object carrying the same id, unmodified.
	Call(ctx context.Context, sessionID, method string, params any) (map[string]any, error)

	// Close shuts down all sessions and rejects further spawns.
	// Safe to call multiple times.
	Close() error
}

// New creates a supervisor.
//
// Returns an error wrapping ErrInvalidArgument if the port range is outside
// 1-65535 or inverted, and an error if the project root cannot be determined
// or a method schema is invalid.
func New(opts ...Option) (Supervisor, error) {
	sup, err := newSupervisorImpl(applyOptions(opts))
	if err != nil {
		return nil, err
	}

	return sup, nil
}
