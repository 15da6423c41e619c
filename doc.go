// Package tailor supervises sidecar worker processes for vault windows.
//
// Each vault window is a session identified by an opaque string such as a
// window label. The supervisor starts one long-lived worker process per
// session, gives it an exclusive loopback port, and talks to it with JSON-RPC
// 2.0 over a WebSocket served on that port.
//
// # Lifecycle
//
//	sup, err := tailor.New(
//	    tailor.WithLogger(slog.Default()),
//	    tailor.WithCallTimeout(10*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Close()
//
//	port, err := sup.Spawn(ctx, "window-1", "/home/me/notes")
//	...
//	_ = sup.Terminate(ctx, "window-1")
//
// Spawn allocates a port in [9000, 19000], finds a Python interpreter on PATH
// by probing each candidate with --version, and runs
//
//	<interpreter> -u -m sidecar --vault <path> --ws-port <port>
//
// in the project root (the directory above the host binary's directory).
// Worker stdout and stderr are relayed line by line to the logger and to the
// optional WithStdout and WithStderr callbacks.
//
// Terminate and ShutdownAll never fail: once a session is removed from the
// table the caller's intent is met, and kill or wait failures are only logged.
// ShutdownAll gives up, with an error log, if the session table stays locked
// longer than the shutdown lock timeout, so it is safe on abnormal exit paths.
//
// # Calls
//
// Call opens a new connection for every request, sends
//
//	{"jsonrpc": "2.0", "method": M, "params": P, "id": <ULID>}
//
// and returns the first response object whose id matches. Unrelated frames
// are discarded. Every call is bounded by the caller's context and by the
// call timeout (30s unless configured).
//
// # Error Handling
//
// The package provides typed errors for different failure scenarios:
//
//	resp, err := sup.Call(ctx, "window-1", "ping", nil)
//	switch {
//	case errors.Is(err, tailor.ErrSessionNotFound):
//	    // spawn first
//	case errors.Is(err, tailor.ErrConnectionClosed):
//	    // worker went away mid-call
//	}
//	if connErr, ok := errors.AsType[*tailor.ConnectionError](err); ok {
//	    log.Printf("worker at %s unreachable", connErr.URL)
//	}
//
// Nothing is retried automatically.
package tailor
