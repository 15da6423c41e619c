// Package ports hands out loopback TCP ports for worker processes.
//
// The Allocator keeps a cursor that advances through a fixed range and wraps
// back to the base once it passes the ceiling. The cursor is only a hint:
// every candidate is verified by binding a listener on 127.0.0.1 and closing
// it again, because ports may be held by processes outside the supervisor.
// Ports handed out stay reserved until Release is called, so a port owned by
// a live session is never reissued even before its worker binds it.
//
// The availability check is instantaneous. Callers must start the process that
// binds the port promptly after Allocate returns.
package ports
