package errors

import (
	"errors"
	"fmt"
	"strings"
)

// SidecarError is the base interface for all supervisor errors.
type SidecarError interface {
	error
	IsSidecarError() bool
}

// Compile-time verification that all error types implement SidecarError.
var (
	_ SidecarError = (*ExecutableNotFoundError)(nil)
	_ SidecarError = (*SpawnError)(nil)
	_ SidecarError = (*ConnectionError)(nil)
	_ SidecarError = (*SendError)(nil)
	_ SidecarError = (*ProtocolError)(nil)
	_ SidecarError = (*InvalidParamsError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrSessionNotFound indicates no worker is tracked for the session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists indicates a worker is already tracked for the session id.
	ErrSessionExists = errors.New("session already exists")

	// ErrConnectionClosed indicates the worker closed the stream before replying.
	ErrConnectionClosed = errors.New("connection closed without matching response")

	// ErrCallTimeout indicates a call did not receive its reply in time.
	ErrCallTimeout = errors.New("call timeout")

	// ErrInvalidArgument indicates a required argument was empty or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSupervisorClosed indicates the supervisor has been shut down.
	ErrSupervisorClosed = errors.New("supervisor closed")

	// ErrWorkerExited indicates the worker process exited before it became ready.
	ErrWorkerExited = errors.New("sidecar process exited")
)

// ExecutableNotFoundError indicates no interpreter candidate responded to the probe.
type ExecutableNotFoundError struct {
	Candidates []string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("worker executable not found, tried: %s", strings.Join(e.Candidates, ", "))
}

// IsSidecarError implements SidecarError.
func (e *ExecutableNotFoundError) IsSidecarError() bool { return true }

// SpawnError indicates the operating system refused to create the worker process.
type SpawnError struct {
	SessionID string
	Err       error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn sidecar for session %q: %v", e.SessionID, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *SpawnError) IsSidecarError() bool { return true }

// ConnectionError indicates the WebSocket to the worker could not be opened.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to sidecar at %s: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *ConnectionError) IsSidecarError() bool { return true }

// SendError indicates the request frame could not be written.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send request to sidecar: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *SendError) IsSidecarError() bool { return true }

// ProtocolError indicates a frame from the worker was not valid JSON.
// This error preserves the raw frame that failed to parse.
type ProtocolError struct {
	RawData string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("failed to parse sidecar response: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *ProtocolError) IsSidecarError() bool { return true }

// InvalidParamsError indicates call params failed the schema registered for the method.
type InvalidParamsError struct {
	Method string
	Err    error
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid params for method %q: %v", e.Method, e.Err)
}

func (e *InvalidParamsError) Unwrap() error {
	return e.Err
}

// IsSidecarError implements SidecarError.
func (e *InvalidParamsError) IsSidecarError() bool { return true }
