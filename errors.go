package tailor

import "github.com/AGS-Lab/tailor/internal/errors"

// Re-export error types from internal package

// ExecutableNotFoundError indicates no interpreter candidate responded to the probe.
type ExecutableNotFoundError = errors.ExecutableNotFoundError

// SpawnError indicates the worker process could not be created.
type SpawnError = errors.SpawnError

// ConnectionError indicates the WebSocket to the worker could not be opened.
type ConnectionError = errors.ConnectionError

// SendError indicates the request frame could not be written.
type SendError = errors.SendError

// ProtocolError indicates a frame from the worker was not valid JSON.
type ProtocolError = errors.ProtocolError

// InvalidParamsError indicates call params failed the method's schema.
type InvalidParamsError = errors.InvalidParamsError

// SidecarError is the base interface for all supervisor errors.
type SidecarError = errors.SidecarError

// Re-export sentinel errors from internal package.
var (
	// ErrSessionNotFound indicates no worker is tracked for the session id.
	ErrSessionNotFound = errors.ErrSessionNotFound

	// ErrSessionExists indicates a worker is already tracked for the session id.
	ErrSessionExists = errors.ErrSessionExists

	// ErrConnectionClosed indicates the worker closed the stream before replying.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrCallTimeout indicates a call did not receive its reply in time.
	ErrCallTimeout = errors.ErrCallTimeout

	// ErrInvalidArgument indicates a required argument was empty.
	ErrInvalidArgument = errors.ErrInvalidArgument

	// ErrSupervisorClosed indicates Spawn was called after Close.
	ErrSupervisorClosed = errors.ErrSupervisorClosed

	// ErrWorkerExited indicates the worker exited before it became ready.
	ErrWorkerExited = errors.ErrWorkerExited
)
