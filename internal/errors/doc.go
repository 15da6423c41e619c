// Package errors defines error types for the sidecar supervisor.
//
// This package provides structured error types for the failure scenarios of
// spawning a worker process and talking to it over its WebSocket. All error
// types support unwrapping and can be checked using errors.Is, errors.As and
// errors.AsType.
package errors
