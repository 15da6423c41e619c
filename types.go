package tailor

import (
	"time"

	"github.com/AGS-Lab/tailor/internal/config"
)

// SupervisorOptions configures a Supervisor.
type SupervisorOptions = config.Options

// LineHandler receives one line of worker stdout or stderr.
type LineHandler = config.LineHandler

// SessionInfo describes a live session.
type SessionInfo struct {
	SessionID string
	VaultPath string
	Port      int
	PID       int
	StartedAt time.Time

	// Exited is true when the worker process has exited but the session has
	// not been terminated yet.
	Exited bool
}

// Defaults re-exported from the config package.
const (
	DefaultPortBase            = config.DefaultPortBase
	DefaultPortCeiling         = config.DefaultPortCeiling
	DefaultCallTimeout         = config.DefaultCallTimeout
	DefaultShutdownLockTimeout = config.DefaultShutdownLockTimeout
	DefaultWaitTimeout         = config.DefaultWaitTimeout
)
