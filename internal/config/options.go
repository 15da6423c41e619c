// Package config provides configuration types for the sidecar supervisor.
package config

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/AGS-Lab/tailor/internal/errors"
)

const (
	// DefaultPortBase is the first port the allocator scans.
	DefaultPortBase = 9000

	// DefaultPortCeiling is the last port the allocator scans before wrapping.
	DefaultPortCeiling = 19000

	// DefaultCallTimeout bounds a single RPC call when the caller's context has no deadline.
	DefaultCallTimeout = 30 * time.Second

	// DefaultShutdownLockTimeout bounds how long ShutdownAll waits for the session table.
	DefaultShutdownLockTimeout = 2 * time.Second

	// MaxPort is the highest TCP port number.
	MaxPort = 65535

	// DefaultWaitTimeout bounds how long termination waits for a killed worker to exit.
	DefaultWaitTimeout = 5 * time.Second
)

// LineHandler receives one line of worker output.
type LineHandler func(sessionID string, line string)

// Options configures the behavior of the supervisor.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// PortBase and PortCeiling bound the allocator's scan range, inclusive.
	PortBase    int
	PortCeiling int

	// Interpreters is the ordered list of executable names probed on PATH.
	// If empty, DefaultInterpreters() is used.
	Interpreters []string

	// InterpreterPath is an explicit interpreter path that skips the PATH search.
	InterpreterPath string

	// ProbeArgs are passed to each candidate to check that it runs.
	// If nil, "--version" is used.
	ProbeArgs []string

	// ModuleArgs precede --vault and --ws-port on the worker command line.
	// If nil, DefaultModuleArgs is used.
	ModuleArgs []string

	// ProjectRoot is the working directory of every worker.
	// If empty, the parent of the host executable's directory is used.
	ProjectRoot string

	// Env provides additional environment variables for the worker process.
	Env map[string]string

	// Stdout and Stderr receive worker output line by line, in addition to the logger.
	Stdout LineHandler
	Stderr LineHandler

	// CallTimeout bounds each Call. Zero disables the default; the caller's
	// context still applies.
	CallTimeout time.Duration

	// ShutdownLockTimeout bounds how long ShutdownAll waits for the session table
	// before giving up on cleanup.
	ShutdownLockTimeout time.Duration

	// WaitTimeout bounds how long a terminated worker is waited on.
	WaitTimeout time.Duration

	// ReplaceExisting makes Spawn terminate a live session with the same id
	// instead of rejecting the call with ErrSessionExists.
	ReplaceExisting bool

	// MethodSchemas validates call params per method before they are sent.
	MethodSchemas map[string]*jsonschema.Schema
}

// DefaultModuleArgs runs the sidecar package unbuffered.
var DefaultModuleArgs = []string{"-u", "-m", "sidecar"}

// DefaultProbeArgs is the version probe run against interpreter candidates.
var DefaultProbeArgs = []string{"--version"}

// DefaultInterpreters returns the interpreter names probed on this platform.
func DefaultInterpreters() []string {
	if runtime.GOOS == "windows" {
		return []string{"python.exe", "python3.exe"}
	}

	return []string{"python3", "python"}
}

// New returns Options populated with defaults.
func New() *Options {
	return &Options{
		PortBase:            DefaultPortBase,
		PortCeiling:         DefaultPortCeiling,
		CallTimeout:         DefaultCallTimeout,
		ShutdownLockTimeout: DefaultShutdownLockTimeout,
		WaitTimeout:         DefaultWaitTimeout,
	}
}

// Normalize fills zero-valued fields that must never be zero.
func (o *Options) Normalize() {
	if o.PortBase == 0 {
		o.PortBase = DefaultPortBase
	}

	if o.PortCeiling == 0 {
		o.PortCeiling = max(DefaultPortCeiling, o.PortBase)
	}

	if len(o.Interpreters) == 0 {
		o.Interpreters = DefaultInterpreters()
	}

	if o.ProbeArgs == nil {
		o.ProbeArgs = DefaultProbeArgs
	}

	if o.ModuleArgs == nil {
		o.ModuleArgs = DefaultModuleArgs
	}

	if o.ShutdownLockTimeout <= 0 {
		o.ShutdownLockTimeout = DefaultShutdownLockTimeout
	}

	if o.WaitTimeout <= 0 {
		o.WaitTimeout = DefaultWaitTimeout
	}
}

// Validate rejects a port range the allocator could never satisfy.
// Call it after Normalize.
func (o *Options) Validate() error {
	if o.PortBase < 1 || o.PortCeiling > MaxPort || o.PortBase > o.PortCeiling {
		return fmt.Errorf("%w: port range %d-%d must lie within 1-%d with base <= ceiling",
			errors.ErrInvalidArgument, o.PortBase, o.PortCeiling, MaxPort)
	}

	return nil
}
