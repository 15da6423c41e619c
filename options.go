package tailor

import (
	"log/slog"
	"maps"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/AGS-Lab/tailor/internal/config"
)

// Option configures SupervisorOptions using the functional options pattern.
type Option func(*SupervisorOptions)

// applyOptions applies functional options on top of the defaults.
func applyOptions(opts []Option) *SupervisorOptions {
	options := config.New()
	for _, opt := range opts {
		opt(options)
	}

	options.Normalize()

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *SupervisorOptions) {
		o.Logger = logger
	}
}

// WithPortRange sets the inclusive range the port allocator scans.
func WithPortRange(base, ceiling int) Option {
	return func(o *SupervisorOptions) {
		o.PortBase = base
		o.PortCeiling = ceiling
	}
}

// ===== Worker Process =====

// WithInterpreters sets the executable names probed on PATH, in order.
func WithInterpreters(names ...string) Option {
	return func(o *SupervisorOptions) {
		o.Interpreters = names
	}
}

// WithInterpreterPath sets an explicit interpreter path, skipping the PATH search.
func WithInterpreterPath(path string) Option {
	return func(o *SupervisorOptions) {
		o.InterpreterPath = path
	}
}

// WithProbeArgs sets the arguments used to check that a candidate runs.
func WithProbeArgs(args ...string) Option {
	return func(o *SupervisorOptions) {
		o.ProbeArgs = args
	}
}

// WithModuleArgs sets the arguments placed before --vault and --ws-port.
// The default runs the sidecar package unbuffered: -u -m sidecar.
func WithModuleArgs(args ...string) Option {
	return func(o *SupervisorOptions) {
		o.ModuleArgs = append([]string{}, args...)
	}
}

// WithProjectRoot sets the working directory of every worker.
func WithProjectRoot(dir string) Option {
	return func(o *SupervisorOptions) {
		o.ProjectRoot = dir
	}
}

// WithEnv provides additional environment variables for worker processes.
func WithEnv(env map[string]string) Option {
	return func(o *SupervisorOptions) {
		if o.Env == nil {
			o.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Env, env)
	}
}

// WithStdout sets a callback that receives worker stdout line by line.
func WithStdout(handler LineHandler) Option {
	return func(o *SupervisorOptions) {
		o.Stdout = handler
	}
}

// WithStderr sets a callback that receives worker stderr line by line.
func WithStderr(handler LineHandler) Option {
	return func(o *SupervisorOptions) {
		o.Stderr = handler
	}
}

// WithReplaceExisting makes Spawn terminate a live session with the same id
// instead of failing with ErrSessionExists.
func WithReplaceExisting(replace bool) Option {
	return func(o *SupervisorOptions) {
		o.ReplaceExisting = replace
	}
}

// ===== Timeouts =====

// WithCallTimeout bounds every Call. Zero disables the default bound.
func WithCallTimeout(timeout time.Duration) Option {
	return func(o *SupervisorOptions) {
		o.CallTimeout = timeout
	}
}

// WithShutdownLockTimeout bounds how long ShutdownAll waits for the session table.
func WithShutdownLockTimeout(timeout time.Duration) Option {
	return func(o *SupervisorOptions) {
		o.ShutdownLockTimeout = timeout
	}
}

// WithWaitTimeout bounds how long termination waits for a killed worker to exit.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(o *SupervisorOptions) {
		o.WaitTimeout = timeout
	}
}

// ===== Protocol =====

// WithMethodSchema validates params of method against schema before sending.
func WithMethodSchema(method string, schema *jsonschema.Schema) Option {
	return func(o *SupervisorOptions) {
		if o.MethodSchemas == nil {
			o.MethodSchemas = make(map[string]*jsonschema.Schema)
		}

		o.MethodSchemas[method] = schema
	}
}
