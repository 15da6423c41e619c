package interpreter

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/AGS-Lab/tailor/internal/errors"
)

// ProbeTimeout bounds each candidate's version probe.
const ProbeTimeout = 2 * time.Second

// Config holds configuration for interpreter resolution.
type Config struct {
	// Path is an explicit interpreter path that skips the candidate search.
	Path string

	// Candidates are executable names tried in order.
	Candidates []string

	// ProbeArgs are passed to each candidate; a zero exit status means usable.
	ProbeArgs []string

	// Env is the environment the probe runs with. If nil, the host environment is used.
	Env []string

	// Logger is an optional logger for resolution operations.
	// If nil, a no-op logger is used.
	Logger *slog.Logger
}

// Resolver locates the worker interpreter.
type Resolver interface {
	// Resolve returns the path of the first usable interpreter.
	Resolve(ctx context.Context) (string, error)
}

// resolver implements the Resolver interface.
type resolver struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that resolver implements Resolver.
var _ Resolver = (*resolver)(nil)

// NewResolver creates a new interpreter resolver with the given configuration.
func NewResolver(cfg *Config) Resolver {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &resolver{
		cfg: cfg,
		log: log.With("component", "interpreter"),
	}
}

// Resolve returns the path of the first usable interpreter.
func (r *resolver) Resolve(ctx context.Context) (string, error) {
	if r.cfg.Path != "" {
		r.log.Debug("Using explicit interpreter path", "path", r.cfg.Path)

		if _, err := os.Stat(r.cfg.Path); err == nil {
			return r.cfg.Path, nil
		}

		return "", &errors.ExecutableNotFoundError{Candidates: []string{r.cfg.Path}}
	}

	for _, candidate := range r.cfg.Candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			r.log.Debug("Interpreter candidate not on PATH", "candidate", candidate)

			continue
		}

		if err := r.probe(ctx, path); err != nil {
			r.log.Debug("Interpreter probe failed", "candidate", candidate, "error", err)

			continue
		}

		r.log.Debug("Resolved interpreter", "candidate", candidate, "path", path)

		return path, nil
	}

	r.log.Warn("No usable interpreter found", "candidates", r.cfg.Candidates)

	return "", &errors.ExecutableNotFoundError{Candidates: append([]string(nil), r.cfg.Candidates...)}
}

// probe runs path with the probe args and reports a non-zero exit as an error.
func (r *resolver) probe(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	//nolint:gosec // G204: probing a configured interpreter is the point
	cmd := exec.CommandContext(ctx, path, r.cfg.ProbeArgs...)
	cmd.Env = r.cfg.Env

	return cmd.Run()
}
