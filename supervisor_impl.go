package tailor

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AGS-Lab/tailor/internal/errors"
	"github.com/AGS-Lab/tailor/internal/interpreter"
	"github.com/AGS-Lab/tailor/internal/ports"
	"github.com/AGS-Lab/tailor/internal/protocol"
	"github.com/AGS-Lab/tailor/internal/session"
	"github.com/AGS-Lab/tailor/internal/subprocess"
	"github.com/AGS-Lab/tailor/internal/transport"
)

// readyPollInterval is how often WaitReady retries the worker's port.
const readyPollInterval = 25 * time.Millisecond

// supervisorImpl implements Supervisor.
type supervisorImpl struct {
	log         *slog.Logger
	baseLog     *slog.Logger
	options     *SupervisorOptions
	allocator   *ports.Allocator
	table       *session.Table
	resolver    interpreter.Resolver
	caller      *protocol.Caller
	env         []string
	projectRoot string
	closed      atomic.Bool
}

// Compile-time verification that supervisorImpl implements Supervisor.
var _ Supervisor = (*supervisorImpl)(nil)

func newSupervisorImpl(options *SupervisorOptions) (*supervisorImpl, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	log := loggerOrNop(options.Logger)

	root := options.ProjectRoot
	if root == "" {
		var err error

		root, err = defaultProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("determine project root: %w", err)
		}
	}

	caller, err := protocol.NewCaller(log, transport.NewWebSocketDialer(log), options.CallTimeout, options.MethodSchemas)
	if err != nil {
		return nil, err
	}

	env := subprocess.BuildEnvironment(options.Env)

	return &supervisorImpl{
		log:       log.With("component", "supervisor"),
		baseLog:   log,
		options:   options,
		allocator: ports.NewAllocator(log, options.PortBase, options.PortCeiling, nil),
		table:     session.NewTable(),
		resolver: interpreter.NewResolver(&interpreter.Config{
			Path:       options.InterpreterPath,
			Candidates: options.Interpreters,
			ProbeArgs:  options.ProbeArgs,
			Env:        env,
			Logger:     log,
		}),
		caller:      caller,
		env:         env,
		projectRoot: root,
	}, nil
}

// defaultProjectRoot returns the directory one level above the host binary's directory.
func defaultProjectRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}

	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return filepath.Dir(filepath.Dir(exe)), nil
}

// Spawn implements Supervisor.
func (s *supervisorImpl) Spawn(ctx context.Context, sessionID, vaultPath string) (int, error) {
	if sessionID == "" || vaultPath == "" {
		return 0, fmt.Errorf("%w: session id and vault path are required", errors.ErrInvalidArgument)
	}

	if s.closed.Load() {
		return 0, errors.ErrSupervisorClosed
	}

	log := s.log.With("session_id", sessionID)

	if s.table.Has(sessionID) {
		if !s.options.ReplaceExisting {
			return 0, fmt.Errorf("%w: %s", errors.ErrSessionExists, sessionID)
		}

		log.Info("Replacing live sidecar")

		_ = s.Terminate(ctx, sessionID)
	}

	port, err := s.allocator.Allocate(ctx)
	if err != nil {
		return 0, fmt.Errorf("allocate port: %w", err)
	}

	path, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.allocator.Release(port)

		return 0, err
	}

	log.Info("Spawning sidecar", "vault", vaultPath, "port", port, "interpreter", path, "project_root", s.projectRoot)

	worker, err := subprocess.Start(s.baseLog, subprocess.Spec{
		SessionID: sessionID,
		Path:      path,
		Args:      subprocess.BuildArgs(s.options.ModuleArgs, vaultPath, port),
		Dir:       s.projectRoot,
		Env:       s.env,
		Stdout:    s.options.Stdout,
		Stderr:    s.options.Stderr,
	})
	if err != nil {
		s.allocator.Release(port)

		return 0, &errors.SpawnError{SessionID: sessionID, Err: err}
	}

	rec := &session.Record{
		SessionID: sessionID,
		VaultPath: vaultPath,
		Port:      port,
		Worker:    worker,
		StartedAt: time.Now(),
	}

	if err := s.table.Insert(rec); err != nil {
		// Lost a race with a concurrent Spawn for the same id.
		log.Warn("Session claimed concurrently, discarding new sidecar", "pid", worker.PID())
		s.stop(context.WithoutCancel(ctx), rec)

		return 0, fmt.Errorf("%w: %s", err, sessionID)
	}

	// Close raced with this spawn; the drained table no longer covers rec.
	if s.closed.Load() {
		if removed, ok := s.table.Remove(sessionID); ok && removed == rec {
			s.stop(context.WithoutCancel(ctx), rec)
		}

		return 0, errors.ErrSupervisorClosed
	}

	return port, nil
}

// Terminate implements Supervisor.
func (s *supervisorImpl) Terminate(ctx context.Context, sessionID string) error {
	rec, ok := s.table.Remove(sessionID)
	if !ok {
		s.log.Debug("Terminate for unknown session ignored", "session_id", sessionID)

		return nil
	}

	s.stop(ctx, rec)

	return nil
}

// stop kills and waits on an already removed record, then frees its port.
func (s *supervisorImpl) stop(ctx context.Context, rec *session.Record) {
	log := s.log.With("session_id", rec.SessionID, "pid", rec.Worker.PID())
	log.Info("Terminating sidecar")

	if err := rec.Worker.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		log.Warn("Failed to kill sidecar process", "error", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.options.WaitTimeout)
	defer cancel()

	if err := rec.Worker.Wait(waitCtx); err != nil {
		log.Warn("Failed to wait for sidecar exit", "error", err)
	}

	s.allocator.Release(rec.Port)

	log.Info("Sidecar terminated")
}

// ShutdownAll implements Supervisor.
func (s *supervisorImpl) ShutdownAll() {
	s.log.Info("Shutting down all sidecars")

	records, ok := s.table.TryDrain(s.options.ShutdownLockTimeout)
	if !ok {
		s.log.Error("Failed to acquire session table for shutdown cleanup, skipping",
			"timeout", s.options.ShutdownLockTimeout)

		return
	}

	var g errgroup.Group

	for _, rec := range records {
		g.Go(func() error {
			s.stop(context.Background(), rec)

			return nil
		})
	}

	_ = g.Wait()

	s.log.Info("All sidecars shut down", "count", len(records))
}

// Port implements Supervisor.
func (s *supervisorImpl) Port(sessionID string) (int, bool) {
	rec, ok := s.table.Get(sessionID)
	if !ok {
		return 0, false
	}

	return rec.Port, true
}

// Sessions implements Supervisor.
func (s *supervisorImpl) Sessions() []SessionInfo {
	records := s.table.List()
	out := make([]SessionInfo, 0, len(records))

	for _, rec := range records {
		out = append(out, SessionInfo{
			SessionID: rec.SessionID,
			VaultPath: rec.VaultPath,
			Port:      rec.Port,
			PID:       rec.Worker.PID(),
			StartedAt: rec.StartedAt,
			Exited:    rec.Worker.Exited(),
		})
	}

	return out
}

// WaitReady implements Supervisor.
func (s *supervisorImpl) WaitReady(ctx context.Context, sessionID string) error {
	rec, ok := s.table.Get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}

	var dialer net.Dialer

	for {
		conn, err := dialer.DialContext(ctx, "tcp", ports.Addr(rec.Port))
		if err == nil {
			_ = conn.Close()

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rec.Worker.Done():
			return fmt.Errorf("%w: session %s (exit code %d)", errors.ErrWorkerExited, sessionID, rec.Worker.ExitCode())
		case <-time.After(readyPollInterval):
		}
	}
}

// Call implements Supervisor.
func (s *supervisorImpl) Call(ctx context.Context, sessionID, method string, params any) (map[string]any, error) {
	port, ok := s.Port(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrSessionNotFound, sessionID)
	}

	return s.caller.Call(ctx, port, method, params)
}

// Close implements Supervisor.
func (s *supervisorImpl) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.ShutdownAll()

	return nil
}
