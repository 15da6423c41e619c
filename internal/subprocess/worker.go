package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/AGS-Lab/tailor/internal/config"
)

const (
	// maxScanTokenSize is the maximum buffer size for reading worker output lines.
	maxScanTokenSize = 1024 * 1024 // 1MB

	// outputDrainDelay bounds how long output is still read after the worker exits.
	outputDrainDelay = time.Second

	// StdoutPrefix tags relayed stdout lines.
	StdoutPrefix = "[Sidecar]"

	// StderrPrefix tags relayed stderr lines.
	StderrPrefix = "[Sidecar Error]"
)

// Spec describes the process to start.
type Spec struct {
	SessionID string
	Path      string
	Args      []string
	Dir       string
	Env       []string
	Stdout    config.LineHandler
	Stderr    config.LineHandler
}

// Worker is a running worker process.
type Worker struct {
	log  *slog.Logger
	spec Spec
	cmd  *exec.Cmd

	done    chan struct{}
	waitErr error

	mu     sync.Mutex
	killed bool
}

// Start launches the process described by spec and begins relaying its output.
//
// The process is not tied to any context; it runs until Kill is called or it
// exits on its own. Start returns the error from process creation unchanged.
func Start(log *slog.Logger, spec Spec) (*Worker, error) {
	log = log.With("component", "worker", "session_id", spec.SessionID)

	//nolint:gosec // G204: launching the configured interpreter is the point
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env

	cmd.WaitDelay = outputDrainDelay
	setProcessGroup(cmd)

	// exec copies output into these pipes; WaitDelay stops the copy even if
	// a grandchild still holds the worker's stdout or stderr.
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		_ = stdoutW.Close()
		_ = stderrW.Close()

		log.Error("Failed to start sidecar process", "path", spec.Path, "error", err)

		return nil, fmt.Errorf("start process: %w", err)
	}

	w := &Worker{
		log:  log.With("pid", cmd.Process.Pid),
		spec: spec,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	w.log.Info("Sidecar spawned", "path", spec.Path, "args", spec.Args, "dir", spec.Dir)

	var relays sync.WaitGroup

	relays.Go(func() { w.relay(stdoutR, StdoutPrefix, slog.LevelInfo, spec.Stdout) })
	relays.Go(func() { w.relay(stderrR, StderrPrefix, slog.LevelWarn, spec.Stderr) })

	go func() {
		w.waitErr = cmd.Wait()

		// Wait has finished copying; end the relays.
		_ = stdoutW.Close()
		_ = stderrW.Close()
		relays.Wait()

		close(w.done)

		w.log.Debug("Sidecar process reaped", "error", w.waitErr)
	}()

	return w, nil
}

// relay forwards each line of r to the logger and handler until r is closed.
func (w *Worker) relay(r io.Reader, prefix string, level slog.Level, handler config.LineHandler) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()

		w.log.Log(context.Background(), level, prefix, "line", line)

		if handler != nil {
			handler(w.spec.SessionID, line)
		}
	}

	// Process exit closes the pipe; only log unexpected errors.
	if err := scanner.Err(); err != nil && !stderrors.Is(err, os.ErrClosed) {
		w.log.Debug("Output relay stopped", "stream", prefix, "error", err)
	}
}

// PID returns the operating system process id.
func (w *Worker) PID() int {
	return w.cmd.Process.Pid
}

// Done is closed once the process has exited and been reaped.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Exited reports whether the process has exited.
func (w *Worker) Exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Kill forcefully stops the process and, on Unix, every process in its
// group. Killing an already exited process returns os.ErrProcessDone.
func (w *Worker) Kill() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.Exited() {
		return os.ErrProcessDone
	}

	w.log.Debug("Killing sidecar process")

	if err := killProcess(w.cmd.Process); err != nil {
		if stderrors.Is(err, os.ErrProcessDone) {
			return err
		}

		return fmt.Errorf("kill sidecar process (pid %d): %w", w.PID(), err)
	}

	w.killed = true

	return nil
}

// Wait blocks until the process has exited or ctx is done.
//
// After a successful Kill, the exit caused by the signal is not reported as
// an error. An exit that happened before Kill is reported as is.
func (w *Worker) Wait(ctx context.Context) error {
	select {
	case <-w.done:
	case <-ctx.Done():
		return fmt.Errorf("wait for sidecar process (pid %d): %w", w.PID(), ctx.Err())
	}

	w.mu.Lock()
	killed := w.killed
	w.mu.Unlock()

	if _, ok := stderrors.AsType[*exec.ExitError](w.waitErr); ok && killed {
		return nil
	}

	return w.waitErr
}

// ExitCode returns the exit code once the process has exited, or -1.
func (w *Worker) ExitCode() int {
	if !w.Exited() {
		return -1
	}

	return w.cmd.ProcessState.ExitCode()
}
