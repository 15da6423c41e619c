package tailor

import (
	"context"
	"fmt"
)

// WithSupervisor manages supervisor lifecycle with automatic cleanup.
//
// This helper creates a supervisor with the provided options, executes the
// callback function, and always shuts down every spawned sidecar afterwards.
// If the callback returns an error, it is returned to the caller.
//
// Example usage:
//
//	err := tailor.WithSupervisor(ctx, func(s tailor.Supervisor) error {
//	    if _, err := s.Spawn(ctx, "main", vaultPath); err != nil {
//	        return err
//	    }
//	    if err := s.WaitReady(ctx, "main"); err != nil {
//	        return err
//	    }
//	    _, err := s.Call(ctx, "main", "ping", map[string]any{})
//	    return err
//	},
//	    tailor.WithLogger(log),
//	)
func WithSupervisor(ctx context.Context, fn func(Supervisor) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	sup, err := New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	defer func() {
		_ = sup.Close()
	}()

	return fn(sup)
}
