// Package interpreter locates the executable that runs the sidecar worker.
//
// The Resolver interface locates a working interpreter:
//
//	resolver := interpreter.NewResolver(&interpreter.Config{
//	    Candidates: []string{"python3", "python"},
//	    Logger:     slog.Default(),
//	})
//	path, err := resolver.Resolve(ctx)
//
// Resolution order:
//  1. Explicit path in Config.Path (if provided, only checked for existence)
//  2. Each name in Config.Candidates, looked up on PATH and run with
//     Config.ProbeArgs; the first one that exits successfully wins
//
// Resolve returns ExecutableNotFoundError when no candidate responds.
package interpreter
