package interpreter

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AGS-Lab/tailor/internal/errors"
)

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))

	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("Test requires shell scripts")
	}
}

func TestResolver_ExplicitPathMissing(t *testing.T) {
	resolver := NewResolver(&Config{
		Path:   "/nonexistent/path/to/python3",
		Logger: slog.Default(),
	})

	_, err := resolver.Resolve(context.Background())

	require.Error(t, err)
	require.IsType(t, &errors.ExecutableNotFoundError{}, err)
}

func TestResolver_ExplicitPath(t *testing.T) {
	skipOnWindows(t)

	fake := writeScript(t, t.TempDir(), "python3", "exit 1")

	resolver := NewResolver(&Config{Path: fake})

	path, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	require.Equal(t, fake, path)
}

func TestResolver_FirstWorkingCandidateWins(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeScript(t, dir, "broken-python", "exit 3")
	good := writeScript(t, dir, "good-python", `echo "Python 3.12.1"`)
	writeScript(t, dir, "other-python", `echo "Python 3.11.0"`)

	t.Setenv("PATH", dir)

	resolver := NewResolver(&Config{
		Candidates: []string{"missing-python", "broken-python", "good-python", "other-python"},
		ProbeArgs:  []string{"--version"},
		Logger:     slog.Default(),
	})

	path, err := resolver.Resolve(context.Background())

	require.NoError(t, err)
	require.Equal(t, good, path)
}

func TestResolver_NoCandidateResponds(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeScript(t, dir, "broken-python", "exit 1")

	t.Setenv("PATH", dir)

	resolver := NewResolver(&Config{
		Candidates: []string{"broken-python", "missing-python"},
		ProbeArgs:  []string{"--version"},
	})

	_, err := resolver.Resolve(context.Background())

	notFound, ok := stderrors.AsType[*errors.ExecutableNotFoundError](err)
	require.True(t, ok)
	require.Equal(t, []string{"broken-python", "missing-python"}, notFound.Candidates)
}

func TestResolver_ProbeReceivesArgs(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	writeScript(t, dir, "picky-python", `[ "$1" = "--probe" ] || exit 2`)

	t.Setenv("PATH", dir)

	ok := NewResolver(&Config{Candidates: []string{"picky-python"}, ProbeArgs: []string{"--probe"}})
	_, err := ok.Resolve(context.Background())
	require.NoError(t, err)

	bad := NewResolver(&Config{Candidates: []string{"picky-python"}, ProbeArgs: []string{"--version"}})
	_, err = bad.Resolve(context.Background())
	require.Error(t, err)
}
