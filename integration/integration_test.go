//go:build integration

package integration

import (
	"errors"
	"os"
	"testing"

	"github.com/AGS-Lab/tailor"
)

// projectRootEnv names the directory holding the real sidecar package.
const projectRootEnv = "TAILOR_SIDECAR_ROOT"

// requireProjectRoot skips the test unless a real sidecar checkout is configured.
func requireProjectRoot(t *testing.T) string {
	t.Helper()

	root := os.Getenv(projectRootEnv)
	if root == "" {
		t.Skipf("%s not set", projectRootEnv)
	}

	return root
}

// skipIfPythonNotInstalled skips the test if the error indicates no interpreter was found.
func skipIfPythonNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*tailor.ExecutableNotFoundError](err); ok {
		t.Skip("Python not installed")
	}
}
