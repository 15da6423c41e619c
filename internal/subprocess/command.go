package subprocess

import (
	"fmt"
	"os"
	"slices"
	"strconv"
)

// BuildArgs builds the worker command line that follows the interpreter.
//
// The result is moduleArgs followed by --vault <vaultPath> --ws-port <port>.
func BuildArgs(moduleArgs []string, vaultPath string, port int) []string {
	args := make([]string, 0, len(moduleArgs)+4)
	args = append(args, moduleArgs...)
	args = append(args, "--vault", vaultPath, "--ws-port", strconv.Itoa(port))

	return args
}

// BuildEnvironment returns the host environment with extra variables appended
// in key order. Later entries override earlier ones for os/exec.
func BuildEnvironment(extra map[string]string) []string {
	env := os.Environ()

	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		env = append(env, fmt.Sprintf("%s=%s", key, extra[key]))
	}

	return env
}
