// Command tailor-sidecar spawns and talks to sidecar workers from a terminal.
//
// It is a development aid for the supervisor: spawn a worker for a vault,
// send it one JSON-RPC call, or keep it running until interrupted.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
