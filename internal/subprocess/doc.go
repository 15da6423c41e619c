// Package subprocess runs a sidecar worker as a child process.
//
// A Worker owns exactly one OS process. It relays the process's stdout and
// stderr line by line to a logger and optional callbacks, reaps the process
// in the background once it exits, and exposes Kill and a context-bounded
// Wait for termination.
package subprocess
