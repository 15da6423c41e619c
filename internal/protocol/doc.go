// Package protocol implements JSON-RPC 2.0 calls to sidecar workers.
//
// Every call opens its own connection, sends one request with a fresh ULID as
// its id, and reads frames until one carries the same id. Frames with other
// ids are discarded. Connections are never pooled.
//
// Wire format of a request:
//
//	{"jsonrpc": "2.0", "method": "ping", "params": {}, "id": "01J9Z3K4..."}
//
// The matching response object is returned to the caller unmodified.
package protocol
