package protocol

import (
	"github.com/oklog/ulid/v2"
)

// Version is the JSON-RPC version sent with every request.
const Version = "2.0"

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// NewRequest builds a request with a freshly generated id.
func NewRequest(method string, params any) *Request {
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      generateID(),
	}
}

// Matches reports whether msg is the response to r. Only an exact string id matches.
func (r *Request) Matches(msg map[string]any) bool {
	id, ok := msg["id"].(string)

	return ok && id == r.ID
}

// generateID creates a unique request id using ULID.
func generateID() string {
	return ulid.Make().String()
}
