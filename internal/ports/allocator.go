package ports

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"
)

// exhaustedBackoff is how long Allocate sleeps after a full sweep finds nothing.
const exhaustedBackoff = 50 * time.Millisecond

// ProbeFunc reports whether a loopback port can be bound right now.
type ProbeFunc func(port int) bool

// Allocator hands out ports in [base, ceiling]. It is safe for concurrent use.
type Allocator struct {
	log     *slog.Logger
	base    int
	ceiling int
	probe   ProbeFunc

	mu       sync.Mutex
	cursor   int
	reserved map[int]struct{}
}

// NewAllocator creates an allocator with the cursor seeded at base.
// If probe is nil, Bindable is used.
func NewAllocator(log *slog.Logger, base, ceiling int, probe ProbeFunc) *Allocator {
	if probe == nil {
		probe = Bindable
	}

	return &Allocator{
		log:      log.With("component", "port_allocator"),
		base:     base,
		ceiling:  ceiling,
		probe:    probe,
		cursor:   base,
		reserved: make(map[int]struct{}),
	}
}

// Allocate returns a port that was bindable at the moment of the check and is
// not reserved by a previous Allocate. It scans until it succeeds; the only
// error is cancellation of ctx.
func (a *Allocator) Allocate(ctx context.Context) (int, error) {
	for {
		port, ok, err := a.sweep(ctx)
		if err != nil {
			return 0, err
		}

		if ok {
			return port, nil
		}

		a.log.Warn("No free port in range, retrying", "base", a.base, "ceiling", a.ceiling)

		// The lock is not held here so Release can free a port meanwhile.
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(exhaustedBackoff):
		}
	}
}

// sweep tests at most one full range of candidates starting at the cursor.
func (a *Allocator) sweep(ctx context.Context) (int, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for range a.ceiling - a.base + 1 {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}

		candidate := a.cursor
		a.advance()

		if _, taken := a.reserved[candidate]; taken {
			continue
		}

		if !a.probe(candidate) {
			a.log.Debug("Port unavailable", "port", candidate)

			continue
		}

		a.reserved[candidate] = struct{}{}
		a.log.Debug("Allocated port", "port", candidate)

		return candidate, true, nil
	}

	return 0, false, nil
}

// Release returns a port to the pool. Releasing an unreserved port is a no-op.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.reserved[port]; ok {
		delete(a.reserved, port)
		a.log.Debug("Released port", "port", port)
	}
}

// Reserved reports whether port is currently handed out.
func (a *Allocator) Reserved(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.reserved[port]

	return ok
}

// Cursor returns the next port the allocator will consider.
func (a *Allocator) Cursor() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.cursor
}

// advance moves the cursor one step, wrapping past the ceiling. Caller holds mu.
func (a *Allocator) advance() {
	a.cursor++
	if a.cursor > a.ceiling {
		a.cursor = a.base
	}
}

// Bindable reports whether a TCP listener can be bound on 127.0.0.1:port.
// The listener is closed before returning.
func Bindable(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}

	_ = ln.Close()

	return true
}

// Addr formats the loopback address of port.
func Addr(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}
