// Package session tracks the live worker of each session id.
package session

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AGS-Lab/tailor/internal/errors"
	"github.com/AGS-Lab/tailor/internal/subprocess"
)

// tryLockInterval is how often TryDrain retries the table lock.
const tryLockInterval = 5 * time.Millisecond

// Record is one live worker. Port and VaultPath never change after insertion.
type Record struct {
	SessionID string
	VaultPath string
	Port      int
	Worker    *subprocess.Worker
	StartedAt time.Time
}

// Table maps session ids to records. It is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		records: make(map[string]*Record),
	}
}

// Insert adds rec. It fails with ErrSessionExists if the id is already tracked.
func (t *Table) Insert(rec *Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.records[rec.SessionID]; ok {
		return errors.ErrSessionExists
	}

	t.records[rec.SessionID] = rec

	return nil
}

// Get returns the record for id.
func (t *Table) Get(id string) (*Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[id]

	return rec, ok
}

// Has reports whether id is tracked.
func (t *Table) Has(id string) bool {
	_, ok := t.Get(id)

	return ok
}

// Remove deletes and returns the record for id.
func (t *Table) Remove(id string) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if ok {
		delete(t.records, id)
	}

	return rec, ok
}

// List returns the live records sorted by session id.
func (t *Table) List() []*Record {
	t.mu.RLock()
	out := make([]*Record, 0, len(t.records))

	for _, rec := range t.records {
		out = append(out, rec)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Record) int {
		return strings.Compare(a.SessionID, b.SessionID)
	})

	return out
}

// Len returns the number of live records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.records)
}

// TryDrain empties the table and returns what it held. It gives up and
// returns false if the lock cannot be acquired within timeout, leaving the
// table untouched.
func (t *Table) TryDrain(timeout time.Duration) ([]*Record, bool) {
	deadline := time.Now().Add(timeout)

	for !t.mu.TryLock() {
		if time.Now().After(deadline) {
			return nil, false
		}

		time.Sleep(tryLockInterval)
	}
	defer t.mu.Unlock()

	out := make([]*Record, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}

	clear(t.records)

	return out, true
}
