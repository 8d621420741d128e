// Package correlation matches asynchronous replies to the requests that
// caused them. Entries are keyed by peer and sequence number and are removed
// when resolved.
package correlation

import (
	"errors"
	"fmt"
	"sync"
)

// Table errors.
var (
	ErrAlreadyRegistered = errors.New("continuation already registered")
	ErrNotFound          = errors.New("no continuation registered")
)

// Key identifies one outstanding request.
type Key struct {
	Peer     uint64
	Sequence uint32
}

func (k Key) String() string {
	return fmt.Sprintf("%016x/%d", k.Peer, k.Sequence)
}

// Table maps (peer, sequence) to a continuation of type T.
// It is safe for concurrent use.
type Table[T any] struct {
	mu      sync.Mutex
	entries map[Key]T
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{entries: make(map[Key]T)}
}

// Register stores v for (peer, sequence). A second registration for the
// same key fails rather than replacing the first.
func (t *Table[T]) Register(peer uint64, sequence uint32, v T) error {
	k := Key{peer, sequence}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[k]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, k)
	}
	t.entries[k] = v
	return nil
}

// Resolve removes and returns the continuation for (peer, sequence).
func (t *Table[T]) Resolve(peer uint64, sequence uint32) (T, error) {
	k := Key{peer, sequence}
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[k]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, k)
	}
	delete(t.entries, k)
	return v, nil
}

// Cancel removes the continuation for (peer, sequence) and reports
// whether one was registered.
func (t *Table[T]) Cancel(peer uint64, sequence uint32) bool {
	k := Key{peer, sequence}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[k]
	delete(t.entries, k)
	return ok
}

// CancelPeer removes every continuation of a peer and returns them, so the
// caller can fail them after a disconnect.
func (t *Table[T]) CancelPeer(peer uint64) []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []T
	for k, v := range t.entries {
		if k.Peer == peer {
			out = append(out, v)
			delete(t.entries, k)
		}
	}
	return out
}

// Len returns the number of outstanding continuations.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
