package persistence

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// Syncer keeps a Backend in step with a Store.
type Syncer struct {
	store   *netcommissioning.Store
	backend Backend
	logger  *slog.Logger

	connected [][]byte

	mu      sync.Mutex
	lastErr error
}

// Attach restores store from backend and then saves the table after every
// mutation. A backend error during restore is returned and nothing is
// attached.
func Attach(store *netcommissioning.Store, backend Backend, logger *slog.Logger) (*Syncer, error) {
	records, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load network table: %w", err)
	}
	s := &Syncer{store: store, backend: backend, logger: logger}
	if len(records) > 0 {
		if err := store.Restore(records); err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.Enabled {
				s.connected = append(s.connected, r.NetworkID)
			}
		}
		if logger != nil {
			logger.Info("restored network table", "networks", len(records), "connected", len(s.connected))
		}
	}

	store.OnChange(s.onChange)
	return s, nil
}

// Connected returns the ids of the restored profiles that were connected
// when the table was last saved, in slot order.
func (s *Syncer) Connected() [][]byte {
	return s.connected
}

// Flush saves the current table.
func (s *Syncer) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = s.backend.Save(s.store.Snapshot())
	return s.lastErr
}

// Err returns the result of the most recent save.
func (s *Syncer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Syncer) onChange(c netcommissioning.Change) {
	if c.Kind == netcommissioning.ChangeRestored {
		return
	}
	if err := s.Flush(); err != nil && s.logger != nil {
		s.logger.Error("failed to persist network table",
			"change", c.Kind.String(),
			"index", c.Index,
			"error", err)
	}
}
