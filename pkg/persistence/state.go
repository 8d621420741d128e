package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// State is the JSON document written by FileStore.
type State struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Networks holds one entry per occupied slot.
	Networks []storedRecord `json:"networks,omitempty"`
}

// FileStore persists the profile table to a JSON file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	sealer *Sealer
	now    func() time.Time
}

// NewFileStore creates a file store. A nil sealer stores secrets in clear.
func NewFileStore(path string, sealer *Sealer) *FileStore {
	return &FileStore{path: path, sealer: sealer, now: time.Now}
}

// Path returns the state file location.
func (s *FileStore) Path() string { return s.path }

// Save writes records to a temporary file and renames it over the state
// file, so a crash never leaves a half-written table behind.
func (s *FileStore) Save(records []netcommissioning.Record) error {
	state := State{Version: StateVersion}
	for _, r := range records {
		sr, err := toStored(r, s.sealer)
		if err != nil {
			return err
		}
		state.Networks = append(state.Networks, sr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	state.SavedAt = s.now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the state file.
// Returns nil, nil if the file doesn't exist (empty table).
func (s *FileStore) Load() ([]netcommissioning.Record, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Version != StateVersion {
		return nil, fmt.Errorf("unsupported state version %d", state.Version)
	}

	records := make([]netcommissioning.Record, 0, len(state.Networks))
	for _, sr := range state.Networks {
		r, err := fromStored(sr, s.sealer)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Clear removes the state file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

var _ Backend = (*FileStore)(nil)
