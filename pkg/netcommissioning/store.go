package netcommissioning

import (
	"fmt"
	"sync"
)

// DefaultMaxNetworks is the table capacity used when none is configured.
const DefaultMaxNetworks = 4

// ChangeKind describes a Store mutation.
type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeEnabled
	ChangeDisabled
	ChangeRestored
)

// String returns the change name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "ADDED"
	case ChangeRemoved:
		return "REMOVED"
	case ChangeEnabled:
		return "ENABLED"
	case ChangeDisabled:
		return "DISABLED"
	case ChangeRestored:
		return "RESTORED"
	default:
		return "UNKNOWN"
	}
}

// Change is delivered to OnChange callbacks after a mutation.
type Change struct {
	Kind      ChangeKind
	Index     uint8
	NetworkID NetworkID
	Type      NetworkType
}

type slot struct {
	profile Profile

	// gen increments on every occupancy change so a connect that released
	// the lock can tell whether its slot was reused meanwhile.
	gen uint64
}

func (s *slot) empty() bool {
	return s.profile.Type == NetworkTypeUndefined
}

func (s *slot) reset() {
	if s.profile.Payload != nil {
		s.profile.Payload.wipe()
	}
	wipe(s.profile.NetworkID.b)
	s.profile = Profile{}
	s.gen++
}

// Store is a fixed-capacity table of network profiles.
//
// All mutations are serialized under one lock; lookups may run
// concurrently with each other. OnChange callbacks run outside the lock.
type Store struct {
	mu       sync.RWMutex
	slots    []slot
	features FeatureSet

	onChange []func(Change)
}

// NewStore creates a Store with the given capacity. A capacity below 1
// uses DefaultMaxNetworks; capacities above 255 are clamped since slot
// indices are reported as uint8.
func NewStore(capacity int, features FeatureSet) *Store {
	if capacity < 1 {
		capacity = DefaultMaxNetworks
	}
	if capacity > 255 {
		capacity = 255
	}
	return &Store{
		slots:    make([]slot, capacity),
		features: features,
	}
}

// Capacity returns the number of slots.
func (s *Store) Capacity() int {
	return len(s.slots)
}

// Features returns the network types this store accepts.
func (s *Store) Features() FeatureSet {
	return s.features
}

// OnChange registers a callback fired after every successful mutation.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// AddOrUpdateWiFi stores a Wi-Fi profile in the first empty slot. The SSID
// becomes the network id. A full table answers ErrBoundsExceeded before the
// input is looked at; oversize input is rejected with ErrOutOfRange before
// anything is written.
func (s *Store) AddOrUpdateWiFi(ssid, credentials []byte) (uint8, error) {
	if !s.features.Supports(NetworkTypeWiFi) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedNetworkType, NetworkTypeWiFi)
	}
	return s.add(func() (Profile, error) {
		sid, err := NewSSID(ssid)
		if err != nil {
			return Profile{}, err
		}
		creds, err := NewCredentials(credentials)
		if err != nil {
			return Profile{}, err
		}
		id, err := NewNetworkID(ssid)
		if err != nil {
			return Profile{}, err
		}
		return Profile{
			NetworkID: id,
			Type:      NetworkTypeWiFi,
			Payload:   WiFiPayload{SSID: sid, Credentials: creds},
		}, nil
	})
}

// AddOrUpdateThread stores a Thread profile in the first empty slot. The
// dataset's extended PAN ID becomes the network id.
func (s *Store) AddOrUpdateThread(dataset []byte) (uint8, error) {
	if !s.features.Supports(NetworkTypeThread) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedNetworkType, NetworkTypeThread)
	}
	return s.add(func() (Profile, error) {
		ds, err := NewDataset(dataset)
		if err != nil {
			return Profile{}, err
		}
		parsed, err := ParseOperationalDataset(ds.b)
		if err != nil {
			return Profile{}, err
		}
		xpanid, err := parsed.ExtendedPANID()
		if err != nil {
			return Profile{}, err
		}
		id, err := NewNetworkID(xpanid[:])
		if err != nil {
			return Profile{}, err
		}
		return Profile{
			NetworkID: id,
			Type:      NetworkTypeThread,
			Payload:   ThreadPayload{Dataset: ds},
		}, nil
	})
}

// AddEthernet stores an Ethernet profile. Ethernet carries no payload.
func (s *Store) AddEthernet(networkID []byte) (uint8, error) {
	if !s.features.Supports(NetworkTypeEthernet) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedNetworkType, NetworkTypeEthernet)
	}
	return s.add(func() (Profile, error) {
		id, err := NewNetworkID(networkID)
		if err != nil {
			return Profile{}, err
		}
		return Profile{
			NetworkID: id,
			Type:      NetworkTypeEthernet,
			Payload:   EthernetPayload{},
		}, nil
	})
}

// add finds the first empty slot, then builds the profile for it. build
// runs only when a slot is free and must not touch the store.
func (s *Store) add(build func() (Profile, error)) (uint8, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.slots {
		if s.slots[i].empty() {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return 0, ErrBoundsExceeded
	}
	p, err := build()
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	p.Enabled = false
	s.slots[idx].profile = p
	s.slots[idx].gen++
	cbs := s.onChange
	s.mu.Unlock()

	s.notify(cbs, Change{Kind: ChangeAdded, Index: uint8(idx), NetworkID: NetworkID{p.NetworkID.Bytes()}, Type: p.Type})
	return uint8(idx), nil
}

// FindByID returns a copy of the first profile whose id matches exactly.
// Empty slots never match.
func (s *Store) FindByID(networkID []byte) (Profile, uint8, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf(networkID)
	if !ok {
		return Profile{}, 0, false
	}
	return s.slots[idx].profile.clone(), uint8(idx), true
}

// lookup is FindByID plus the slot generation.
func (s *Store) lookup(networkID []byte) (Profile, uint8, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf(networkID)
	if !ok {
		return Profile{}, 0, 0, false
	}
	return s.slots[idx].profile.clone(), uint8(idx), s.slots[idx].gen, true
}

func (s *Store) indexOf(networkID []byte) (int, bool) {
	for i := range s.slots {
		if !s.slots[i].empty() && s.slots[i].profile.NetworkID.Equal(networkID) {
			return i, true
		}
	}
	return 0, false
}

// Remove clears the first profile matching networkID. All payload bytes
// are zeroed before the slot is released.
func (s *Store) Remove(networkID []byte) (uint8, error) {
	s.mu.Lock()
	idx, ok := s.indexOf(networkID)
	if !ok {
		s.mu.Unlock()
		return 0, ErrNetworkIDNotFound
	}
	c := Change{
		Kind:      ChangeRemoved,
		Index:     uint8(idx),
		NetworkID: NetworkID{s.slots[idx].profile.NetworkID.Bytes()},
		Type:      s.slots[idx].profile.Type,
	}
	s.slots[idx].reset()
	cbs := s.onChange
	s.mu.Unlock()

	s.notify(cbs, c)
	return uint8(idx), nil
}

// Disable clears the enabled flag of the first profile matching networkID.
func (s *Store) Disable(networkID []byte) (uint8, error) {
	s.mu.Lock()
	idx, ok := s.indexOf(networkID)
	if !ok {
		s.mu.Unlock()
		return 0, ErrNetworkIDNotFound
	}
	sl := &s.slots[idx]
	changed := sl.profile.Enabled
	sl.profile.Enabled = false
	c := Change{Kind: ChangeDisabled, Index: uint8(idx), NetworkID: NetworkID{sl.profile.NetworkID.Bytes()}, Type: sl.profile.Type}
	cbs := s.onChange
	s.mu.Unlock()

	if changed {
		s.notify(cbs, c)
	}
	return uint8(idx), nil
}

// markEnabled sets the enabled flag if slot idx still holds generation gen.
func (s *Store) markEnabled(idx uint8, gen uint64) error {
	s.mu.Lock()
	if int(idx) >= len(s.slots) || s.slots[idx].gen != gen || s.slots[idx].empty() {
		s.mu.Unlock()
		return ErrProfileChanged
	}
	sl := &s.slots[idx]
	sl.profile.Enabled = true
	c := Change{Kind: ChangeEnabled, Index: idx, NetworkID: NetworkID{sl.profile.NetworkID.Bytes()}, Type: sl.profile.Type}
	cbs := s.onChange
	s.mu.Unlock()

	s.notify(cbs, c)
	return nil
}

// Profiles lists occupied slots in index order.
func (s *Store) Profiles() []ProfileInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ProfileInfo
	for i := range s.slots {
		if s.slots[i].empty() {
			continue
		}
		p := &s.slots[i].profile
		out = append(out, ProfileInfo{
			Index:     uint8(i),
			NetworkID: NetworkID{p.NetworkID.Bytes()},
			Type:      p.Type,
			Enabled:   p.Enabled,
		})
	}
	return out
}

// Len returns the number of occupied slots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.slots {
		if !s.slots[i].empty() {
			n++
		}
	}
	return n
}

func (s *Store) notify(cbs []func(Change), c Change) {
	for _, fn := range cbs {
		fn(c)
	}
}
