package netcommissioning

import (
	"fmt"
)

// Record is the persisted form of one occupied slot. It carries secrets;
// storage backends are expected to seal Credentials and Dataset.
type Record struct {
	Index       uint8       `json:"index"`
	Type        NetworkType `json:"type"`
	NetworkID   []byte      `json:"networkId"`
	Enabled     bool        `json:"enabled"`
	SSID        []byte      `json:"ssid,omitempty"`
	Credentials []byte      `json:"credentials,omitempty"`
	Dataset     []byte      `json:"dataset,omitempty"`
}

// Snapshot returns a record per occupied slot in index order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for i := range s.slots {
		if s.slots[i].empty() {
			continue
		}
		p := &s.slots[i].profile
		r := Record{
			Index:     uint8(i),
			Type:      p.Type,
			NetworkID: p.NetworkID.Bytes(),
			Enabled:   p.Enabled,
		}
		switch pl := p.Payload.(type) {
		case WiFiPayload:
			r.SSID = pl.SSID.Bytes()
			r.Credentials = pl.Credentials.Bytes()
		case ThreadPayload:
			r.Dataset = pl.Dataset.Bytes()
		}
		out = append(out, r)
	}
	return out
}

// Restore replaces the table contents with records. Every record is
// validated before the table is touched; on error the table is unchanged.
// Profiles come back Provisioned whatever Record.Enabled says: nothing has
// been applied to the radio yet, so the caller reconnects the network it
// wants through the connection workflow.
func (s *Store) Restore(records []Record) error {
	profiles := make(map[uint8]Profile, len(records))
	for _, r := range records {
		if int(r.Index) >= len(s.slots) {
			return fmt.Errorf("%w: index %d beyond capacity %d", ErrInvalidRecord, r.Index, len(s.slots))
		}
		if _, dup := profiles[r.Index]; dup {
			return fmt.Errorf("%w: duplicate index %d", ErrInvalidRecord, r.Index)
		}
		p, err := s.profileFromRecord(r)
		if err != nil {
			return fmt.Errorf("%w: index %d: %w", ErrInvalidRecord, r.Index, err)
		}
		profiles[r.Index] = p
	}

	s.mu.Lock()
	for i := range s.slots {
		s.slots[i].reset()
		if p, ok := profiles[uint8(i)]; ok {
			s.slots[i].profile = p
		}
	}
	cbs := s.onChange
	s.mu.Unlock()

	for idx, p := range profiles {
		s.notify(cbs, Change{Kind: ChangeRestored, Index: idx, NetworkID: NetworkID{p.NetworkID.Bytes()}, Type: p.Type})
	}
	return nil
}

func (s *Store) profileFromRecord(r Record) (Profile, error) {
	if !s.features.Supports(r.Type) {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnsupportedNetworkType, r.Type)
	}
	id, err := NewNetworkID(r.NetworkID)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{NetworkID: id, Type: r.Type}
	switch r.Type {
	case NetworkTypeWiFi:
		sid, err := NewSSID(r.SSID)
		if err != nil {
			return Profile{}, err
		}
		creds, err := NewCredentials(r.Credentials)
		if err != nil {
			return Profile{}, err
		}
		if !id.Equal(r.SSID) {
			return Profile{}, fmt.Errorf("network id does not match ssid")
		}
		p.Payload = WiFiPayload{SSID: sid, Credentials: creds}
	case NetworkTypeThread:
		ds, err := NewDataset(r.Dataset)
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
		if !id.Equal(xpanid[:]) {
			return Profile{}, fmt.Errorf("network id does not match extended pan id")
		}
		p.Payload = ThreadPayload{Dataset: ds}
	case NetworkTypeEthernet:
		p.Payload = EthernetPayload{}
	}
	return p, nil
}
