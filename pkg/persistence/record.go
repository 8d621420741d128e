package persistence

import (
	"fmt"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

// Backend persists the profile table.
type Backend interface {
	// Save replaces the stored table with records.
	Save(records []netcommissioning.Record) error

	// Load returns the stored table, or nil when nothing has been saved.
	Load() ([]netcommissioning.Record, error)

	// Clear removes everything stored.
	Clear() error
}

// storedRecord is the on-disk form of a record. Secret fields hold sealed
// bytes when a Sealer is configured.
type storedRecord struct {
	Index       uint8                        `json:"index"`
	Type        netcommissioning.NetworkType `json:"type"`
	NetworkID   []byte                       `json:"network_id"`
	Enabled     bool                         `json:"enabled"`
	SSID        []byte                       `json:"ssid,omitempty"`
	Credentials []byte                       `json:"credentials,omitempty"`
	Dataset     []byte                       `json:"dataset,omitempty"`
	Sealed      bool                         `json:"sealed,omitempty"`
}

// sealAAD binds sealed fields to their slot and network id.
func sealAAD(field string, index uint8, networkID []byte) []byte {
	aad := make([]byte, 0, len(field)+1+len(networkID))
	aad = append(aad, field...)
	aad = append(aad, index)
	return append(aad, networkID...)
}

func toStored(r netcommissioning.Record, s *Sealer) (storedRecord, error) {
	out := storedRecord{
		Index:     r.Index,
		Type:      r.Type,
		NetworkID: r.NetworkID,
		Enabled:   r.Enabled,
		SSID:      r.SSID,
	}
	if s == nil {
		out.Credentials = r.Credentials
		out.Dataset = r.Dataset
		return out, nil
	}
	var err error
	if out.Credentials, err = s.Seal(r.Credentials, sealAAD("credentials", r.Index, r.NetworkID)); err != nil {
		return storedRecord{}, err
	}
	if out.Dataset, err = s.Seal(r.Dataset, sealAAD("dataset", r.Index, r.NetworkID)); err != nil {
		return storedRecord{}, err
	}
	out.Sealed = true
	return out, nil
}

func fromStored(sr storedRecord, s *Sealer) (netcommissioning.Record, error) {
	r := netcommissioning.Record{
		Index:     sr.Index,
		Type:      sr.Type,
		NetworkID: sr.NetworkID,
		Enabled:   sr.Enabled,
		SSID:      sr.SSID,
	}
	if !sr.Sealed {
		r.Credentials = sr.Credentials
		r.Dataset = sr.Dataset
		return r, nil
	}
	if s == nil {
		return netcommissioning.Record{}, fmt.Errorf("record %d is sealed but no sealer is configured", sr.Index)
	}
	var err error
	if r.Credentials, err = s.Open(sr.Credentials, sealAAD("credentials", sr.Index, sr.NetworkID)); err != nil {
		return netcommissioning.Record{}, fmt.Errorf("record %d credentials: %w", sr.Index, err)
	}
	if r.Dataset, err = s.Open(sr.Dataset, sealAAD("dataset", sr.Index, sr.NetworkID)); err != nil {
		return netcommissioning.Record{}, fmt.Errorf("record %d dataset: %w", sr.Index, err)
	}
	return r, nil
}
