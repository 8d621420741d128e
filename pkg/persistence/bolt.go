package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mash-protocol/netcomm-go/pkg/netcommissioning"
)

var bucketNetworks = []byte("networks")

// BoltStore persists the profile table in a bbolt database, one key per
// slot index.
type BoltStore struct {
	db     *bolt.DB
	sealer *Sealer
}

// NewBoltStore opens or creates the database at path.
func NewBoltStore(path string, sealer *Sealer) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNetworks)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db, sealer: sealer}, nil
}

// Save replaces the bucket contents in one transaction.
func (s *BoltStore) Save(records []netcommissioning.Record) error {
	stored := make([]storedRecord, 0, len(records))
	for _, r := range records {
		sr, err := toStored(r, s.sealer)
		if err != nil {
			return err
		}
		stored = append(stored, sr)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketNetworks) != nil {
			if err := tx.DeleteBucket(bucketNetworks); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketNetworks)
		if err != nil {
			return err
		}
		for _, sr := range stored {
			data, err := json.Marshal(sr)
			if err != nil {
				return err
			}
			if err := b.Put([]byte{sr.Index}, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the stored records in index order, or nil when the bucket
// is empty.
func (s *BoltStore) Load() ([]netcommissioning.Record, error) {
	var records []netcommissioning.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetworks)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var sr storedRecord
			if err := json.Unmarshal(v, &sr); err != nil {
				return err
			}
			r, err := fromStored(sr, s.sealer)
			if err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Clear empties the bucket.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketNetworks) != nil {
			if err := tx.DeleteBucket(bucketNetworks); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketNetworks)
		return err
	})
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

var _ Backend = (*BoltStore)(nil)
