package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	"blocknet/pkg/types"

	bolt "go.etcd.io/bbolt"
)

var manifestsBucket = []byte("manifests")

// BoltStore persists manifests in a BoltDB file, so a simulation can be
// stopped and resumed without losing file metadata.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(manifestsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create manifests bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(m *types.Manifest) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode manifest %s: %w", m.FileID, err)
		}
		return tx.Bucket(manifestsBucket).Put([]byte(m.FileID), data)
	})
}

func (s *BoltStore) Get(fileID types.FileID) (*types.Manifest, error) {
	var m types.Manifest
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(manifestsBucket).Get([]byte(fileID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return json.Unmarshal(data, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *BoltStore) Delete(fileID types.FileID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(manifestsBucket)
		if b.Get([]byte(fileID)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return b.Delete([]byte(fileID))
	})
}

func (s *BoltStore) List() ([]*types.Manifest, error) {
	var out []*types.Manifest
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(manifestsBucket).ForEach(func(_, v []byte) error {
			var m types.Manifest
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			out = append(out, &m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
