package manifest

import (
	"errors"

	"blocknet/pkg/types"
)

// ErrNotFound means no manifest exists for the file ID.
var ErrNotFound = errors.New("manifest not found")

// Store persists one manifest record per stored file. Implementations
// must be safe for concurrent use.
type Store interface {
	Put(m *types.Manifest) error
	Get(fileID types.FileID) (*types.Manifest, error)
	Delete(fileID types.FileID) error
	List() ([]*types.Manifest, error)
	Close() error
}
