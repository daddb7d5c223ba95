package registry

import "errors"

var (
	// ErrFileNotFound means no manifest exists for the file ID.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileUnavailable means the manifest exists but every replica of
	// some required block is currently unreachable. Distinct from
	// ErrFileNotFound: the data may come back when nodes recover.
	ErrFileUnavailable = errors.New("file unavailable")

	// ErrStorageWrite means a write failed after partial replication and
	// was rolled back; no manifest was committed.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrNodeNotFound means no node is registered under the ID.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists means a node is already registered under the ID.
	ErrNodeExists = errors.New("node already registered")
)
