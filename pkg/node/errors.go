package node

import "errors"

var (
	// ErrCapacityExceeded means the block does not fit in the node's
	// remaining capacity. Recoverable by placing elsewhere or extending
	// the node.
	ErrCapacityExceeded = errors.New("node capacity exceeded")

	// ErrBlockNotFound means the block is absent or the node is
	// currently unhealthy.
	ErrBlockNotFound = errors.New("block not found")

	// ErrBlockConflict means a put tried to store different bytes under
	// an existing block ID.
	ErrBlockConflict = errors.New("block already stored with different content")
)
