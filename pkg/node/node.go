package node

import (
	"bytes"
	"fmt"
	"sync"

	"blocknet/pkg/types"

	"go.uber.org/zap"
)

// Node is a virtual storage unit with bounded capacity and a
// content-addressed block map. All mutation goes through the node's
// mutex so concurrent writers can never jointly overshoot capacity.
type Node struct {
	id     types.NodeID
	logger *zap.Logger

	mu      sync.Mutex
	total   int64
	used    int64
	healthy bool
	blocks  map[types.BlockID][]byte
}

func New(id types.NodeID, capacity int64, logger *zap.Logger) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Node{
		id:      id,
		logger:  logger,
		total:   capacity,
		healthy: true,
		blocks:  make(map[types.BlockID][]byte),
	}
}

func (n *Node) ID() types.NodeID {
	return n.id
}

// Put stores a block, charging its size against capacity. Re-storing
// identical bytes under the same ID is a no-op, which lets replica
// repair re-send blocks safely. The same ID with different bytes is
// rejected to preserve the replica-identity invariant.
func (n *Node) Put(blockID types.BlockID, data []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.blocks[blockID]; ok {
		if bytes.Equal(existing, data) {
			return nil
		}
		return fmt.Errorf("%w: block %s", ErrBlockConflict, blockID)
	}

	if n.used+int64(len(data)) > n.total {
		return fmt.Errorf("%w: node %s (used %d + %d > total %d)",
			ErrCapacityExceeded, n.id, n.used, len(data), n.total)
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	n.blocks[blockID] = stored
	n.used += int64(len(stored))

	n.logger.Debug("stored block",
		zap.String("node_id", string(n.id)),
		zap.String("block_id", string(blockID)),
		zap.Int("size", len(stored)))

	return nil
}

// Get returns a copy of the block's bytes. It fails when the block is
// absent or the node is unhealthy; stored data survives an unhealthy
// period and becomes readable again after MarkHealthy.
func (n *Node) Get(blockID types.BlockID) ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.healthy {
		return nil, fmt.Errorf("%w: node %s is unhealthy", ErrBlockNotFound, n.id)
	}

	data, ok := n.blocks[blockID]
	if !ok {
		return nil, fmt.Errorf("%w: block %s on node %s", ErrBlockNotFound, blockID, n.id)
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Delete removes a block and frees its capacity.
func (n *Node) Delete(blockID types.BlockID) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	data, ok := n.blocks[blockID]
	if !ok {
		return fmt.Errorf("%w: block %s on node %s", ErrBlockNotFound, blockID, n.id)
	}

	delete(n.blocks, blockID)
	n.used -= int64(len(data))

	n.logger.Debug("deleted block",
		zap.String("node_id", string(n.id)),
		zap.String("block_id", string(blockID)),
		zap.Int("size", len(data)))

	return nil
}

// ExtendCapacity grows total capacity. Shrinking is not supported.
func (n *Node) ExtendCapacity(delta int64) error {
	if delta < 0 {
		return fmt.Errorf("capacity can only grow, got delta %d", delta)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.total += delta

	n.logger.Info("extended node capacity",
		zap.String("node_id", string(n.id)),
		zap.Int64("delta", delta),
		zap.Int64("total", n.total))

	return nil
}

// MarkUnhealthy removes the node from placement eligibility without
// destroying its stored blocks.
func (n *Node) MarkUnhealthy() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.healthy = false
}

func (n *Node) MarkHealthy() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.healthy = true
}

func (n *Node) Healthy() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.healthy
}

// HasRoomFor reports whether a healthy node can accept size more bytes.
// Placement uses this as the eligibility check; Put re-checks under the
// same lock, so a lost race surfaces as ErrCapacityExceeded there.
func (n *Node) HasRoomFor(size int64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.healthy && n.used+size <= n.total
}

// Status returns a point-in-time utilization snapshot.
func (n *Node) Status() types.NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return types.NodeStatus{
		ID:            n.id,
		TotalCapacity: n.total,
		UsedCapacity:  n.used,
		Healthy:       n.healthy,
		BlockCount:    len(n.blocks),
	}
}
