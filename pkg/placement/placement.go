package placement

import (
	"sync/atomic"

	"blocknet/pkg/node"
	"blocknet/pkg/types"
)

// Policy chooses replica nodes for blocks by round-robin over the
// healthy, capacity-eligible pool. The cursor is shared across the
// whole network and advanced atomically once per block, so consecutive
// blocks fan out evenly even when several files are written at once.
type Policy struct {
	cursor atomic.Uint64
}

func NewPolicy() *Policy {
	return &Policy{}
}

// Choose returns up to replicas distinct nodes from pool that can hold
// a block of the given size. Fewer than replicas nodes means the block
// will be under-replicated; the caller records the shortfall instead of
// failing the write. An empty result means no node can take the block.
//
// Pool order must be stable across calls for the round-robin cycling
// to mean anything; the registry passes nodes in registration order.
func (p *Policy) Choose(size int64, replicas int, pool []*node.Node) []*node.Node {
	if len(pool) == 0 || replicas <= 0 {
		return nil
	}

	start := int(p.cursor.Add(1)-1) % len(pool)

	chosen := make([]*node.Node, 0, replicas)
	for i := 0; i < len(pool) && len(chosen) < replicas; i++ {
		candidate := pool[(start+i)%len(pool)]
		if candidate.HasRoomFor(size) {
			chosen = append(chosen, candidate)
		}
	}

	return chosen
}

// NodeIDs is a convenience for recording chosen nodes in a manifest.
func NodeIDs(nodes []*node.Node) []types.NodeID {
	ids := make([]types.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	return ids
}
