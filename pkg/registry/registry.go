package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"blocknet/pkg/chunker"
	"blocknet/pkg/manifest"
	"blocknet/pkg/node"
	"blocknet/pkg/placement"
	"blocknet/pkg/quota"
	"blocknet/pkg/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultReplication = 2

// Options configures a Network.
type Options struct {
	BlockSize    int   // bytes per block, DefaultBlockSize when zero
	Replication  int   // default replicas per block, DefaultReplication when zero
	DefaultQuota int64 // per-user allowance, quota.DefaultUserQuota when zero
}

// Network owns the node pool and per-file manifests. It delegates
// chunking, placement, and block storage, and is the only component
// that mutates shared state: nodes through their own locks, the
// placement cursor atomically, and quota through the accountant.
type Network struct {
	logger      *zap.Logger
	chunker     *chunker.Chunker
	placement   *placement.Policy
	quota       *quota.Accountant
	manifests   manifest.Store
	replication int

	mu    sync.RWMutex
	nodes map[types.NodeID]*node.Node
	order []types.NodeID // registration order, keeps round-robin stable
}

func New(opts Options, store manifest.Store, logger *zap.Logger) *Network {
	if logger == nil {
		logger = zap.NewNop()
	}
	replication := opts.Replication
	if replication <= 0 {
		replication = DefaultReplication
	}

	return &Network{
		logger:      logger,
		chunker:     chunker.New(opts.BlockSize),
		placement:   placement.NewPolicy(),
		quota:       quota.NewAccountant(opts.DefaultQuota),
		manifests:   store,
		replication: replication,
		nodes:       make(map[types.NodeID]*node.Node),
	}
}

// ---------------- Node administration ----------------

// AddNode registers a fresh node with the given capacity and returns
// its generated ID. The node is immediately placement-eligible.
func (nw *Network) AddNode(capacity int64) (types.NodeID, error) {
	id := types.NodeID("node-" + uuid.NewString()[:8])
	if err := nw.AddNodeWithID(id, capacity); err != nil {
		return "", err
	}
	return id, nil
}

// AddNodeWithID registers a node under a caller-chosen ID, used when
// bootstrapping the default pool from configuration.
func (nw *Network) AddNodeWithID(id types.NodeID, capacity int64) error {
	if capacity < 0 {
		return fmt.Errorf("node capacity must not be negative, got %d", capacity)
	}

	nw.mu.Lock()
	defer nw.mu.Unlock()

	if _, exists := nw.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrNodeExists, id)
	}

	nw.nodes[id] = node.New(id, capacity, nw.logger)
	nw.order = append(nw.order, id)

	nw.logger.Info("node added",
		zap.String("node_id", string(id)),
		zap.Int64("capacity", capacity))

	return nil
}

// ExtendNode grows a node's capacity; visible to placement immediately.
func (nw *Network) ExtendNode(id types.NodeID, delta int64) error {
	n, err := nw.node(id)
	if err != nil {
		return err
	}
	return n.ExtendCapacity(delta)
}

// MarkNodeUnhealthy removes a node from placement eligibility without
// destroying its blocks. Files with surviving replicas elsewhere stay
// readable.
func (nw *Network) MarkNodeUnhealthy(id types.NodeID) error {
	n, err := nw.node(id)
	if err != nil {
		return err
	}
	n.MarkUnhealthy()
	nw.logger.Info("node marked unhealthy", zap.String("node_id", string(id)))
	return nil
}

func (nw *Network) MarkNodeHealthy(id types.NodeID) error {
	n, err := nw.node(id)
	if err != nil {
		return err
	}
	n.MarkHealthy()
	nw.logger.Info("node marked healthy", zap.String("node_id", string(id)))
	return nil
}

func (nw *Network) node(id types.NodeID) (*node.Node, error) {
	nw.mu.RLock()
	defer nw.mu.RUnlock()

	n, ok := nw.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

// pool returns the nodes in registration order for placement.
func (nw *Network) pool() []*node.Node {
	nw.mu.RLock()
	defer nw.mu.RUnlock()

	out := make([]*node.Node, 0, len(nw.order))
	for _, id := range nw.order {
		out = append(out, nw.nodes[id])
	}
	return out
}

// ---------------- Storage operations ----------------

type placedReplica struct {
	node    *node.Node
	blockID types.BlockID
}

// WriteFile chunks data, places each block on up to replication
// distinct nodes, and commits the manifest only after every replica
// write succeeded. Quota is reserved before any chunk is persisted; on
// any placement or node failure all already-written replicas are
// deleted, the reservation is released, and ErrStorageWrite surfaces.
// Readers can never observe a partial manifest.
func (nw *Network) WriteFile(user types.UserID, filename string, data []byte, replication int) (*types.Manifest, error) {
	if replication <= 0 {
		replication = nw.replication
	}
	size := int64(len(data))

	if err := nw.quota.Reserve(user, size); err != nil {
		return nil, err
	}

	fileID := types.FileID(uuid.NewString())
	blocks := nw.chunker.Split(fileID, data)
	pool := nw.pool()

	var placed []placedReplica
	replicaSets := make([]types.ReplicaSet, 0, len(blocks))
	underReplicated := false

	for _, block := range blocks {
		targets := nw.placement.Choose(block.Size, replication, pool)
		if len(targets) == 0 {
			nw.rollback(user, size, placed)
			return nil, fmt.Errorf("%w: no eligible nodes for block %s", ErrStorageWrite, block.ID)
		}

		for _, target := range targets {
			if err := target.Put(block.ID, block.Data); err != nil {
				nw.rollback(user, size, placed)
				return nil, fmt.Errorf("%w: block %s on node %s: %v",
					ErrStorageWrite, block.ID, target.ID(), err)
			}
			placed = append(placed, placedReplica{node: target, blockID: block.ID})
		}

		shortfall := len(targets) < replication
		underReplicated = underReplicated || shortfall

		replicaSets = append(replicaSets, types.ReplicaSet{
			BlockID:         block.ID,
			Index:           block.Index,
			Size:            block.Size,
			Nodes:           placement.NodeIDs(targets),
			UnderReplicated: shortfall,
		})
	}

	m := &types.Manifest{
		FileID:          fileID,
		Owner:           user,
		Filename:        filename,
		Size:            size,
		Replication:     replication,
		Blocks:          replicaSets,
		UnderReplicated: underReplicated,
		CreatedAt:       time.Now().UTC(),
	}

	if err := nw.manifests.Put(m); err != nil {
		nw.rollback(user, size, placed)
		return nil, fmt.Errorf("%w: committing manifest for %s: %v", ErrStorageWrite, fileID, err)
	}

	nw.logger.Info("file stored",
		zap.String("file_id", string(fileID)),
		zap.String("user", string(user)),
		zap.String("filename", filename),
		zap.Int64("size", size),
		zap.Int("blocks", len(blocks)),
		zap.Int("replication", replication),
		zap.Bool("under_replicated", underReplicated))

	return m, nil
}

// rollback best-effort deletes already-placed replicas and returns the
// quota reservation.
func (nw *Network) rollback(user types.UserID, size int64, placed []placedReplica) {
	for _, p := range placed {
		if err := p.node.Delete(p.blockID); err != nil {
			nw.logger.Warn("rollback delete failed",
				zap.String("block_id", string(p.blockID)),
				zap.String("node_id", string(p.node.ID())),
				zap.Error(err))
		}
	}
	nw.quota.Release(user, size)
}

// ReadFile fetches every block of the file from its first healthy
// replica, falling back to the next listed replica on failure, and
// reassembles them in manifest order.
func (nw *Network) ReadFile(fileID types.FileID) ([]byte, error) {
	m, err := nw.Manifest(fileID)
	if err != nil {
		return nil, err
	}

	blocks := make([]types.Block, 0, len(m.Blocks))
	for i, rs := range m.Blocks {
		if rs.Index != i {
			nw.logger.Error("manifest block sequence broken",
				zap.String("file_id", string(fileID)),
				zap.Int("position", i),
				zap.Int("index", rs.Index))
			return nil, fmt.Errorf("%w: file %s block sequence broken at %d",
				chunker.ErrCorruptManifest, fileID, i)
		}

		data, err := nw.fetchBlock(rs)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, types.Block{
			ID:     rs.BlockID,
			FileID: fileID,
			Index:  rs.Index,
			Size:   int64(len(data)),
			Data:   data,
		})
	}

	data, err := nw.chunker.Reassemble(blocks)
	if err != nil {
		nw.logger.Error("reassembly failed",
			zap.String("file_id", string(fileID)),
			zap.Error(err))
		return nil, err
	}

	if int64(len(data)) != m.Size {
		nw.logger.Error("reassembled size does not match manifest",
			zap.String("file_id", string(fileID)),
			zap.Int64("expected", m.Size),
			zap.Int("got", len(data)))
		return nil, fmt.Errorf("%w: file %s reassembled to %d bytes, manifest says %d",
			chunker.ErrCorruptManifest, fileID, len(data), m.Size)
	}

	return data, nil
}

// fetchBlock tries each replica in manifest order and returns the
// first healthy copy.
func (nw *Network) fetchBlock(rs types.ReplicaSet) ([]byte, error) {
	for _, nodeID := range rs.Nodes {
		n, err := nw.node(nodeID)
		if err != nil {
			nw.logger.Warn("replica node no longer registered",
				zap.String("block_id", string(rs.BlockID)),
				zap.String("node_id", string(nodeID)))
			continue
		}

		data, err := n.Get(rs.BlockID)
		if err != nil {
			nw.logger.Warn("replica fetch failed, trying next",
				zap.String("block_id", string(rs.BlockID)),
				zap.String("node_id", string(nodeID)),
				zap.Error(err))
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf("%w: all %d replicas of block %s unreachable",
		ErrFileUnavailable, len(rs.Nodes), rs.BlockID)
}

// DeleteFile removes every replica of every block, then the manifest,
// then rolls back the owner's usage accounting. Replica deletion is
// best-effort: a missing replica must not block freeing the rest.
func (nw *Network) DeleteFile(fileID types.FileID) error {
	m, err := nw.Manifest(fileID)
	if err != nil {
		return err
	}

	for _, rs := range m.Blocks {
		for _, nodeID := range rs.Nodes {
			n, err := nw.node(nodeID)
			if err != nil {
				continue
			}
			if err := n.Delete(rs.BlockID); err != nil {
				nw.logger.Warn("replica delete failed",
					zap.String("block_id", string(rs.BlockID)),
					zap.String("node_id", string(nodeID)),
					zap.Error(err))
			}
		}
	}

	if err := nw.manifests.Delete(fileID); err != nil {
		return fmt.Errorf("failed to remove manifest for %s: %w", fileID, err)
	}
	nw.quota.Release(m.Owner, m.Size)

	nw.logger.Info("file deleted",
		zap.String("file_id", string(fileID)),
		zap.String("user", string(m.Owner)),
		zap.Int64("size", m.Size))

	return nil
}

// Manifest returns the stored manifest for a file.
func (nw *Network) Manifest(fileID types.FileID) (*types.Manifest, error) {
	m, err := nw.manifests.Get(fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
	}
	return m, nil
}

// ListFiles returns manifests owned by user, or all manifests when
// user is empty, newest first.
func (nw *Network) ListFiles(user types.UserID) ([]*types.Manifest, error) {
	all, err := nw.manifests.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	out := make([]*types.Manifest, 0, len(all))
	for _, m := range all {
		if user == "" || m.Owner == user {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------------- Accounting ----------------

// GrantQuota raises a user's allowance above the default. Admin
// operation.
func (nw *Network) GrantQuota(user types.UserID, size int64) {
	nw.quota.GrantExtra(user, size)
	nw.logger.Info("quota granted",
		zap.String("user", string(user)),
		zap.Int64("extra", size))
}

// Usage reports a user's aggregate stored bytes and allowance.
func (nw *Network) Usage(user types.UserID) (used, allowed int64) {
	return nw.quota.Usage(user)
}

// Stats computes aggregate and per-node utilization from current node
// state on every call; nothing is cached.
func (nw *Network) Stats() (types.StatsSnapshot, error) {
	pool := nw.pool()

	snapshot := types.StatsSnapshot{
		NodeCount: len(pool),
		Nodes:     make([]types.NodeStatus, 0, len(pool)),
	}
	for _, n := range pool {
		status := n.Status()
		snapshot.TotalCapacity += status.TotalCapacity
		snapshot.TotalUsed += status.UsedCapacity
		snapshot.Nodes = append(snapshot.Nodes, status)
	}

	files, err := nw.manifests.List()
	if err != nil {
		return types.StatsSnapshot{}, fmt.Errorf("failed to count files: %w", err)
	}
	snapshot.FileCount = len(files)

	return snapshot, nil
}

// NodeStatuses lists per-node snapshots in registration order.
func (nw *Network) NodeStatuses() []types.NodeStatus {
	pool := nw.pool()
	out := make([]types.NodeStatus, 0, len(pool))
	for _, n := range pool {
		out = append(out, n.Status())
	}
	return out
}
