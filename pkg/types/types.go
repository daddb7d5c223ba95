package types

import "time"

type NodeID string
type BlockID string
type FileID string
type UserID string

// Block is one fixed-size segment of a file. The last block of a file
// may be shorter than the configured block size.
type Block struct {
	ID     BlockID
	FileID FileID
	Index  int
	Size   int64
	Data   []byte
}

// ReplicaSet records where the replicas of one block live.
type ReplicaSet struct {
	BlockID         BlockID
	Index           int
	Size            int64
	Nodes           []NodeID
	UnderReplicated bool
}

// Manifest describes one stored file: its identity, owner, and the
// ordered block sequence with each block's replica locations.
type Manifest struct {
	FileID          FileID
	Owner           UserID
	Filename        string
	Size            int64
	Replication     int
	Blocks          []ReplicaSet // ordered by Index
	UnderReplicated bool
	CreatedAt       time.Time
}

// NodeStatus is a point-in-time snapshot of a single node.
type NodeStatus struct {
	ID            NodeID
	TotalCapacity int64
	UsedCapacity  int64
	Healthy       bool
	BlockCount    int
}

// StatsSnapshot aggregates utilization across the whole network.
type StatsSnapshot struct {
	TotalCapacity int64
	TotalUsed     int64
	NodeCount     int
	FileCount     int
	Nodes         []NodeStatus
}
