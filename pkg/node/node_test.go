package node

import (
	"fmt"
	"sync"
	"testing"

	"blocknet/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testNode(t *testing.T, capacity int64) *Node {
	return New("test-node-1", capacity, zaptest.NewLogger(t))
}

func TestPutGetDelete(t *testing.T) {
	n := testNode(t, 1024)

	data := []byte("hello blocks")
	require.NoError(t, n.Put("blk-0", data))

	got, err := n.Get("blk-0")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	status := n.Status()
	assert.Equal(t, int64(len(data)), status.UsedCapacity)
	assert.Equal(t, 1, status.BlockCount)

	require.NoError(t, n.Delete("blk-0"))
	assert.Equal(t, int64(0), n.Status().UsedCapacity)

	_, err = n.Get("blk-0")
	assert.ErrorIs(t, err, ErrBlockNotFound)
	assert.ErrorIs(t, n.Delete("blk-0"), ErrBlockNotFound)
}

func TestPutRejectsOverCapacity(t *testing.T) {
	n := testNode(t, 10)

	err := n.Put("blk-0", make([]byte, 11))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, int64(0), n.Status().UsedCapacity, "failed put must not charge capacity")

	// Exactly full is allowed.
	require.NoError(t, n.Put("blk-1", make([]byte, 10)))
	assert.ErrorIs(t, n.Put("blk-2", []byte{1}), ErrCapacityExceeded)
}

func TestPutIdempotentForIdenticalBytes(t *testing.T) {
	n := testNode(t, 100)

	data := []byte("replica repair resend")
	require.NoError(t, n.Put("blk-0", data))
	require.NoError(t, n.Put("blk-0", data), "identical re-put is a no-op")

	assert.Equal(t, int64(len(data)), n.Status().UsedCapacity, "re-put must not double-charge")

	err := n.Put("blk-0", []byte("different content"))
	assert.ErrorIs(t, err, ErrBlockConflict)
}

func TestPutCopiesCallerBuffer(t *testing.T) {
	n := testNode(t, 100)

	buf := []byte("original")
	require.NoError(t, n.Put("blk-0", buf))
	buf[0] = 'X'

	got, err := n.Get("blk-0")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

func TestExtendCapacity(t *testing.T) {
	n := testNode(t, 5)

	assert.ErrorIs(t, n.Put("blk-0", make([]byte, 8)), ErrCapacityExceeded)

	require.NoError(t, n.ExtendCapacity(10))
	require.NoError(t, n.Put("blk-0", make([]byte, 8)), "previously rejected write fits after extension")

	assert.Error(t, n.ExtendCapacity(-1), "shrinking is not supported")
}

func TestUnhealthyNodeKeepsData(t *testing.T) {
	n := testNode(t, 100)
	require.NoError(t, n.Put("blk-0", []byte("survives")))

	n.MarkUnhealthy()
	assert.False(t, n.Healthy())
	assert.False(t, n.HasRoomFor(1), "unhealthy node is not placement-eligible")

	_, err := n.Get("blk-0")
	assert.ErrorIs(t, err, ErrBlockNotFound)

	n.MarkHealthy()
	got, err := n.Get("blk-0")
	require.NoError(t, err)
	assert.Equal(t, []byte("survives"), got)
}

func TestConcurrentPutsNeverOvershootCapacity(t *testing.T) {
	const (
		workers   = 32
		blockSize = 10
	)
	// Room for exactly half the attempted blocks.
	n := testNode(t, int64(workers/2*blockSize))

	var wg sync.WaitGroup
	succeeded := make(chan types.BlockID, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := types.BlockID(fmt.Sprintf("blk-%d", i))
			if err := n.Put(id, make([]byte, blockSize)); err == nil {
				succeeded <- id
			}
		}(i)
	}
	wg.Wait()
	close(succeeded)

	status := n.Status()
	assert.LessOrEqual(t, status.UsedCapacity, status.TotalCapacity)
	assert.Equal(t, workers/2, status.BlockCount)
	assert.Len(t, succeeded, workers/2)
}
