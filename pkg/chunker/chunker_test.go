package chunker

import (
	"crypto/rand"
	"fmt"
	"testing"

	"blocknet/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndReassembleRoundTrip(t *testing.T) {
	c := New(DefaultBlockSize)
	fileID := types.FileID("test-file")

	testSizes := []int{
		0,                       // empty file
		100,                     // tiny
		DefaultBlockSize - 1,    // just under one block
		DefaultBlockSize,        // exact multiple
		2 * DefaultBlockSize,    // exact multiple, several blocks
		5*1024*1024 + 1,         // uneven tail
	}

	for _, size := range testSizes {
		t.Run(fmt.Sprintf("Size_%d", size), func(t *testing.T) {
			original := make([]byte, size)
			_, err := rand.Read(original)
			require.NoError(t, err)

			blocks := c.Split(fileID, original)
			require.NotEmpty(t, blocks, "even empty input must produce one block")

			total := int64(0)
			for i, b := range blocks {
				assert.Equal(t, i, b.Index)
				assert.Equal(t, fileID, b.FileID)
				assert.Equal(t, BlockIDFor(fileID, i), b.ID)
				assert.LessOrEqual(t, int(b.Size), DefaultBlockSize)
				total += b.Size
			}
			assert.Equal(t, int64(size), total)

			reassembled, err := c.Reassemble(blocks)
			require.NoError(t, err)
			assert.Equal(t, original, reassembled)
		})
	}
}

func TestSplitEmptyInputYieldsOneZeroLengthBlock(t *testing.T) {
	c := New(DefaultBlockSize)

	blocks := c.Split(types.FileID("empty"), nil)
	require.Len(t, blocks, 1)
	assert.Equal(t, int64(0), blocks[0].Size)
	assert.Empty(t, blocks[0].Data)

	data, err := c.Reassemble(blocks)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSplitIsDeterministic(t *testing.T) {
	c := New(1024)
	fileID := types.FileID("repeatable")

	data := make([]byte, 10*1024+17)
	_, err := rand.Read(data)
	require.NoError(t, err)

	first := c.Split(fileID, data)
	second := c.Split(fileID, data)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Data, second[i].Data)
	}
}

func TestBlockIDsDoNotCollideAcrossFiles(t *testing.T) {
	c := New(1024)
	data := []byte("identical content in two files")

	a := c.Split(types.FileID("file-a"), data)
	b := c.Split(types.FileID("file-b"), data)

	assert.NotEqual(t, a[0].ID, b[0].ID, "same content in different files must not share IDs")
}

func TestSplitBlockCountAndSizes(t *testing.T) {
	c := New(2 * 1024 * 1024)
	fileID := types.FileID("five-meg")

	data := make([]byte, 5*1024*1024)
	blocks := c.Split(fileID, data)

	require.Len(t, blocks, 3)
	assert.Equal(t, int64(2*1024*1024), blocks[0].Size)
	assert.Equal(t, int64(2*1024*1024), blocks[1].Size)
	assert.Equal(t, int64(1*1024*1024), blocks[2].Size)
}

func TestReassembleDetectsCorruption(t *testing.T) {
	c := New(1024)
	fileID := types.FileID("test")

	data := make([]byte, 4*1024)
	rand.Read(data)
	blocks := c.Split(fileID, data)
	require.Len(t, blocks, 4)

	t.Run("MissingBlock", func(t *testing.T) {
		missing := append([]types.Block{}, blocks[:2]...)
		missing = append(missing, blocks[3])
		_, err := c.Reassemble(missing)
		assert.ErrorIs(t, err, ErrCorruptManifest)
	})

	t.Run("DuplicateIndex", func(t *testing.T) {
		dup := append([]types.Block{}, blocks...)
		dup[1] = dup[0]
		_, err := c.Reassemble(dup)
		assert.ErrorIs(t, err, ErrCorruptManifest)
	})

	t.Run("OutOfOrder", func(t *testing.T) {
		reversed := make([]types.Block, len(blocks))
		for i := range blocks {
			reversed[len(blocks)-1-i] = blocks[i]
		}
		reassembled, err := c.Reassemble(reversed)
		require.NoError(t, err, "reassembly orders by index")
		assert.Equal(t, data, reassembled)
	})
}

func BenchmarkSplit(b *testing.B) {
	c := New(DefaultBlockSize)
	data := make([]byte, 10*1024*1024)
	rand.Read(data)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = c.Split(types.FileID("bench"), data)
	}

	b.SetBytes(int64(len(data)))
}

func BenchmarkReassemble(b *testing.B) {
	c := New(DefaultBlockSize)
	data := make([]byte, 10*1024*1024)
	rand.Read(data)
	blocks := c.Split(types.FileID("bench"), data)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = c.Reassemble(blocks)
	}

	b.SetBytes(int64(len(data)))
}
