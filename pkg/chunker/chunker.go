package chunker

import (
	"bytes"
	"fmt"

	"blocknet/pkg/types"
)

// DefaultBlockSize is the fixed maximum block size used by the network
// unless configured otherwise.
const DefaultBlockSize = 2 * 1024 * 1024 // 2MiB

// Chunker splits byte streams into fixed-size blocks and reassembles
// them. Splitting is deterministic: the same input always produces the
// same boundaries and the same block IDs, since IDs are derived from
// the file ID and sequence index rather than content.
type Chunker struct {
	blockSize int
}

func New(blockSize int) *Chunker {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Chunker{blockSize: blockSize}
}

func (c *Chunker) BlockSize() int {
	return c.blockSize
}

// BlockIDFor derives the position-keyed block ID for a file and index.
func BlockIDFor(fileID types.FileID, index int) types.BlockID {
	return types.BlockID(fmt.Sprintf("%s-chunk-%d", fileID, index))
}

// Split divides data into ceil(len/blockSize) blocks. The last block
// may be shorter than the block size. Empty input yields exactly one
// zero-length block, so empty files round-trip like any other file.
func (c *Chunker) Split(fileID types.FileID, data []byte) []types.Block {
	if len(data) == 0 {
		return []types.Block{{
			ID:     BlockIDFor(fileID, 0),
			FileID: fileID,
			Index:  0,
			Size:   0,
			Data:   []byte{},
		}}
	}

	blocks := make([]types.Block, 0, (len(data)+c.blockSize-1)/c.blockSize)
	for index, offset := 0, 0; offset < len(data); index, offset = index+1, offset+c.blockSize {
		end := offset + c.blockSize
		if end > len(data) {
			end = len(data)
		}

		piece := make([]byte, end-offset)
		copy(piece, data[offset:end])

		blocks = append(blocks, types.Block{
			ID:     BlockIDFor(fileID, index),
			FileID: fileID,
			Index:  index,
			Size:   int64(len(piece)),
			Data:   piece,
		})
	}

	return blocks
}

// Reassemble concatenates blocks in index order back into the original
// byte stream. It fails with ErrCorruptManifest when the sequence has
// a gap, a duplicate index, or a missing payload.
func (c *Chunker) Reassemble(blocks []types.Block) ([]byte, error) {
	ordered := make([]*types.Block, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		if b.Index < 0 || b.Index >= len(blocks) {
			return nil, fmt.Errorf("%w: block index %d out of range", ErrCorruptManifest, b.Index)
		}
		if ordered[b.Index] != nil {
			return nil, fmt.Errorf("%w: duplicate block index %d", ErrCorruptManifest, b.Index)
		}
		ordered[b.Index] = b
	}

	var out bytes.Buffer
	for i, b := range ordered {
		if b == nil {
			return nil, fmt.Errorf("%w: missing block at index %d", ErrCorruptManifest, i)
		}
		if b.Data == nil && b.Size > 0 {
			return nil, fmt.Errorf("%w: block %s has no payload", ErrCorruptManifest, b.ID)
		}
		out.Write(b.Data)
	}

	return out.Bytes(), nil
}
