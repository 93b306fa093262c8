package litefile

import (
	"encoding/binary"
)

const freeblockHeaderSize = 4

// Freeblock is an unused range inside the cell content area. Size includes the
// 4-byte header holding the next offset and the size itself.
type Freeblock struct {
	Offset uint16
	Next   uint16 // 0 ends the chain
	Size   uint16
}

// End is the offset of the first byte after the freeblock.
func (b Freeblock) End() int {
	return int(b.Offset) + int(b.Size)
}

// decodeFreeblocks follows the freeblock chain starting at first. Blocks must
// lie between the start of the cell content area and usableSize, be at least 4 bytes and appear in
// strictly increasing, non-overlapping order.
func decodeFreeblocks(data []byte, first uint16, contentStart, usableSize int) ([]Freeblock, error) {
	var blocks []Freeblock

	// strictly increasing offsets bound the walk
	for offset := first; offset != 0; {
		if int(offset) < contentStart {
			return nil, fieldError(FieldFreeblock, "freeblock at %d lies before the cell content area at %d", offset, contentStart)
		}
		if int(offset)+freeblockHeaderSize > usableSize {
			return nil, fieldError(FieldFreeblock, "freeblock at %d has no room for its header in usable size %d", offset, usableSize)
		}

		block := Freeblock{
			Offset: offset,
			Next:   binary.BigEndian.Uint16(data[offset:]),
			Size:   binary.BigEndian.Uint16(data[offset+2:]),
		}
		if block.Size < freeblockHeaderSize {
			return nil, fieldError(FieldFreeblock, "freeblock at %d has size %d, minimum is %d", offset, block.Size, freeblockHeaderSize)
		}
		if block.End() > usableSize {
			return nil, fieldError(FieldFreeblock, "freeblock at %d of size %d extends past the usable size %d", offset, block.Size, usableSize)
		}
		if block.Next != 0 && int(block.Next) < block.End() {
			return nil, fieldError(FieldFreeblock, "freeblock at %d points back to %d, offsets must be strictly increasing", offset, block.Next)
		}

		blocks = append(blocks, block)
		offset = block.Next
	}

	return blocks, nil
}
