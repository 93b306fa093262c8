package litefile

import (
	"encoding/binary"
)

const overflowPointerSize = 4

// Cell is one decoded b-tree cell. Which fields are set depends on the page type:
//
//	interior table: LeftChild, RowID
//	leaf table:     PayloadSize, RowID, Payload, FirstOverflowPage
//	interior index: LeftChild, PayloadSize, Payload, FirstOverflowPage
//	leaf index:     PayloadSize, Payload, FirstOverflowPage
type Cell struct {
	Offset            uint16
	LeftChild         PageNumber
	RowID             int64
	PayloadSize       uint64
	Payload           []byte // the part of the payload stored on this page
	FirstOverflowPage PageNumber
	Size              int // bytes the cell occupies on the page
}

// HasOverflow reports whether part of the payload lives on overflow pages.
func (c Cell) HasOverflow() bool {
	return c.FirstOverflowPage != 0
}

// Cell decodes the i-th cell in pointer array order.
func (p *BtreePage) Cell(i int) (Cell, error) {
	if i < 0 || i >= len(p.CellPointers) {
		return Cell{}, fieldError(FieldCell, "cell index %d out of range, page %d has %d cells", i, p.Number, len(p.CellPointers))
	}
	return decodeCell(p.Header.Type, p.data[:p.UsableSize], p.CellPointers[i], p.UsableSize)
}

// Cells decodes every cell on the page.
func (p *BtreePage) Cells() ([]Cell, error) {
	cells := make([]Cell, 0, len(p.CellPointers))
	for i := range p.CellPointers {
		aCell, err := p.Cell(i)
		if err != nil {
			return nil, err
		}
		cells = append(cells, aCell)
	}
	return cells, nil
}

func decodeCell(pageType BtreePageType, data []byte, offset uint16, usableSize int) (Cell, error) {
	aCell := Cell{Offset: offset}
	i := int(offset)

	if pageType.IsInterior() {
		if err := checkPayload(FieldCell, data[i:], 4); err != nil {
			return Cell{}, err
		}
		aCell.LeftChild = PageNumber(binary.BigEndian.Uint32(data[i:]))
		i += 4
	}

	if pageType != BtreeInteriorTable {
		payloadSize, n, err := DecodeVarint(data[i:])
		if err != nil {
			return Cell{}, err
		}
		aCell.PayloadSize = payloadSize
		i += n
	}

	if pageType.IsTable() {
		rowID, n, err := DecodeVarint(data[i:])
		if err != nil {
			return Cell{}, err
		}
		aCell.RowID = int64(rowID)
		i += n
	}

	if pageType == BtreeInteriorTable {
		aCell.Size = i - int(offset)
		return aCell, nil
	}

	local := localPayloadSize(pageType, aCell.PayloadSize, usableSize)
	if err := checkPayload(FieldCell, data[i:], local); err != nil {
		return Cell{}, err
	}
	aCell.Payload = data[i : i+local]
	i += local

	if uint64(local) < aCell.PayloadSize {
		if err := checkPayload(FieldCell, data[i:], overflowPointerSize); err != nil {
			return Cell{}, err
		}
		aCell.FirstOverflowPage = PageNumber(binary.BigEndian.Uint32(data[i:]))
		if aCell.FirstOverflowPage == 0 {
			return Cell{}, fieldError(FieldCell, "cell at %d spills %d payload bytes but has no overflow page", offset, aCell.PayloadSize-uint64(local))
		}
		i += overflowPointerSize
	}

	aCell.Size = i - int(offset)
	return aCell, nil
}

// localPayloadSize is how many payload bytes are stored on the b-tree page
// itself, the rest spills onto overflow pages.
func localPayloadSize(pageType BtreePageType, payloadSize uint64, usableSize int) int {
	maxLocal := maxLocalPayload(pageType, usableSize)
	if payloadSize <= uint64(maxLocal) {
		return int(payloadSize)
	}

	minLocal := minLocalPayload(usableSize)
	surplus := minLocal + int((payloadSize-uint64(minLocal))%uint64(usableSize-4))
	if surplus <= maxLocal {
		return surplus
	}
	return minLocal
}

func maxLocalPayload(pageType BtreePageType, usableSize int) int {
	if pageType == BtreeLeafTable {
		return usableSize - 35
	}
	return (usableSize-12)*maximumEmbeddedPayloadFraction/255 - 23
}

func minLocalPayload(usableSize int) int {
	return (usableSize-12)*minimumEmbeddedPayloadFraction/255 - 23
}
