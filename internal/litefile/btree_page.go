package litefile

import (
	"encoding/binary"
	"fmt"

	"github.com/RichardKnop/litefile/pkg/bitwise"
)

// BtreePageType is the flag byte at the start of every b-tree page header.
type BtreePageType uint8

const (
	BtreeInteriorIndex BtreePageType = 2
	BtreeInteriorTable BtreePageType = 5
	BtreeLeafIndex     BtreePageType = 10
	BtreeLeafTable     BtreePageType = 13
)

// Flag bits of the page type byte.
const (
	intKeyFlagBit = 0 // table b-tree, keys are rowids
	leafFlagBit   = 3
)

const (
	leafPageHeaderSize     = 8
	interiorPageHeaderSize = 12
	cellPointerSize        = 2

	// maxFragmentedFreeBytes is the most a well-formed page accumulates before
	// it gets defragmented.
	maxFragmentedFreeBytes = 60
)

func decodeBtreePageType(buf []byte) (BtreePageType, error) {
	v, err := decodeUint8(FieldBtreePageType, buf)
	if err != nil {
		return 0, err
	}
	switch BtreePageType(v) {
	case BtreeInteriorIndex, BtreeInteriorTable, BtreeLeafIndex, BtreeLeafTable:
		return BtreePageType(v), nil
	default:
		return 0, fieldError(FieldBtreePageType, "must be 2, 5, 10 or 13, got %d", v)
	}
}

func (t BtreePageType) IsLeaf() bool {
	return bitwise.IsSet(uint8(t), leafFlagBit)
}

func (t BtreePageType) IsInterior() bool {
	return !t.IsLeaf()
}

// IsTable reports whether the page belongs to a table b-tree (keyed by rowid)
// rather than an index b-tree.
func (t BtreePageType) IsTable() bool {
	return bitwise.IsSet(uint8(t), intKeyFlagBit)
}

// HeaderSize is 12 for interior pages, which carry the right-most child pointer, and 8 otherwise.
func (t BtreePageType) HeaderSize() int {
	if t.IsLeaf() {
		return leafPageHeaderSize
	}
	return interiorPageHeaderSize
}

func (t BtreePageType) String() string {
	switch t {
	case BtreeInteriorIndex:
		return "interior index"
	case BtreeInteriorTable:
		return "interior table"
	case BtreeLeafIndex:
		return "leaf index"
	case BtreeLeafTable:
		return "leaf table"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// BtreePageHeader is the 8 or 12 byte structural header of a b-tree page.
type BtreePageHeader struct {
	Type                BtreePageType
	FirstFreeblock      uint16
	CellCount           uint16
	CellContentStart    int // a stored 0 decodes as 65536
	FragmentedFreeBytes uint8
	RightMostPointer    PageNumber // interior pages only
}

// DecodeBtreePageHeader decodes the header starting at buf[0].
func DecodeBtreePageHeader(buf []byte) (BtreePageHeader, error) {
	if err := checkPayload(FieldBtreePageHeader, buf, leafPageHeaderSize); err != nil {
		return BtreePageHeader{}, err
	}

	var (
		h   BtreePageHeader
		err error
		i   = 0
	)

	if h.Type, err = decodeBtreePageType(buf[i:]); err != nil {
		return BtreePageHeader{}, err
	}
	i += 1

	if h.Type.IsInterior() {
		if err := checkPayload(FieldBtreePageHeader, buf, interiorPageHeaderSize); err != nil {
			return BtreePageHeader{}, err
		}
	}

	h.FirstFreeblock = binary.BigEndian.Uint16(buf[i:])
	i += 2

	h.CellCount = binary.BigEndian.Uint16(buf[i:])
	i += 2

	h.CellContentStart = int(binary.BigEndian.Uint16(buf[i:]))
	if h.CellContentStart == 0 {
		h.CellContentStart = int(MaxPageSize)
	}
	i += 2

	h.FragmentedFreeBytes = buf[i]
	i += 1

	if h.Type.IsInterior() {
		h.RightMostPointer = PageNumber(binary.BigEndian.Uint32(buf[i:]))
	}

	return h, nil
}

// BtreePage is the decoded structure of one b-tree page. Cells are decoded
// lazily from the retained page bytes.
type BtreePage struct {
	Number       PageNumber
	HeaderOffset int // 100 on page 1, 0 elsewhere
	Header       BtreePageHeader
	CellPointers []uint16
	Freeblocks   []Freeblock
	UsableSize   int
	data         []byte
}

// DecodeBtreePage decodes the b-tree page header, the cell pointer array and
// the freeblock chain of page number n. Any inconsistent layout is an error.
func DecodeBtreePage(n PageNumber, data []byte, usableSize int) (*BtreePage, error) {
	if n == 0 {
		return nil, invalidPageNumber("page numbers start at 1")
	}
	if usableSize <= 0 || usableSize > len(data) {
		return nil, fmt.Errorf("usable size %d does not fit page %d of %d bytes", usableSize, n, len(data))
	}

	offset := btreeHeaderOffset(n)
	if offset+leafPageHeaderSize > usableSize {
		return nil, &PayloadTooSmallError{Field: FieldBtreePageHeader, Want: offset + leafPageHeaderSize, Actual: usableSize}
	}

	header, err := DecodeBtreePageHeader(data[offset:usableSize])
	if err != nil {
		return nil, err
	}

	if header.CellContentStart > usableSize {
		return nil, fieldError(FieldCellContentArea, "cell content area starts at %d, past the usable size %d", header.CellContentStart, usableSize)
	}
	if header.FragmentedFreeBytes > maxFragmentedFreeBytes {
		return nil, fieldError(FieldFragmentedFreeBytes, "%d fragmented bytes, at most %d allowed", header.FragmentedFreeBytes, maxFragmentedFreeBytes)
	}

	aPage := &BtreePage{
		Number:       n,
		HeaderOffset: offset,
		Header:       header,
		UsableSize:   usableSize,
		data:         data,
	}

	if aPage.CellPointers, err = aPage.decodeCellPointers(); err != nil {
		return nil, err
	}
	if aPage.Freeblocks, err = decodeFreeblocks(data, header.FirstFreeblock, header.CellContentStart, usableSize); err != nil {
		return nil, err
	}
	if free, limit := aPage.FreeBytes(), usableSize-aPage.cellAreaLowerBound(); free > limit {
		return nil, fieldError(FieldFreeblock, "%d free bytes on the page, only %d bytes follow the cell pointer array", free, limit)
	}

	return aPage, nil
}

// cellPointerStart is the offset of the cell pointer array.
func (p *BtreePage) cellPointerStart() int {
	return p.HeaderOffset + p.Header.Type.HeaderSize()
}

// cellAreaLowerBound is the first byte past the cell pointer array.
func (p *BtreePage) cellAreaLowerBound() int {
	return p.cellPointerStart() + int(p.Header.CellCount)*cellPointerSize
}

func (p *BtreePage) decodeCellPointers() ([]uint16, error) {
	end := p.cellAreaLowerBound()
	if end > p.Header.CellContentStart {
		return nil, fieldError(FieldCellPointer, "cell pointer array ends at %d, past the cell content area at %d", end, p.Header.CellContentStart)
	}

	pointers := make([]uint16, 0, p.Header.CellCount)
	for i := p.cellPointerStart(); i < end; i += cellPointerSize {
		ptr := binary.BigEndian.Uint16(p.data[i:])
		if int(ptr) < p.Header.CellContentStart || int(ptr) >= p.UsableSize {
			return nil, fieldError(FieldCellPointer, "cell pointer %d at offset %d is outside of [%d, %d)", ptr, i, p.Header.CellContentStart, p.UsableSize)
		}
		pointers = append(pointers, ptr)
	}
	return pointers, nil
}

// CellCount returns the number of cells stored on the page.
func (p *BtreePage) CellCount() int {
	return len(p.CellPointers)
}

// FreeBytes sums the gap between the pointer array and content area, the
// freeblocks and the fragmented bytes.
func (p *BtreePage) FreeBytes() int {
	free := p.Header.CellContentStart - p.cellAreaLowerBound() + int(p.Header.FragmentedFreeBytes)
	for _, block := range p.Freeblocks {
		free += int(block.Size)
	}
	return free
}

// Children returns every child page of an interior page, left to right with
// the right-most pointer last. Leaf pages have no children.
func (p *BtreePage) Children() ([]PageNumber, error) {
	if p.Header.Type.IsLeaf() {
		return nil, nil
	}
	children := make([]PageNumber, 0, p.CellCount()+1)
	for i := range p.CellPointers {
		aCell, err := p.Cell(i)
		if err != nil {
			return nil, err
		}
		children = append(children, aCell.LeftChild)
	}
	return append(children, p.Header.RightMostPointer), nil
}
