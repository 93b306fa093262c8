package litefile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPayloadSize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		pageType    BtreePageType
		payloadSize uint64
		usableSize  int
		want        int
	}{
		{"table leaf fits", BtreeLeafTable, 4061, 4096, 4061},
		{"table leaf one byte over", BtreeLeafTable, 4062, 4096, 489},
		{"table leaf surplus fits", BtreeLeafTable, 489 + 4092 + 10, 4096, 499},
		{"index fits", BtreeLeafIndex, 1002, 4096, 1002},
		{"index one byte over", BtreeLeafIndex, 1003, 4096, 489},
		{"index surplus fits", BtreeInteriorIndex, 489 + 4092 + 10, 4096, 499},
		{"small page table leaf", BtreeLeafTable, 1000, 512, 39},
		{"empty payload", BtreeLeafIndex, 0, 512, 0},
	}

	for _, aTestCase := range testCases {
		t.Run(aTestCase.name, func(t *testing.T) {
			actual := localPayloadSize(aTestCase.pageType, aTestCase.payloadSize, aTestCase.usableSize)
			assert.Equal(t, aTestCase.want, actual)
		})
	}
}

func TestBtreePage_Cell(t *testing.T) {
	t.Parallel()

	t.Run("leaf table", func(t *testing.T) {
		data := newTestBtreePage(2, BtreeLeafTable, 512, 0,
			newLeafTableCell(7, []byte("hello")),
			newLeafTableCell(300, []byte("world!")),
		)
		aPage, err := DecodeBtreePage(2, data, 512)
		require.NoError(t, err)

		cells, err := aPage.Cells()
		require.NoError(t, err)
		require.Len(t, cells, 2)

		assert.Equal(t, int64(7), cells[0].RowID)
		assert.Equal(t, uint64(5), cells[0].PayloadSize)
		assert.Equal(t, []byte("hello"), cells[0].Payload)
		assert.Equal(t, 7, cells[0].Size)
		assert.False(t, cells[0].HasOverflow())

		assert.Equal(t, int64(300), cells[1].RowID)
		assert.Equal(t, []byte("world!"), cells[1].Payload)
		assert.Equal(t, 9, cells[1].Size)
	})

	t.Run("leaf index", func(t *testing.T) {
		aCell := append([]byte{4}, []byte("key1")...)
		data := newTestBtreePage(2, BtreeLeafIndex, 512, 0, aCell)
		aPage, err := DecodeBtreePage(2, data, 512)
		require.NoError(t, err)

		decoded, err := aPage.Cell(0)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), decoded.PayloadSize)
		assert.Equal(t, []byte("key1"), decoded.Payload)
		assert.Equal(t, int64(0), decoded.RowID)
		assert.Equal(t, PageNumber(0), decoded.LeftChild)
	})

	t.Run("interior index", func(t *testing.T) {
		aCell := []byte{0, 0, 0, 42, 3, 'a', 'b', 'c'}
		data := newTestBtreePage(2, BtreeInteriorIndex, 512, 43, aCell)
		aPage, err := DecodeBtreePage(2, data, 512)
		require.NoError(t, err)

		decoded, err := aPage.Cell(0)
		require.NoError(t, err)
		assert.Equal(t, PageNumber(42), decoded.LeftChild)
		assert.Equal(t, []byte("abc"), decoded.Payload)
		assert.Equal(t, 8, decoded.Size)

		children, err := aPage.Children()
		require.NoError(t, err)
		assert.Equal(t, []PageNumber{42, 43}, children)
	})

	t.Run("index out of range", func(t *testing.T) {
		data := newTestBtreePage(2, BtreeLeafTable, 512, 0, newLeafTableCell(1, []byte("x")))
		aPage, err := DecodeBtreePage(2, data, 512)
		require.NoError(t, err)

		_, err = aPage.Cell(1)
		var fieldErr *FieldParsingError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, FieldCell, fieldErr.Field)
	})

	t.Run("truncated varint", func(t *testing.T) {
		data := newTestBtreePage(2, BtreeLeafTable, 512, 0, []byte{0x81})
		aPage, err := DecodeBtreePage(2, data, 512)
		require.NoError(t, err)

		_, err = aPage.Cell(0)
		var sizeErr *PayloadTooSmallError
		require.True(t, errors.As(err, &sizeErr))
		assert.Equal(t, FieldVarint, sizeErr.Field)
	})
}

// newOverflowTestPages builds a 512 byte leaf table page 2 holding one cell
// with a 1000 byte payload spilling onto pages 3 and 4.
func newOverflowTestPages(payload []byte, firstOverflow PageNumber) pageMap {
	aCell := make([]byte, 0, 64)

	var varint [MaxVarintLen]byte
	n := PutVarint(varint[:], uint64(len(payload)))
	aCell = append(aCell, varint[:n]...)
	aCell = append(aCell, 1) // rowid
	aCell = append(aCell, payload[:39]...)
	aCell = binary.BigEndian.AppendUint32(aCell, uint32(firstOverflow))

	pages := pageMap{
		2: newTestBtreePage(2, BtreeLeafTable, 512, 0, aCell),
		3: make([]byte, 512),
		4: make([]byte, 512),
	}
	binary.BigEndian.PutUint32(pages[3], 4)
	copy(pages[3][4:], payload[39:39+508])
	copy(pages[4][4:], payload[39+508:])
	return pages
}

func TestCell_FullPayload(t *testing.T) {
	t.Parallel()

	g := newTestDataGen()
	payload := []byte(g.LetterN(1000))

	t.Run("reassembles overflow pages", func(t *testing.T) {
		pages := newOverflowTestPages(payload, 3)

		aPage, err := BtreePageReader(pages, 2, 512)
		require.NoError(t, err)

		aCell, err := aPage.Cell(0)
		require.NoError(t, err)
		assert.True(t, aCell.HasOverflow())
		assert.Equal(t, PageNumber(3), aCell.FirstOverflowPage)
		assert.Len(t, aCell.Payload, 39)
		assert.Equal(t, 2+1+39+4, aCell.Size)

		full, err := aCell.FullPayload(pages, 512)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(payload, full))
	})

	t.Run("missing overflow pointer", func(t *testing.T) {
		pages := newOverflowTestPages(payload, 0)

		aPage, err := BtreePageReader(pages, 2, 512)
		require.NoError(t, err)

		_, err = aPage.Cell(0)
		var fieldErr *FieldParsingError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, FieldCell, fieldErr.Field)
	})

	t.Run("local payload only", func(t *testing.T) {
		aCell := Cell{PayloadSize: 3, Payload: []byte("abc")}

		full, err := aCell.FullPayload(pageMap{}, 512)
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), full)
	})
}
