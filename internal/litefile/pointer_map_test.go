package litefile

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPtrmapPageFor(t *testing.T) {
	t.Parallel()

	// 1024 byte pages hold 204 entries, map pages repeat every 205 pages
	assert.Equal(t, 204, PtrmapEntriesPerPage(1024))

	testCases := []struct {
		page PageNumber
		want PageNumber
	}{
		{1, 0},
		{2, 2},
		{3, 2},
		{206, 2},
		{207, 207},
		{208, 207},
		{411, 207},
		{412, 412},
	}

	for _, aTestCase := range testCases {
		assert.Equal(t, aTestCase.want, PtrmapPageFor(aTestCase.page, PageSize1024, 1024), "page %d", aTestCase.page)
	}

	assert.True(t, IsPtrmapPage(2, PageSize1024, 1024))
	assert.True(t, IsPtrmapPage(207, PageSize1024, 1024))
	assert.False(t, IsPtrmapPage(1, PageSize1024, 1024))
	assert.False(t, IsPtrmapPage(3, PageSize1024, 1024))

	t.Run("reserved bytes reduce entries per page", func(t *testing.T) {
		// 1000 usable bytes hold 200 entries
		assert.Equal(t, PageNumber(2), PtrmapPageFor(202, PageSize1024, 1000))
		assert.Equal(t, PageNumber(203), PtrmapPageFor(203, PageSize1024, 1000))
	})

	t.Run("map page moves past the lock-byte page", func(t *testing.T) {
		// with 1024 byte pages the lock-byte page 1048577 is exactly where a map page would be
		lockByte := LockBytePage(PageSize1024)
		require.Equal(t, PageNumber(1048577), lockByte)

		assert.Equal(t, lockByte+1, PtrmapPageFor(lockByte+3, PageSize1024, 1024))
		assert.True(t, IsPtrmapPage(lockByte+1, PageSize1024, 1024))
		assert.False(t, IsPtrmapPage(lockByte, PageSize1024, 1024))
	})
}

func TestDecodePointerMapPage(t *testing.T) {
	t.Parallel()

	data := make([]byte, 512)
	copy(data, []byte{
		byte(PtrmapRootPage), 0, 0, 0, 0,
		byte(PtrmapNonRootBtree), 0, 0, 0, 3,
		byte(PtrmapOverflow1), 0, 0, 0, 4,
	})

	aMapPage, err := DecodePointerMapPage(2, data, 512)
	require.NoError(t, err)

	assert.Equal(t, []PtrmapEntry{
		{Page: 3, Type: PtrmapRootPage, Parent: 0},
		{Page: 4, Type: PtrmapNonRootBtree, Parent: 3},
		{Page: 5, Type: PtrmapOverflow1, Parent: 4},
	}, aMapPage.Entries)

	t.Run("unknown type", func(t *testing.T) {
		data := make([]byte, 512)
		data[5] = 6

		_, err := DecodePointerMapPage(2, data, 512)
		var fieldErr *FieldParsingError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, FieldPtrmapType, fieldErr.Field)
	})

	t.Run("page 1 is never a map page", func(t *testing.T) {
		_, err := DecodePointerMapPage(1, data, 512)
		assert.ErrorIs(t, err, ErrInvalidPageNumber)
	})
}

func TestReadPointerMapEntry(t *testing.T) {
	t.Parallel()

	header := NewFileHeader(DefaultLibraryVersion)
	header.PageSize = PageSize512
	header.LargestRootPage = 4

	mapPage := make([]byte, 512)
	mapPage[0] = byte(PtrmapRootPage)
	mapPage[5] = byte(PtrmapFreePage)
	mapPage[10] = byte(PtrmapOverflow2)
	binary.BigEndian.PutUint32(mapPage[11:], 9)
	pages := pageMap{2: mapPage}

	entry, err := ReadPointerMapEntry(pages, header, 5)
	require.NoError(t, err)
	assert.Equal(t, PtrmapEntry{Page: 5, Type: PtrmapOverflow2, Parent: 9}, entry)
	assert.Equal(t, "overflow-continuation", entry.Type.String())

	entry, err = ReadPointerMapEntry(pages, header, 4)
	require.NoError(t, err)
	assert.Equal(t, PtrmapFreePage, entry.Type)

	t.Run("page without an entry", func(t *testing.T) {
		for _, n := range []PageNumber{0, 1, 2} {
			_, err := ReadPointerMapEntry(pages, header, n)
			assert.ErrorIs(t, err, ErrInvalidPageNumber, "page %d", n)
		}
	})

	t.Run("unused entry", func(t *testing.T) {
		_, err := ReadPointerMapEntry(pages, header, 6)
		var fieldErr *FieldParsingError
		require.True(t, errors.As(err, &fieldErr))
	})

	t.Run("no pointer map", func(t *testing.T) {
		_, err := ReadPointerMapEntry(pages, NewFileHeader(DefaultLibraryVersion), 3)
		assert.ErrorIs(t, err, ErrNoPointerMap)
	})
}

func TestReadPointerMapEntry_RealDatabase(t *testing.T) {
	t.Parallel()

	data := newTestDatabase(t,
		"PRAGMA page_size = 1024",
		"PRAGMA auto_vacuum = INCREMENTAL",
		"CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT UNIQUE)",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, body TEXT)",
		"CREATE INDEX posts_user ON posts (user_id)",
		"WITH RECURSIVE seq(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM seq WHERE x < 300) INSERT INTO posts (user_id, body) SELECT x % 7, printf('%0200d', x) FROM seq",
	)

	aPager, header := connectTestDatabase(t, data)
	require.True(t, header.HasPointerMap())
	require.Equal(t, VacuumIncremental, header.VacuumMode())

	schema, err := ReadSchema(aPager, header)
	require.NoError(t, err)

	var (
		roots       = 0
		largestRoot PageNumber
	)
	for _, entry := range schema {
		if entry.RootPage == 0 {
			continue
		}
		roots += 1
		largestRoot = max(largestRoot, entry.RootPage)

		ptrmapEntry, err := ReadPointerMapEntry(aPager, header, entry.RootPage)
		require.NoError(t, err, entry.Name)
		assert.Equal(t, PtrmapRootPage, ptrmapEntry.Type, entry.Name)
		assert.Equal(t, PageNumber(0), ptrmapEntry.Parent, entry.Name)
	}
	assert.Equal(t, 4, roots, "two tables, one automatic and one explicit index")
	assert.Equal(t, largestRoot, header.LargestRootPage)

	aPage, err := aPager.Read(2)
	require.NoError(t, err)
	aMapPage, err := DecodePointerMapPage(2, aPage.Data(), header.UsableSize())
	require.NoError(t, err)
	// every page after the map page up to the end of the file has an entry
	assert.Len(t, aMapPage.Entries, int(header.PageCount)-2)

	for _, entry := range aMapPage.Entries {
		if entry.Type == PtrmapNonRootBtree {
			parent, err := BtreePageReader(aPager, entry.Parent, header.UsableSize())
			require.NoError(t, err)
			assert.True(t, parent.Header.Type.IsInterior())
		}
	}
}
