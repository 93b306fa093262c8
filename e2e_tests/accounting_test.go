package e2etests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardKnop/litefile"
	core "github.com/RichardKnop/litefile/internal/litefile"
)

const schemaTableName = "sqlite_schema"

type pageOwner int

const (
	ownerRoot pageOwner = iota + 1
	ownerBtree
	ownerOverflow
	ownerFreelist
	ownerPointerMap
	ownerLockByte
)

// pageAccounting records what every page of a database is used for.
type pageAccounting struct {
	owners        map[core.PageNumber]pageOwner
	parents       map[core.PageNumber]core.PageNumber
	rows          map[string]int
	overflowPages []core.PageNumber
	freePages     []core.PageNumber
}

// assertPageAccounting walks every b-tree, overflow chain, the freelist and
// the pointer map, and checks each page of the file is claimed exactly once.
func assertPageAccounting(t *testing.T, aConn *litefile.Conn) *pageAccounting {
	t.Helper()

	a := &pageAccounting{
		owners:  make(map[core.PageNumber]pageOwner),
		parents: make(map[core.PageNumber]core.PageNumber),
		rows:    make(map[string]int),
	}
	header := aConn.Header()
	pageCount := aConn.PageCount()

	a.walkBtree(t, aConn, schemaTableName, core.SchemaRootPage, 0)

	schema, err := aConn.Schema()
	require.NoError(t, err)
	for _, entry := range schema {
		if entry.RootPage != 0 {
			a.walkBtree(t, aConn, entry.Name, entry.RootPage, 0)
		}
	}

	aFreelist, err := aConn.Freelist()
	require.NoError(t, err)
	for _, n := range aFreelist.Pages() {
		a.claim(t, n, ownerFreelist, 0)
		a.freePages = append(a.freePages, n)
	}

	if header.HasPointerMap() {
		for n := core.PageNumber(2); n <= core.PageNumber(pageCount); n++ {
			if core.IsPtrmapPage(n, header.PageSize, header.UsableSize()) {
				a.claim(t, n, ownerPointerMap, 0)
			}
		}
	}
	if core.HasLockBytePage(header.PageSize, pageCount) {
		a.claim(t, core.LockBytePage(header.PageSize), ownerLockByte, 0)
	}

	for n := core.PageNumber(1); n <= core.PageNumber(pageCount); n++ {
		assert.Contains(t, a.owners, n, "page %d is not used by anything", n)
	}
	assert.Len(t, a.owners, int(pageCount))

	return a
}

func (a *pageAccounting) claim(t *testing.T, n core.PageNumber, owner pageOwner, parent core.PageNumber) {
	t.Helper()

	previous, ok := a.owners[n]
	require.False(t, ok, "page %d claimed twice, first as %d then as %d", n, previous, owner)
	a.owners[n] = owner
	a.parents[n] = parent
}

func (a *pageAccounting) walkBtree(t *testing.T, aConn *litefile.Conn, name string, n, parent core.PageNumber) {
	t.Helper()

	owner := ownerBtree
	if parent == 0 {
		owner = ownerRoot
	}
	a.claim(t, n, owner, parent)

	aPage, err := aConn.BtreePage(n)
	require.NoError(t, err, "%s page %d", name, n)

	cells, err := aPage.Cells()
	require.NoError(t, err, "%s page %d", name, n)

	pageType := aPage.Header.Type
	// interior table cells only route, every other cell is a row or an index entry
	if !pageType.IsTable() || pageType.IsLeaf() {
		a.rows[name] += len(cells)
	}

	for _, aCell := range cells {
		if !aCell.HasOverflow() {
			continue
		}
		chain, err := aConn.OverflowChain(aCell)
		require.NoError(t, err, "%s page %d", name, n)

		previous := n
		for _, overflowPage := range chain.Pages {
			a.claim(t, overflowPage, ownerOverflow, previous)
			a.overflowPages = append(a.overflowPages, overflowPage)
			previous = overflowPage
		}
	}

	if pageType.IsInterior() {
		children, err := aPage.Children()
		require.NoError(t, err)
		for _, child := range children {
			a.walkBtree(t, aConn, name, child, n)
		}
	}
}

// tablePayloads collects the complete payload of every row of a table b-tree by rowid.
func tablePayloads(t *testing.T, aConn *litefile.Conn, n core.PageNumber, payloads map[int64][]byte) {
	t.Helper()

	aPage, err := aConn.BtreePage(n)
	require.NoError(t, err)
	require.True(t, aPage.Header.Type.IsTable())

	if aPage.Header.Type.IsInterior() {
		children, err := aPage.Children()
		require.NoError(t, err)
		for _, child := range children {
			tablePayloads(t, aConn, child, payloads)
		}
		return
	}

	cells, err := aPage.Cells()
	require.NoError(t, err)
	for _, aCell := range cells {
		payload, err := aConn.CellPayload(aCell)
		require.NoError(t, err)
		payloads[aCell.RowID] = payload
	}
}

func assertUsers(t *testing.T, aConn *litefile.Conn, users []user) {
	t.Helper()

	schema, err := aConn.Schema()
	require.NoError(t, err)

	var root core.PageNumber
	for _, entry := range schema {
		if entry.Type == "table" && entry.Name == "users" {
			root = entry.RootPage
		}
	}
	require.NotZero(t, root)

	payloads := make(map[int64][]byte)
	tablePayloads(t, aConn, root, payloads)
	require.Len(t, payloads, len(users))

	encoding := aConn.Header().TextEncoding
	for i, u := range users {
		payload, ok := payloads[int64(i+1)]
		require.True(t, ok, "row %d", i+1)

		aRecord, err := litefile.DecodeRecord(payload)
		require.NoError(t, err)
		require.Len(t, aRecord, 4)
		assert.Equal(t, core.ValueNull, aRecord[0].Type, "rowid alias is stored as null")

		for column, want := range []string{u.email, u.name, u.bio} {
			got, err := aRecord[column+1].Text(encoding)
			require.NoError(t, err)
			assert.Equal(t, want, got, "row %d column %d", i+1, column+1)
		}
	}
}
