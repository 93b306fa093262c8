package litefile

import (
	"database/sql"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/RichardKnop/litefile/internal/pkg/logging"
)

var testLogger *zap.Logger

func init() {
	logConf := logging.DefaultConfig()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}

	l, err := logging.ParseLevel(level)
	if err != nil {
		panic(err)
	}
	logConf.Level = zap.NewAtomicLevelAt(l)

	testLogger, err = logConf.Build()
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

// newTestDataGen seeds a generator per test so parallel tests don't share one.
func newTestDataGen() *dataGen {
	return newDataGen(uint64(time.Now().UnixNano()))
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

// FileHeader returns a random header that passes strict validation.
func (g *dataGen) FileHeader() FileHeader {
	sizes := ValidPageSizes()
	pageSize := sizes[g.IntRange(0, len(sizes)-1)]
	counter := uint32(g.IntRange(1, 1_000_000))

	h := FileHeader{
		PageSize:            pageSize,
		WriteVersion:        FileFormatVersion(g.IntRange(1, 2)),
		ReadVersion:         FileFormatVersion(g.IntRange(1, 2)),
		ReservedBytes:       uint8(g.IntRange(0, 32)),
		MaxPayloadFraction:  maximumEmbeddedPayloadFraction,
		MinPayloadFraction:  minimumEmbeddedPayloadFraction,
		LeafPayloadFraction: leafPayloadFraction,
		FileChangeCounter:   counter,
		PageCount:           uint32(g.IntRange(1, 1_000_000)),
		SchemaCookie:        g.Uint32(),
		SchemaFormat:        NewestSchemaFormat,
		SuggestedCacheSize:  g.Int32(),
		TextEncoding:        TextEncoding(g.IntRange(1, 3)),
		UserVersion:         g.Uint32(),
		ApplicationID:       g.Uint32(),
		VersionValidFor:     counter,
		WriteLibraryVersion: uint32(g.IntRange(3_000_000, 3_999_999)),
	}
	if g.Bool() {
		h.FreelistPageCount = uint32(g.IntRange(1, 1000))
		h.FreelistTrunkPage = PageNumber(g.IntRange(2, int(h.PageCount)+1))
	}
	if g.Bool() {
		h.LargestRootPage = PageNumber(g.IntRange(3, 1000))
		h.IncrementalVacuum = g.Bool()
	}
	return h
}

// pageMap is an in-memory PageReader for hand built pages.
type pageMap map[PageNumber][]byte

func (m pageMap) Read(n PageNumber) (*Page, error) {
	data, ok := m[n]
	if !ok {
		return nil, invalidPageNumber("page %d not in test map", n)
	}
	return NewPage(n, PageSize(len(data)), data)
}

// newTestBtreePage lays out a b-tree page with the given cells packed at the
// end of the usable area.
func newTestBtreePage(n PageNumber, pageType BtreePageType, pageSize int, rightMost PageNumber, cells ...[]byte) []byte {
	data := make([]byte, pageSize)
	offset := btreeHeaderOffset(n)

	contentStart := pageSize
	pointers := offset + pageType.HeaderSize()
	for _, aCell := range cells {
		contentStart -= len(aCell)
		copy(data[contentStart:], aCell)
		binary.BigEndian.PutUint16(data[pointers:], uint16(contentStart))
		pointers += cellPointerSize
	}

	data[offset] = byte(pageType)
	binary.BigEndian.PutUint16(data[offset+3:], uint16(len(cells)))
	binary.BigEndian.PutUint16(data[offset+5:], uint16(contentStart)) // 65536 wraps to 0
	if pageType.IsInterior() {
		binary.BigEndian.PutUint32(data[offset+8:], uint32(rightMost))
	}
	return data
}

// newLeafTableCell encodes a leaf table cell with a fully local payload.
func newLeafTableCell(rowID int64, payload []byte) []byte {
	buf := make([]byte, 2*MaxVarintLen+len(payload))
	i := PutVarint(buf, uint64(len(payload)))
	i += PutVarint(buf[i:], uint64(rowID))
	i += copy(buf[i:], payload)
	return buf[:i]
}

// newTestDatabase creates a real database file with the pure Go sqlite driver
// and returns its bytes. The statements run in order on a single connection,
// so pragmas apply to the tables created after them.
func newTestDatabase(t *testing.T, statements ...string) []byte {
	t.Helper()

	return newTestDatabaseFunc(t, func(db *sql.DB) {
		for _, statement := range statements {
			_, err := db.Exec(statement)
			require.NoError(t, err, statement)
		}
	})
}

func newTestDatabaseFunc(t *testing.T, fn func(db *sql.DB)) []byte {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	fn(db)

	require.NoError(t, db.Close())

	data, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	return data
}

func connectTestDatabase(t *testing.T, data []byte) (*Pager, FileHeader) {
	t.Helper()

	aPager, err := Connect(NewMemoryStream(data), testLogger)
	require.NoError(t, err)

	header, err := ReadFileHeader(aPager, ValidateStrict)
	require.NoError(t, err)

	return aPager, header
}
