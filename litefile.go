// Package litefile reads SQLite 3 database files without a SQL engine. A Conn
// exposes the decoded file header and the on-disk structures of every page:
// b-tree pages with their cells, overflow chains, the freelist and the pointer map.
package litefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ulikunitz/xz"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardKnop/litefile/internal/litefile"
	"github.com/RichardKnop/litefile/internal/pkg/logging"
)

// ErrConnClosed is returned by every Conn method called after Close.
var ErrConnClosed = errors.New("connection is closed")

// Option configures a Conn.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger replaces the logger otherwise built from the log_level parameter.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Conn is an open database. All methods are safe for concurrent use, calls are
// serialized because the underlying pager owns a single read cursor.
type Conn struct {
	config  *ConnectionConfig
	pager   *litefile.Pager
	reader  litefile.FirstPageReader
	header  litefile.FileHeader
	closers []io.Closer
	logger  *zap.Logger
	closed  bool
	mu      sync.Mutex
}

// Open parses connStr and opens the database it names.
func Open(connStr string, opts ...Option) (*Conn, error) {
	config, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, err
	}
	return OpenConfig(config, opts...)
}

// OpenConfig opens the database described by an already parsed config.
func OpenConfig(config *ConnectionConfig, opts ...Option) (*Conn, error) {
	o, err := buildOptions(config, opts)
	if err != nil {
		return nil, err
	}

	switch {
	case config.Mode == ModeMemory:
		return newConn(config, litefile.NewMemoryStream(nil), nil, o.logger)
	case config.Compressed():
		data, err := readCompressed(config.FilePath)
		if err != nil {
			return nil, err
		}
		o.logger.Debug("decompressed database into memory",
			zap.String("path", config.FilePath),
			zap.Int("size", len(data)),
		)
		return newConn(config, litefile.NewMemoryStream(data), nil, o.logger)
	}

	dbFile, err := openFile(config)
	if err != nil {
		return nil, err
	}
	aConn, err := newConn(config, dbFile, dbFile, o.logger)
	if err != nil {
		return nil, multierr.Append(err, dbFile.Close())
	}
	return aConn, nil
}

// OpenStream reads a database from any seekable stream, it is never closed by the Conn.
func OpenStream(stream litefile.Stream, opts ...Option) (*Conn, error) {
	config := DefaultConnectionConfig("")
	config.Mode = ModeReadOnly
	o, err := buildOptions(config, opts)
	if err != nil {
		return nil, err
	}
	return newConn(config, stream, nil, o.logger)
}

func buildOptions(config *ConnectionConfig, opts []Option) (*options, error) {
	o := new(options)
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		logConf := logging.DefaultConfig()
		logConf.Level = config.GetZapLevel()
		logger, err := logConf.Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		o.logger = logger
	}
	return o, nil
}

func openFile(config *ConnectionConfig) (*os.File, error) {
	switch config.Mode {
	case ModeReadOnly:
		return os.Open(config.FilePath)
	case ModeReadWriteCreate:
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(config.FilePath, os.O_RDWR|os.O_CREATE, 0644)
	default:
		dbFile, err := os.OpenFile(config.FilePath, os.O_RDWR, 0)
		if err != nil {
			return nil, fmt.Errorf("%w (use ?mode=rwc to create the file)", err)
		}
		return dbFile, nil
	}
}

func readCompressed(path string) (data []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	xzReader, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read xz stream: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, xzReader); err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

func newConn(config *ConnectionConfig, stream litefile.Stream, closer io.Closer, logger *zap.Logger) (*Conn, error) {
	aPager, err := litefile.Connect(stream, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create pager: %w", err)
	}

	aConn := &Conn{
		config: config,
		pager:  aPager,
		reader: aPager,
		logger: logger,
	}
	if closer != nil {
		aConn.closers = append(aConn.closers, closer)
	}
	if config.MaxCachedPages > 0 {
		aConn.reader = newCachedPager(aPager, config.MaxCachedPages)
	}

	if aPager.IsEmpty() {
		aConn.header = litefile.NewFileHeader(litefile.DefaultLibraryVersion)
		logger.Debug("opened empty database", zap.String("uri", config.URI()))
		return aConn, nil
	}

	aConn.header, err = litefile.ReadFileHeader(aConn.reader, config.Validation)
	if err != nil {
		return nil, err
	}

	if !aConn.header.InHeaderSizeTrusted() {
		logger.Warn("change counter does not match version-valid-for, in-header page count is ignored",
			zap.Uint32("file_change_counter", aConn.header.FileChangeCounter),
			zap.Uint32("version_valid_for", aConn.header.VersionValidFor),
			zap.Uint32("pages_in_file", aPager.PageCount()),
		)
	} else if aConn.header.PageCount != aPager.PageCount() {
		logger.Warn("in-header page count differs from the file size",
			zap.Uint32("header_page_count", aConn.header.PageCount),
			zap.Uint32("pages_in_file", aPager.PageCount()),
		)
	}

	logger.Debug("opened database",
		zap.String("uri", config.URI()),
		zap.Uint32("page_size", uint32(aConn.header.PageSize)),
		zap.Uint32("page_count", aConn.pageCount()),
	)

	return aConn, nil
}

// Config returns the parsed connection parameters.
func (c *Conn) Config() ConnectionConfig {
	return *c.config
}

func (c *Conn) Mode() Mode {
	return c.config.Mode
}

// Header returns a copy of the file header read when the connection was opened.
// An empty database reports the header a fresh database would be created with.
func (c *Conn) Header() litefile.FileHeader {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.header
}

// PageCount is the in-header page count when it can be trusted, otherwise the
// number of pages in the file. A closed connection has no pages.
func (c *Conn) PageCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pageCount()
}

func (c *Conn) pageCount() uint32 {
	if c.closed || c.pager.IsEmpty() {
		return 0
	}
	return c.header.EffectivePageCount(c.pager.PageCount())
}

// ReadPage returns a copy of page n.
func (c *Conn) ReadPage(n litefile.PageNumber) (*litefile.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	return c.reader.Read(n)
}

// BtreePage reads page n and decodes it as a b-tree page.
func (c *Conn) BtreePage(n litefile.PageNumber) (*litefile.BtreePage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	return litefile.BtreePageReader(c.reader, n, c.header.UsableSize())
}

// OverflowChain follows the overflow pages of a cell. The chain payload holds
// only the bytes that spilled off the cell's page, a cell without overflow has
// an empty chain.
func (c *Conn) OverflowChain(aCell litefile.Cell) (*litefile.OverflowChain, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	if !aCell.HasOverflow() {
		return new(litefile.OverflowChain), nil
	}
	spilled := aCell.PayloadSize - uint64(len(aCell.Payload))
	return litefile.ReadOverflowChain(c.reader, aCell.FirstOverflowPage, spilled, c.header.UsableSize())
}

// CellPayload returns the complete payload of a cell.
func (c *Conn) CellPayload(aCell litefile.Cell) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	return aCell.FullPayload(c.reader, c.header.UsableSize())
}

// Freelist walks the freelist trunk chain.
func (c *Conn) Freelist() (*litefile.Freelist, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	if c.pager.IsEmpty() {
		return new(litefile.Freelist), nil
	}
	return litefile.ReadFreelist(c.reader, c.header)
}

// PointerMapEntry looks up the pointer map entry describing page n.
func (c *Conn) PointerMapEntry(n litefile.PageNumber) (litefile.PtrmapEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return litefile.PtrmapEntry{}, ErrConnClosed
	}
	return litefile.ReadPointerMapEntry(c.reader, c.header, n)
}

// PointerMapPage decodes pointer map page n.
func (c *Conn) PointerMapPage(n litefile.PageNumber) (*litefile.PointerMapPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	if !c.header.HasPointerMap() {
		return nil, litefile.ErrNoPointerMap
	}
	if !litefile.IsPtrmapPage(n, c.header.PageSize, c.header.UsableSize()) {
		return nil, fmt.Errorf("%w: page %d is not a pointer map page", litefile.ErrInvalidPageNumber, n)
	}

	aPage, err := c.reader.Read(n)
	if err != nil {
		return nil, err
	}
	return litefile.DecodePointerMapPage(n, aPage.Data(), c.header.UsableSize())
}

// Schema returns the rows of sqlite_schema.
func (c *Conn) Schema() ([]litefile.SchemaEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	if c.pager.IsEmpty() {
		return nil, nil
	}
	return litefile.ReadSchema(c.reader, c.header)
}

// Tables lists the names of the tables in schema order.
func (c *Conn) Tables() ([]string, error) {
	entries, err := c.Schema()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.Type == "table" {
			names = append(names, entry.Name)
		}
	}
	return names, nil
}

// Close releases the database file. Closing twice is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if aCache, ok := c.reader.(*cachedPager); ok {
		aCache.cache.Purge()
	}

	var err error
	for _, closer := range c.closers {
		err = multierr.Append(err, closer.Close())
	}
	return err
}
