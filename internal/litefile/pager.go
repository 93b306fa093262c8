package litefile

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// connectPrefixSize covers the magic string, page size, both format versions and
// the reserved space byte, everything the pager needs to address pages.
const connectPrefixSize = offsetMaxPayloadFraction

// Pager maps page numbers to byte ranges of a stream. It owns the stream's read
// cursor, so a Pager must not be shared between goroutines without external
// synchronization. Pages are not cached, every Read goes to the stream.
type Pager struct {
	stream        Stream
	pageSize      PageSize
	reservedBytes uint8
	fileSize      int64
	totalPages    uint32 // number of complete pages in the stream
	logger        *zap.Logger
}

// Connect reads enough of the stream to learn the page size. An empty stream
// gets the default page size so a fresh in-memory database can be created.
func Connect(stream Stream, logger *zap.Logger) (*Pager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fileSize, err := streamLength(stream)
	if err != nil {
		return nil, err
	}

	aPager := &Pager{
		stream:   stream,
		pageSize: DefaultPageSize,
		fileSize: fileSize,
		logger:   logger,
	}

	buf := make([]byte, connectPrefixSize)
	n, err := io.ReadFull(stream, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &IOError{Op: "read", Err: err}
	}
	logger.Debug("connected pager", zap.Int("bytes_read", n), zap.Int64("file_size", fileSize))

	if n > 0 {
		pageSize, err := DecodePageSize(buf[:n][min(n, offsetPageSize):])
		if err != nil {
			return nil, err
		}
		aPager.pageSize = pageSize
		if n > offsetReservedBytes {
			aPager.reservedBytes = buf[offsetReservedBytes]
		}
	}

	aPager.totalPages = uint32(fileSize / int64(aPager.pageSize))

	return aPager, nil
}

func (p *Pager) PageSize() PageSize {
	return p.pageSize
}

func (p *Pager) ReservedBytes() uint8 {
	return p.reservedBytes
}

// UsableSize is the page size less the reserved region.
func (p *Pager) UsableSize() int {
	return p.pageSize.Int() - int(p.reservedBytes)
}

// PageCount is the number of complete pages in the stream.
func (p *Pager) PageCount() uint32 {
	return p.totalPages
}

// Size is the stream length in bytes at connect time.
func (p *Pager) Size() int64 {
	return p.fileSize
}

func (p *Pager) IsEmpty() bool {
	return p.fileSize == 0
}

// First reads page 1, the page holding the file header.
func (p *Pager) First() (*Page, error) {
	return p.Read(1)
}

// Read returns a freshly read copy of page n.
func (p *Pager) Read(n PageNumber) (*Page, error) {
	if n == 0 {
		return nil, invalidPageNumber("page numbers start at 1")
	}
	if p.fileSize == 0 {
		return nil, ErrEmptyDB
	}

	offset := int64(n-1) * int64(p.pageSize)
	if offset >= p.fileSize {
		return nil, invalidPageNumber("page %d is past the end of the database, number of pages: %d", n, p.totalPages)
	}

	if _, err := p.stream.Seek(offset, io.SeekStart); err != nil {
		return nil, &IOError{Op: "seek", PageNumber: n, Err: err}
	}

	buf := make([]byte, p.pageSize)
	if _, err := io.ReadFull(p.stream, buf); err != nil {
		return nil, &IOError{Op: "read", PageNumber: n, Err: err}
	}

	p.logger.Debug("read page", zap.Uint32("page", uint32(n)), zap.Int64("offset", offset))

	return &Page{
		Number: n,
		Size:   p.pageSize,
		data:   buf,
	}, nil
}
