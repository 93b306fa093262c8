package litefile

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// PageNumber is a 1-based page address. Zero is never a valid page.
type PageNumber uint32

// MaxPageNumber is the largest page number the format allows (2^32 - 2).
const MaxPageNumber PageNumber = 4294967294

// Page is a raw page buffer together with the page size it was read with. The
// buffer length always equals Size.
type Page struct {
	Number PageNumber
	Size   PageSize
	data   []byte
}

// NewPage wraps data as page number n, data must be exactly one page long.
func NewPage(n PageNumber, size PageSize, data []byte) (*Page, error) {
	if n == 0 {
		return nil, invalidPageNumber("page numbers start at 1")
	}
	if !size.Valid() {
		return nil, fieldError(FieldPageSize, "unsupported page size %d", size)
	}
	if len(data) != size.Int() {
		return nil, fmt.Errorf("page %d has %d bytes, page size is %d", n, len(data), size)
	}
	return &Page{
		Number: n,
		Size:   size,
		data:   data,
	}, nil
}

// Data returns the raw page bytes. Callers must not modify the returned slice.
func (p *Page) Data() []byte {
	return p.data
}

func (p *Page) Len() int {
	return len(p.data)
}

// BtreeHeaderOffset is where b-tree structure begins, page 1 starts with the file header.
func (p *Page) BtreeHeaderOffset() int {
	return btreeHeaderOffset(p.Number)
}

// Checksum returns a hex encoded BLAKE3 digest of the page content.
func (p *Page) Checksum() string {
	sum := blake3.Sum256(p.data)
	return hex.EncodeToString(sum[:])
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	data := make([]byte, len(p.data))
	copy(data, p.data)
	return &Page{
		Number: p.Number,
		Size:   p.Size,
		data:   data,
	}
}

func btreeHeaderOffset(n PageNumber) int {
	if n == 1 {
		return FileHeaderSize
	}
	return 0
}
