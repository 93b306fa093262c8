package litefile

import (
	"encoding/binary"
)

// PageSize is one of the page sizes the file format allows.
type PageSize uint32

const (
	PageSize512   PageSize = 512
	PageSize1024  PageSize = 1024
	PageSize2048  PageSize = 2048
	PageSize4096  PageSize = 4096
	PageSize8192  PageSize = 8192
	PageSize16384 PageSize = 16384
	PageSize32768 PageSize = 32768
	PageSize65536 PageSize = 65536

	DefaultPageSize = PageSize4096
	MinPageSize     = PageSize512
	MaxPageSize     = PageSize65536

	// pageSize65536Marker is how 65536 is stored, it does not fit into two bytes.
	pageSize65536Marker = 1
)

var validPageSizes = []PageSize{
	PageSize512,
	PageSize1024,
	PageSize2048,
	PageSize4096,
	PageSize8192,
	PageSize16384,
	PageSize32768,
	PageSize65536,
}

// ValidPageSizes returns every page size the format accepts, smallest first.
func ValidPageSizes() []PageSize {
	sizes := make([]PageSize, len(validPageSizes))
	copy(sizes, validPageSizes)
	return sizes
}

// DecodePageSize decodes the 2-byte big-endian page size field.
func DecodePageSize(buf []byte) (PageSize, error) {
	v, err := decodeUint16(FieldPageSize, buf)
	if err != nil {
		return 0, err
	}
	if v == pageSize65536Marker {
		return PageSize65536, nil
	}
	if v < uint16(MinPageSize) {
		return 0, fieldError(FieldPageSize, "page size can't be less than 512, got %d", v)
	}
	if v&(v-1) != 0 {
		return 0, fieldError(FieldPageSize, "page size must be a power of two, got %d", v)
	}
	return PageSize(v), nil
}

// Encode returns the 2-byte on-disk representation.
func (s PageSize) Encode() [2]byte {
	var buf [2]byte
	if s == PageSize65536 {
		binary.BigEndian.PutUint16(buf[:], pageSize65536Marker)
		return buf
	}
	binary.BigEndian.PutUint16(buf[:], uint16(s))
	return buf
}

func (s PageSize) Valid() bool {
	for _, valid := range validPageSizes {
		if s == valid {
			return true
		}
	}
	return false
}

func (s PageSize) Int() int {
	return int(s)
}
