package litefile

import (
	"github.com/RichardKnop/litefile/internal/litefile"
)

// Decoded structures handed out by a Conn.
type (
	FileHeader     = litefile.FileHeader
	Page           = litefile.Page
	PageNumber     = litefile.PageNumber
	PageSize       = litefile.PageSize
	BtreePage      = litefile.BtreePage
	BtreePageType  = litefile.BtreePageType
	Cell           = litefile.Cell
	Freeblock      = litefile.Freeblock
	OverflowChain  = litefile.OverflowChain
	Freelist       = litefile.Freelist
	PtrmapEntry    = litefile.PtrmapEntry
	PointerMapPage = litefile.PointerMapPage
	SchemaEntry    = litefile.SchemaEntry
	Record         = litefile.Record
	Value          = litefile.Value
	ValidationMode = litefile.ValidationMode
	Stream         = litefile.Stream
)

const (
	ValidateStrict  = litefile.ValidateStrict
	ValidateLenient = litefile.ValidateLenient
)

var (
	ErrEmptyDB           = litefile.ErrEmptyDB
	ErrInvalidPageNumber = litefile.ErrInvalidPageNumber
	ErrNoPointerMap      = litefile.ErrNoPointerMap
)

// ParseValidationMode accepts "strict" or "lenient".
func ParseValidationMode(s string) (ValidationMode, error) {
	return litefile.ParseValidationMode(s)
}

// NewMemoryStream wraps a byte slice for OpenStream.
func NewMemoryStream(data []byte) Stream {
	return litefile.NewMemoryStream(data)
}

// DecodeRecord decodes a table or index payload into its column values.
func DecodeRecord(payload []byte) (Record, error) {
	return litefile.DecodeRecord(payload)
}
