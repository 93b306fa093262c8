package litefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FieldName identifies a decoded field in error messages.
type FieldName string

const (
	FieldFileHeader                     FieldName = "FileHeader"
	FieldMagicHeaderString              FieldName = "MagicHeaderString"
	FieldPageSize                       FieldName = "PageSize"
	FieldFileFormatWriteVersion         FieldName = "FileFormatWriteVersion"
	FieldFileFormatReadVersion          FieldName = "FileFormatReadVersion"
	FieldReservedBytesPerPage           FieldName = "ReservedBytesPerPage"
	FieldMaximumEmbeddedPayloadFraction FieldName = "MaximumEmbeddedPayloadFraction"
	FieldMinimumEmbeddedPayloadFraction FieldName = "MinimumEmbeddedPayloadFraction"
	FieldLeafPayloadFraction            FieldName = "LeafPayloadFraction"
	FieldFileChangeCounter              FieldName = "FileChangeCounter"
	FieldDatabaseFileSizeInPages        FieldName = "DatabaseFileSizeInPages"
	FieldFreelistFirstTrunkPage         FieldName = "FreelistFirstTrunkPage"
	FieldFreelistTotalPages             FieldName = "FreelistTotalPages"
	FieldSchemaCookie                   FieldName = "SchemaCookie"
	FieldSchemaFormat                   FieldName = "SchemaFormat"
	FieldSuggestedCacheSize             FieldName = "SuggestedCacheSize"
	FieldLargestRootBtreePage           FieldName = "LargestRootBtreePage"
	FieldDatabaseTextEncoding           FieldName = "DatabaseTextEncoding"
	FieldUserVersion                    FieldName = "UserVersion"
	FieldIncrementalVacuumMode          FieldName = "IncrementalVacuumMode"
	FieldApplicationID                  FieldName = "ApplicationId"
	FieldReservedForExpansion           FieldName = "ReservedForExpansion"
	FieldVersionValidFor                FieldName = "VersionValidFor"
	FieldWriteLibraryVersion            FieldName = "WriteLibraryVersion"

	FieldBtreePageType       FieldName = "BtreePageType"
	FieldBtreePageHeader     FieldName = "BtreePageHeader"
	FieldCellPointer         FieldName = "CellPointer"
	FieldCellContentArea     FieldName = "CellContentArea"
	FieldFragmentedFreeBytes FieldName = "FragmentedFreeBytes"
	FieldFreeblock           FieldName = "Freeblock"
	FieldCell                FieldName = "Cell"
	FieldVarint              FieldName = "Varint"
	FieldOverflowPage        FieldName = "OverflowPage"
	FieldFreelistTrunkPage   FieldName = "FreelistTrunkPage"
	FieldPtrmapEntry         FieldName = "PtrmapEntry"
	FieldPtrmapType          FieldName = "PtrmapType"
	FieldRecord              FieldName = "Record"
)

var (
	magicHeaderString = []byte("SQLite format 3\x00")
	reservedZeroes    = make([]byte, 20)
)

const (
	maximumEmbeddedPayloadFraction = 64
	minimumEmbeddedPayloadFraction = 32
	leafPayloadFraction            = 32
)

func checkPayload(name FieldName, buf []byte, length int) error {
	if len(buf) < length {
		return &PayloadTooSmallError{Field: name, Want: length, Actual: len(buf)}
	}
	return nil
}

func decodeUint8(name FieldName, buf []byte) (uint8, error) {
	if err := checkPayload(name, buf, 1); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func decodeUint16(name FieldName, buf []byte) (uint16, error) {
	if err := checkPayload(name, buf, 2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf[:2]), nil
}

func decodeUint32(name FieldName, buf []byte) (uint32, error) {
	if err := checkPayload(name, buf, 4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:4]), nil
}

// decodeConstant succeeds only if buf starts with exactly the expected bytes.
func decodeConstant(name FieldName, buf, want []byte) error {
	if err := checkPayload(name, buf, len(want)); err != nil {
		return err
	}
	if !bytes.Equal(buf[:len(want)], want) {
		return fieldError(name, "bytes %x do not match required constant %x", buf[:len(want)], want)
	}
	return nil
}

func decodeFraction(name FieldName, buf []byte, want uint8) (uint8, error) {
	v, err := decodeUint8(name, buf)
	if err != nil {
		return 0, err
	}
	if v != want {
		return 0, fieldError(name, "must be %d, got %d", want, v)
	}
	return v, nil
}

// FileFormatVersion is the write or read version stored at offsets 18 and 19.
type FileFormatVersion uint8

const (
	FileFormatLegacy FileFormatVersion = 1
	FileFormatWAL    FileFormatVersion = 2
)

func decodeFileFormatVersion(name FieldName, buf []byte) (FileFormatVersion, error) {
	v, err := decodeUint8(name, buf)
	if err != nil {
		return 0, err
	}
	switch FileFormatVersion(v) {
	case FileFormatLegacy, FileFormatWAL:
		return FileFormatVersion(v), nil
	default:
		return 0, fieldError(name, "unknown file format version %d", v)
	}
}

func (v FileFormatVersion) String() string {
	switch v {
	case FileFormatLegacy:
		return "legacy"
	case FileFormatWAL:
		return "wal"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// TextEncoding is the database text encoding stored at offset 56.
type TextEncoding uint32

const (
	TextEncodingUTF8    TextEncoding = 1
	TextEncodingUTF16LE TextEncoding = 2
	TextEncodingUTF16BE TextEncoding = 3
)

func decodeTextEncoding(buf []byte) (TextEncoding, error) {
	v, err := decodeUint32(FieldDatabaseTextEncoding, buf)
	if err != nil {
		return 0, err
	}
	switch TextEncoding(v) {
	case TextEncodingUTF8, TextEncodingUTF16LE, TextEncodingUTF16BE:
		return TextEncoding(v), nil
	default:
		return 0, fieldError(FieldDatabaseTextEncoding, "must be 1, 2 or 3, got %d", v)
	}
}

func (e TextEncoding) String() string {
	switch e {
	case TextEncodingUTF8:
		return "utf8"
	case TextEncodingUTF16LE:
		return "utf16le"
	case TextEncodingUTF16BE:
		return "utf16be"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(e))
	}
}

// SchemaFormat is the schema format number stored at offset 44.
type SchemaFormat uint32

const (
	SchemaFormat1 SchemaFormat = iota + 1
	SchemaFormat2
	SchemaFormat3
	SchemaFormat4
)

// NewestSchemaFormat is the only schema format accepted by header validation.
const NewestSchemaFormat = SchemaFormat4

func decodeSchemaFormat(buf []byte) (SchemaFormat, error) {
	v, err := decodeUint32(FieldSchemaFormat, buf)
	if err != nil {
		return 0, err
	}
	if v < uint32(SchemaFormat1) || v > uint32(SchemaFormat4) {
		return 0, fieldError(FieldSchemaFormat, "must be between 1 and 4, got %d", v)
	}
	return SchemaFormat(v), nil
}

// VacuumMode is derived from the largest root page and incremental vacuum fields.
type VacuumMode int

const (
	VacuumNone VacuumMode = iota
	VacuumFull
	VacuumIncremental
)

func (m VacuumMode) String() string {
	switch m {
	case VacuumFull:
		return "full"
	case VacuumIncremental:
		return "incremental"
	default:
		return "none"
	}
}
