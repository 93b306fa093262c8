package litefile

import (
	"encoding/binary"
)

// FileHeaderSize is the size of the database header at the start of page 1.
const FileHeaderSize = 100

// Byte offsets of the header fields.
const (
	offsetMagic               = 0
	offsetPageSize            = 16
	offsetWriteVersion        = 18
	offsetReadVersion         = 19
	offsetReservedBytes       = 20
	offsetMaxPayloadFraction  = 21
	offsetMinPayloadFraction  = 22
	offsetLeafPayloadFraction = 23
	offsetFileChangeCounter   = 24
	offsetPageCount           = 28
	offsetFreelistTrunkPage   = 32
	offsetFreelistPageCount   = 36
	offsetSchemaCookie        = 40
	offsetSchemaFormat        = 44
	offsetSuggestedCacheSize  = 48
	offsetLargestRootPage     = 52
	offsetTextEncoding        = 56
	offsetUserVersion         = 60
	offsetIncrementalVacuum   = 64
	offsetApplicationID       = 68
	offsetReservedExpansion   = 72
	offsetVersionValidFor     = 92
	offsetLibraryVersion      = 96
)

// LibraryVersion is the SQLITE_VERSION_NUMBER style value recorded at offset 96.
type LibraryVersion uint32

// DefaultLibraryVersion is written into headers created for fresh databases.
const DefaultLibraryVersion LibraryVersion = 3046001

// FileHeader is the decoded 100-byte database header. It is a value type, a copy
// handed to a caller can't affect the connection it came from.
type FileHeader struct {
	PageSize            PageSize
	WriteVersion        FileFormatVersion
	ReadVersion         FileFormatVersion
	ReservedBytes       uint8
	MaxPayloadFraction  uint8
	MinPayloadFraction  uint8
	LeafPayloadFraction uint8
	FileChangeCounter   uint32
	PageCount           uint32
	FreelistTrunkPage   PageNumber
	FreelistPageCount   uint32
	SchemaCookie        uint32
	SchemaFormat        SchemaFormat
	SuggestedCacheSize  int32
	LargestRootPage     PageNumber
	TextEncoding        TextEncoding
	UserVersion         uint32
	IncrementalVacuum   bool
	ApplicationID       uint32
	VersionValidFor     uint32
	WriteLibraryVersion uint32
}

// NewFileHeader returns the header of a freshly created, single page database.
func NewFileHeader(version LibraryVersion) FileHeader {
	return FileHeader{
		PageSize:            DefaultPageSize,
		WriteVersion:        FileFormatLegacy,
		ReadVersion:         FileFormatLegacy,
		MaxPayloadFraction:  maximumEmbeddedPayloadFraction,
		MinPayloadFraction:  minimumEmbeddedPayloadFraction,
		LeafPayloadFraction: leafPayloadFraction,
		FileChangeCounter:   1,
		PageCount:           1,
		SchemaFormat:        NewestSchemaFormat,
		TextEncoding:        TextEncodingUTF8,
		VersionValidFor:     1,
		WriteLibraryVersion: uint32(version),
	}
}

// ParseFileHeader decodes and validates the first 100 bytes of a database.
func ParseFileHeader(buf []byte, mode ValidationMode) (FileHeader, error) {
	header, err := UnmarshalFileHeader(buf)
	if err != nil {
		return FileHeader{}, err
	}
	if err := header.Validate(mode); err != nil {
		return FileHeader{}, err
	}
	return header, nil
}

// UnmarshalFileHeader decodes every header field without running cross-field validation.
func UnmarshalFileHeader(buf []byte) (FileHeader, error) {
	if err := checkPayload(FieldFileHeader, buf, FileHeaderSize); err != nil {
		return FileHeader{}, err
	}

	var (
		h   FileHeader
		err error
	)

	if err = decodeConstant(FieldMagicHeaderString, buf[offsetMagic:offsetPageSize], magicHeaderString); err != nil {
		return FileHeader{}, err
	}
	if h.PageSize, err = DecodePageSize(buf[offsetPageSize:offsetWriteVersion]); err != nil {
		return FileHeader{}, err
	}
	if h.WriteVersion, err = decodeFileFormatVersion(FieldFileFormatWriteVersion, buf[offsetWriteVersion:offsetReadVersion]); err != nil {
		return FileHeader{}, err
	}
	if h.ReadVersion, err = decodeFileFormatVersion(FieldFileFormatReadVersion, buf[offsetReadVersion:offsetReservedBytes]); err != nil {
		return FileHeader{}, err
	}
	if h.ReservedBytes, err = decodeUint8(FieldReservedBytesPerPage, buf[offsetReservedBytes:offsetMaxPayloadFraction]); err != nil {
		return FileHeader{}, err
	}
	if h.MaxPayloadFraction, err = decodeFraction(FieldMaximumEmbeddedPayloadFraction, buf[offsetMaxPayloadFraction:offsetMinPayloadFraction], maximumEmbeddedPayloadFraction); err != nil {
		return FileHeader{}, err
	}
	if h.MinPayloadFraction, err = decodeFraction(FieldMinimumEmbeddedPayloadFraction, buf[offsetMinPayloadFraction:offsetLeafPayloadFraction], minimumEmbeddedPayloadFraction); err != nil {
		return FileHeader{}, err
	}
	if h.LeafPayloadFraction, err = decodeFraction(FieldLeafPayloadFraction, buf[offsetLeafPayloadFraction:offsetFileChangeCounter], leafPayloadFraction); err != nil {
		return FileHeader{}, err
	}

	uint32Fields := []struct {
		name   FieldName
		offset int
		dst    *uint32
	}{
		{FieldFileChangeCounter, offsetFileChangeCounter, &h.FileChangeCounter},
		{FieldDatabaseFileSizeInPages, offsetPageCount, &h.PageCount},
		{FieldFreelistTotalPages, offsetFreelistPageCount, &h.FreelistPageCount},
		{FieldSchemaCookie, offsetSchemaCookie, &h.SchemaCookie},
		{FieldUserVersion, offsetUserVersion, &h.UserVersion},
		{FieldApplicationID, offsetApplicationID, &h.ApplicationID},
		{FieldVersionValidFor, offsetVersionValidFor, &h.VersionValidFor},
		{FieldWriteLibraryVersion, offsetLibraryVersion, &h.WriteLibraryVersion},
	}
	for _, f := range uint32Fields {
		if *f.dst, err = decodeUint32(f.name, buf[f.offset:f.offset+4]); err != nil {
			return FileHeader{}, err
		}
	}

	trunk, err := decodeUint32(FieldFreelistFirstTrunkPage, buf[offsetFreelistTrunkPage:offsetFreelistPageCount])
	if err != nil {
		return FileHeader{}, err
	}
	h.FreelistTrunkPage = PageNumber(trunk)

	if h.SchemaFormat, err = decodeSchemaFormat(buf[offsetSchemaFormat:offsetSuggestedCacheSize]); err != nil {
		return FileHeader{}, err
	}

	cacheSize, err := decodeUint32(FieldSuggestedCacheSize, buf[offsetSuggestedCacheSize:offsetLargestRootPage])
	if err != nil {
		return FileHeader{}, err
	}
	h.SuggestedCacheSize = int32(cacheSize)

	largestRoot, err := decodeUint32(FieldLargestRootBtreePage, buf[offsetLargestRootPage:offsetTextEncoding])
	if err != nil {
		return FileHeader{}, err
	}
	h.LargestRootPage = PageNumber(largestRoot)

	if h.TextEncoding, err = decodeTextEncoding(buf[offsetTextEncoding:offsetUserVersion]); err != nil {
		return FileHeader{}, err
	}

	incrementalVacuum, err := decodeUint32(FieldIncrementalVacuumMode, buf[offsetIncrementalVacuum:offsetApplicationID])
	if err != nil {
		return FileHeader{}, err
	}
	h.IncrementalVacuum = incrementalVacuum != 0

	if err = decodeConstant(FieldReservedForExpansion, buf[offsetReservedExpansion:offsetVersionValidFor], reservedZeroes); err != nil {
		return FileHeader{}, err
	}

	return h, nil
}

// Marshal encodes the header into its exact on-disk layout.
func (h FileHeader) Marshal() []byte {
	buf := make([]byte, FileHeaderSize)

	copy(buf[offsetMagic:], magicHeaderString)
	pageSize := h.PageSize.Encode()
	copy(buf[offsetPageSize:], pageSize[:])
	buf[offsetWriteVersion] = byte(h.WriteVersion)
	buf[offsetReadVersion] = byte(h.ReadVersion)
	buf[offsetReservedBytes] = h.ReservedBytes
	buf[offsetMaxPayloadFraction] = h.MaxPayloadFraction
	buf[offsetMinPayloadFraction] = h.MinPayloadFraction
	buf[offsetLeafPayloadFraction] = h.LeafPayloadFraction

	binary.BigEndian.PutUint32(buf[offsetFileChangeCounter:], h.FileChangeCounter)
	binary.BigEndian.PutUint32(buf[offsetPageCount:], h.PageCount)
	binary.BigEndian.PutUint32(buf[offsetFreelistTrunkPage:], uint32(h.FreelistTrunkPage))
	binary.BigEndian.PutUint32(buf[offsetFreelistPageCount:], h.FreelistPageCount)
	binary.BigEndian.PutUint32(buf[offsetSchemaCookie:], h.SchemaCookie)
	binary.BigEndian.PutUint32(buf[offsetSchemaFormat:], uint32(h.SchemaFormat))
	binary.BigEndian.PutUint32(buf[offsetSuggestedCacheSize:], uint32(h.SuggestedCacheSize))
	binary.BigEndian.PutUint32(buf[offsetLargestRootPage:], uint32(h.LargestRootPage))
	binary.BigEndian.PutUint32(buf[offsetTextEncoding:], uint32(h.TextEncoding))
	binary.BigEndian.PutUint32(buf[offsetUserVersion:], h.UserVersion)
	if h.IncrementalVacuum {
		binary.BigEndian.PutUint32(buf[offsetIncrementalVacuum:], 1)
	}
	binary.BigEndian.PutUint32(buf[offsetApplicationID:], h.ApplicationID)
	// 20 reserved bytes at offsetReservedExpansion stay zero
	binary.BigEndian.PutUint32(buf[offsetVersionValidFor:], h.VersionValidFor)
	binary.BigEndian.PutUint32(buf[offsetLibraryVersion:], h.WriteLibraryVersion)

	return buf
}

// UsableSize is the page size less the reserved region at the end of each page.
func (h FileHeader) UsableSize() int {
	return h.PageSize.Int() - int(h.ReservedBytes)
}

func (h FileHeader) VacuumMode() VacuumMode {
	if h.LargestRootPage == 0 {
		return VacuumNone
	}
	if h.IncrementalVacuum {
		return VacuumIncremental
	}
	return VacuumFull
}

// HasPointerMap reports whether the file contains ptrmap pages.
func (h FileHeader) HasPointerMap() bool {
	return h.LargestRootPage != 0
}

// InHeaderSizeTrusted reports whether the page count and library version were
// written by the same writer that last bumped the change counter.
func (h FileHeader) InHeaderSizeTrusted() bool {
	return h.PageCount > 0 && h.FileChangeCounter == h.VersionValidFor
}

// EffectivePageCount returns the in-header page count when it can be trusted and
// the page count derived from the stream length otherwise.
func (h FileHeader) EffectivePageCount(streamPages uint32) uint32 {
	if h.InHeaderSizeTrusted() {
		return h.PageCount
	}
	return streamPages
}

// ReadFileHeader parses the header stored at the start of page 1. The header's
// page size must agree with the size the page was read with.
func ReadFileHeader(r FirstPageReader, mode ValidationMode) (FileHeader, error) {
	aPage, err := r.First()
	if err != nil {
		return FileHeader{}, err
	}
	header, err := ParseFileHeader(aPage.Data(), mode)
	if err != nil {
		return FileHeader{}, err
	}
	if header.PageSize != aPage.Size {
		return FileHeader{}, fieldError(FieldPageSize, "header page size %d differs from the page size %d used to read page 1", header.PageSize, aPage.Size)
	}
	return header, nil
}
