package litefile

import (
	"encoding/binary"
	"fmt"
)

// ErrNoPointerMap is returned when ptrmap entries are requested from a database
// that is not in auto or incremental vacuum mode.
var ErrNoPointerMap = fmt.Errorf("database has no pointer map")

const (
	ptrmapEntrySize = 5
	// firstPtrmapPage is where the first pointer map page lives in auto-vacuum databases.
	firstPtrmapPage PageNumber = 2
)

// PtrmapType describes what kind of page a pointer map entry refers to.
type PtrmapType uint8

const (
	PtrmapRootPage     PtrmapType = 1 // b-tree root page, parent is 0
	PtrmapFreePage     PtrmapType = 2 // freelist page, parent is 0
	PtrmapOverflow1    PtrmapType = 3 // first page of an overflow chain, parent is the b-tree page
	PtrmapOverflow2    PtrmapType = 4 // later overflow page, parent is the previous overflow page
	PtrmapNonRootBtree PtrmapType = 5 // parent is the parent b-tree page
)

func (t PtrmapType) String() string {
	switch t {
	case PtrmapRootPage:
		return "root"
	case PtrmapFreePage:
		return "freelist"
	case PtrmapOverflow1:
		return "overflow-first"
	case PtrmapOverflow2:
		return "overflow-continuation"
	case PtrmapNonRootBtree:
		return "non-root b-tree"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// PtrmapEntry is one 5-byte back-link: the page it describes, its type and its parent.
type PtrmapEntry struct {
	Page   PageNumber
	Type   PtrmapType
	Parent PageNumber
}

func decodePtrmapEntry(page PageNumber, buf []byte) (PtrmapEntry, error) {
	if err := checkPayload(FieldPtrmapEntry, buf, ptrmapEntrySize); err != nil {
		return PtrmapEntry{}, err
	}
	entry := PtrmapEntry{
		Page:   page,
		Type:   PtrmapType(buf[0]),
		Parent: PageNumber(binary.BigEndian.Uint32(buf[1:])),
	}
	if entry.Type < PtrmapRootPage || entry.Type > PtrmapNonRootBtree {
		return PtrmapEntry{}, fieldError(FieldPtrmapType, "page %d has pointer map type %d, must be between 1 and 5", page, buf[0])
	}
	return entry, nil
}

// PtrmapEntriesPerPage is how many entries one pointer map page holds.
func PtrmapEntriesPerPage(usableSize int) int {
	return usableSize / ptrmapEntrySize
}

// PtrmapPageFor returns the pointer map page holding the entry for page n, or
// 0 when n is page 1, which has no entry. Each map page is followed by the
// pages it describes. The lock-byte page is never a map page, a map page that
// would land on it moves one page up.
func PtrmapPageFor(n PageNumber, pageSize PageSize, usableSize int) PageNumber {
	if n < firstPtrmapPage {
		return 0
	}
	pagesPerMapPage := PageNumber(PtrmapEntriesPerPage(usableSize)) + 1
	mapPage := (n-firstPtrmapPage)/pagesPerMapPage*pagesPerMapPage + firstPtrmapPage
	if mapPage == LockBytePage(pageSize) {
		mapPage += 1
	}
	return mapPage
}

// IsPtrmapPage reports whether page n is itself a pointer map page.
func IsPtrmapPage(n PageNumber, pageSize PageSize, usableSize int) bool {
	return n >= firstPtrmapPage && PtrmapPageFor(n, pageSize, usableSize) == n
}

// PointerMapPage is a decoded pointer map page. Entries that were never
// written are zero and left out.
type PointerMapPage struct {
	Number  PageNumber
	Entries []PtrmapEntry
}

// DecodePointerMapPage decodes every entry on map page n. Entry i (1-based)
// describes page n+i.
func DecodePointerMapPage(n PageNumber, data []byte, usableSize int) (*PointerMapPage, error) {
	if n < firstPtrmapPage {
		return nil, invalidPageNumber("page %d can't be a pointer map page", n)
	}
	if usableSize > len(data) {
		return nil, fmt.Errorf("usable size %d does not fit page %d of %d bytes", usableSize, n, len(data))
	}

	aMapPage := &PointerMapPage{Number: n}
	for i := range PtrmapEntriesPerPage(usableSize) {
		buf := data[i*ptrmapEntrySize : (i+1)*ptrmapEntrySize]
		if isZero(buf) {
			continue
		}
		entry, err := decodePtrmapEntry(n+PageNumber(i)+1, buf)
		if err != nil {
			return nil, err
		}
		aMapPage.Entries = append(aMapPage.Entries, entry)
	}

	return aMapPage, nil
}

// ReadPointerMapEntry reads the back-link of page n from its pointer map page.
func ReadPointerMapEntry(r PageReader, header FileHeader, n PageNumber) (PtrmapEntry, error) {
	if !header.HasPointerMap() {
		return PtrmapEntry{}, ErrNoPointerMap
	}

	usable := header.UsableSize()
	if n < firstPtrmapPage+1 {
		return PtrmapEntry{}, invalidPageNumber("page %d has no pointer map entry", n)
	}
	if IsPtrmapPage(n, header.PageSize, usable) {
		return PtrmapEntry{}, invalidPageNumber("page %d is a pointer map page", n)
	}
	if n == LockBytePage(header.PageSize) {
		return PtrmapEntry{}, invalidPageNumber("page %d is the lock-byte page", n)
	}

	mapPageNumber := PtrmapPageFor(n, header.PageSize, usable)
	aPage, err := r.Read(mapPageNumber)
	if err != nil {
		return PtrmapEntry{}, fmt.Errorf("read pointer map page %d: %w", mapPageNumber, err)
	}

	offset := int(n-mapPageNumber-1) * ptrmapEntrySize
	if offset+ptrmapEntrySize > usable {
		return PtrmapEntry{}, invalidPageNumber("page %d is not covered by pointer map page %d", n, mapPageNumber)
	}
	return decodePtrmapEntry(n, aPage.Data()[offset:offset+ptrmapEntrySize])
}

func isZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
