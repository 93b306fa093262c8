package litefile

import (
	"encoding/binary"
	"fmt"
)

const freelistTrunkHeaderSize = 8

// FreelistTrunkPage is a page of the freelist trunk chain. It lists freelist
// leaf pages, which carry no information of their own.
type FreelistTrunkPage struct {
	Number   PageNumber
	NextPage PageNumber // 0 if last trunk
	Leaves   []PageNumber
}

// maxFreelistLeaves is how many leaf page numbers a trunk page may hold.
func maxFreelistLeaves(usableSize int) int {
	return usableSize/4 - 2
}

func DecodeFreelistTrunkPage(n PageNumber, data []byte, usableSize int) (*FreelistTrunkPage, error) {
	if n == 0 {
		return nil, invalidPageNumber("page numbers start at 1")
	}
	if usableSize > len(data) {
		return nil, fmt.Errorf("usable size %d does not fit page %d of %d bytes", usableSize, n, len(data))
	}
	if err := checkPayload(FieldFreelistTrunkPage, data[:usableSize], freelistTrunkHeaderSize); err != nil {
		return nil, err
	}

	i := 0

	aTrunk := &FreelistTrunkPage{Number: n}
	aTrunk.NextPage = PageNumber(binary.BigEndian.Uint32(data[i:]))
	i += 4

	leafCount := binary.BigEndian.Uint32(data[i:])
	i += 4

	if leafCount > uint32(maxFreelistLeaves(usableSize)) {
		return nil, fieldError(FieldFreelistTrunkPage, "trunk page %d claims %d leaves, at most %d fit", n, leafCount, maxFreelistLeaves(usableSize))
	}

	aTrunk.Leaves = make([]PageNumber, 0, leafCount)
	for range leafCount {
		leaf := PageNumber(binary.BigEndian.Uint32(data[i:]))
		if leaf == 0 {
			return nil, fieldError(FieldFreelistTrunkPage, "trunk page %d lists page 0 as a leaf", n)
		}
		aTrunk.Leaves = append(aTrunk.Leaves, leaf)
		i += 4
	}

	return aTrunk, nil
}

// Freelist is the decoded trunk chain of a database.
type Freelist struct {
	Trunks []*FreelistTrunkPage
}

// PageCount counts trunk and leaf pages, this is what the header stores at offset 36.
func (f *Freelist) PageCount() uint32 {
	count := uint32(len(f.Trunks))
	for _, aTrunk := range f.Trunks {
		count += uint32(len(aTrunk.Leaves))
	}
	return count
}

// Pages returns every free page number, trunks and leaves in chain order.
func (f *Freelist) Pages() []PageNumber {
	pages := make([]PageNumber, 0, f.PageCount())
	for _, aTrunk := range f.Trunks {
		pages = append(pages, aTrunk.Number)
		pages = append(pages, aTrunk.Leaves...)
	}
	return pages
}

// ReadFreelist walks the trunk chain referenced by the header. The number of
// pages found must match the header's freelist total.
func ReadFreelist(r PageReader, header FileHeader) (*Freelist, error) {
	var (
		aFreelist = new(Freelist)
		visited   = make(map[PageNumber]struct{})
		usable    = header.UsableSize()
	)

	for next := header.FreelistTrunkPage; next != 0; {
		if _, ok := visited[next]; ok {
			return nil, fieldError(FieldFreelistTrunkPage, "freelist trunk chain loops back to page %d", next)
		}
		visited[next] = struct{}{}

		aPage, err := r.Read(next)
		if err != nil {
			return nil, fmt.Errorf("read freelist trunk page %d: %w", next, err)
		}
		aTrunk, err := DecodeFreelistTrunkPage(aPage.Number, aPage.Data(), usable)
		if err != nil {
			return nil, err
		}
		aFreelist.Trunks = append(aFreelist.Trunks, aTrunk)

		if aFreelist.PageCount() > header.FreelistPageCount {
			return nil, fieldError(FieldFreelistTrunkPage, "freelist has more pages than the %d recorded in the header", header.FreelistPageCount)
		}
		next = aTrunk.NextPage
	}

	if count := aFreelist.PageCount(); count != header.FreelistPageCount {
		return nil, fieldError(FieldFreelistTrunkPage, "freelist has %d pages, header records %d", count, header.FreelistPageCount)
	}

	return aFreelist, nil
}
