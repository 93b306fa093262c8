package litefile

import (
	"encoding/binary"
	"fmt"
)

const overflowPageHeaderSize = 4

// OverflowPage holds payload that did not fit into its cell. Data spans from
// byte 4 up to the usable size, only the last page of a chain is partially used.
type OverflowPage struct {
	Number   PageNumber
	NextPage PageNumber // 0 if last page
	Data     []byte
}

func DecodeOverflowPage(n PageNumber, data []byte, usableSize int) (*OverflowPage, error) {
	if n == 0 {
		return nil, invalidPageNumber("page numbers start at 1")
	}
	if usableSize > len(data) {
		return nil, fmt.Errorf("usable size %d does not fit page %d of %d bytes", usableSize, n, len(data))
	}
	if err := checkPayload(FieldOverflowPage, data[:usableSize], overflowPageHeaderSize+1); err != nil {
		return nil, err
	}

	return &OverflowPage{
		Number:   n,
		NextPage: PageNumber(binary.BigEndian.Uint32(data)),
		Data:     data[overflowPageHeaderSize:usableSize],
	}, nil
}

// OverflowChain lists the pages a cell's payload spilled onto, in chain order,
// and the reassembled payload.
type OverflowChain struct {
	Pages   []PageNumber
	Payload []byte
}

// ReadOverflowChain follows the chain starting at first until size bytes were
// collected. A chain that ends early, runs on past the payload or revisits a
// page is an error.
func ReadOverflowChain(r PageReader, first PageNumber, size uint64, usableSize int) (*OverflowChain, error) {
	var (
		chain   = new(OverflowChain)
		visited = make(map[PageNumber]struct{})
		next    = first
	)

	for uint64(len(chain.Payload)) < size {
		if next == 0 {
			return nil, fieldError(FieldOverflowPage, "overflow chain from page %d ended after %d of %d bytes", first, len(chain.Payload), size)
		}
		if _, ok := visited[next]; ok {
			return nil, fieldError(FieldOverflowPage, "overflow chain from page %d loops back to page %d", first, next)
		}
		visited[next] = struct{}{}

		aPage, err := r.Read(next)
		if err != nil {
			return nil, fmt.Errorf("read overflow page %d: %w", next, err)
		}
		overflowPage, err := DecodeOverflowPage(aPage.Number, aPage.Data(), usableSize)
		if err != nil {
			return nil, err
		}

		remaining := size - uint64(len(chain.Payload))
		data := overflowPage.Data
		if uint64(len(data)) > remaining {
			data = data[:remaining]
		}
		chain.Pages = append(chain.Pages, overflowPage.Number)
		chain.Payload = append(chain.Payload, data...)
		next = overflowPage.NextPage
	}

	if next != 0 {
		return nil, fieldError(FieldOverflowPage, "overflow chain from page %d continues to page %d past the end of the payload", first, next)
	}

	return chain, nil
}

// FullPayload returns the cell's complete payload, reading overflow pages as needed.
func (c Cell) FullPayload(r PageReader, usableSize int) ([]byte, error) {
	if !c.HasOverflow() {
		return c.Payload, nil
	}

	chain, err := ReadOverflowChain(r, c.FirstOverflowPage, c.PayloadSize-uint64(len(c.Payload)), usableSize)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, 0, c.PayloadSize)
	payload = append(payload, c.Payload...)
	return append(payload, chain.Payload...), nil
}
