package litefile

// PageReader is anything that returns pages by number. *Pager implements it, so
// do caching decorators living outside of this package.
type PageReader interface {
	Read(PageNumber) (*Page, error)
}

// FirstPageReader can also return page 1 directly.
type FirstPageReader interface {
	PageReader
	First() (*Page, error)
}

// BtreePageReader reads page n and decodes its b-tree structure.
func BtreePageReader(r PageReader, n PageNumber, usableSize int) (*BtreePage, error) {
	aPage, err := r.Read(n)
	if err != nil {
		return nil, err
	}
	return DecodeBtreePage(aPage.Number, aPage.Data(), usableSize)
}
