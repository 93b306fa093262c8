package litefile

import (
	"github.com/RichardKnop/litefile/internal/litefile"
	"github.com/RichardKnop/litefile/pkg/lrucache"
)

// cachedPager keeps recently read pages in memory. Cached pages are never
// handed out directly, every hit returns a copy.
type cachedPager struct {
	pager *litefile.Pager
	cache *lrucache.Cache[litefile.PageNumber, *litefile.Page]
}

func newCachedPager(aPager *litefile.Pager, maxPages int) *cachedPager {
	return &cachedPager{
		pager: aPager,
		cache: lrucache.New[litefile.PageNumber, *litefile.Page](maxPages),
	}
}

// Read serves page n from the cache, a hit makes it the most recently used page.
func (c *cachedPager) Read(n litefile.PageNumber) (*litefile.Page, error) {
	if aPage, ok := c.cache.GetAndPromote(n); ok {
		return aPage.Clone(), nil
	}
	return c.load(n)
}

func (c *cachedPager) First() (*litefile.Page, error) {
	return c.Read(1)
}

func (c *cachedPager) load(n litefile.PageNumber) (*litefile.Page, error) {
	aPage, err := c.pager.Read(n)
	if err != nil {
		return nil, err
	}
	c.cache.Put(n, aPage.Clone())
	return aPage, nil
}
