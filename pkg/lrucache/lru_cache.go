// Package lrucache is a small, size bounded, least recently used cache safe for
// concurrent use.
package lrucache

import (
	"sync"
)

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// Cache keeps at most maxSize entries. Get does not touch the recency list so
// lookups only take a read lock, GetAndPromote marks an entry as recently used.
type Cache[K comparable, V any] struct {
	entries map[K]*entry[K, V]
	head    *entry[K, V]
	tail    *entry[K, V]
	maxSize int
	mu      sync.RWMutex
}

// New returns an empty cache. A maxSize below one is treated as one.
func New[K comparable, V any](maxSize int) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*entry[K, V]),
		maxSize: max(maxSize, 1),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[K, V]) GetAndPromote(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put inserts or replaces the value under key and evicts the least recently
// used entry once the cache is over capacity.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxSize {
		c.evictLRU()
	}
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	clear(c.entries)
	c.head, c.tail = nil, nil
}

func (c *Cache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}

	if e.prev != nil {
		e.prev.next = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	}
	if e == c.tail {
		c.tail = e.prev
	}

	c.addToFront(e)
}

func (c *Cache[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil

	if c.head != nil {
		c.head.prev = e
	}
	c.head = e

	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache[K, V]) evictLRU() {
	if c.tail == nil {
		return
	}

	oldTail := c.tail
	c.tail = oldTail.prev

	if c.tail != nil {
		c.tail.next = nil
	} else {
		c.head = nil
	}

	delete(c.entries, oldTail.key)
}
