package lrucache

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
)

const benchPageSize = 4096

func newBenchCache(size, filled int) *Cache[uint32, []byte] {
	cache := New[uint32, []byte](size)
	for i := range filled {
		cache.Put(uint32(i+1), make([]byte, benchPageSize))
	}
	return cache
}

func BenchmarkCache_Get(b *testing.B) {
	cache := newBenchCache(1000, 1000)

	keys := make([]uint32, b.N)
	for i := range keys {
		keys[i] = uint32(rand.Intn(1000) + 1)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Get(keys[i])
	}
}

// Page 1 is read before almost every other page, it is the hottest key.
func BenchmarkCache_GetAndPromote(b *testing.B) {
	cache := newBenchCache(1000, 1000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.GetAndPromote(1)
	}
}

func BenchmarkCache_PutEvicting(b *testing.B) {
	cache := newBenchCache(100, 0)
	page := make([]byte, benchPageSize)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cache.Put(uint32(i), page)
	}
}

func BenchmarkCache_ConcurrentMixed(b *testing.B) {
	for _, goroutines := range []int{2, 8} {
		b.Run(fmt.Sprintf("goroutines=%d", goroutines), func(b *testing.B) {
			cache := newBenchCache(1000, 1000)
			page := make([]byte, benchPageSize)
			perGoroutine := b.N / goroutines

			b.ResetTimer()

			var wg sync.WaitGroup
			for g := range goroutines {
				wg.Add(1)
				go func(start int) {
					defer wg.Done()
					for i := 0; i < perGoroutine; i++ {
						key := uint32((start+i)%1000 + 1)
						if i%5 == 0 {
							cache.Put(key, page)
						} else {
							cache.Get(key)
						}
					}
				}(g * perGoroutine)
			}
			wg.Wait()
		})
	}
}
