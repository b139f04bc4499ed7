package source

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntries bounds the number of class files a CachingReader keeps.
const DefaultCacheEntries = 512

// CachingReader serves bytecode through an LRU cache keyed by source and
// class name. Generated sources already hold their bytes and bypass the cache.
// Failed lookups are not cached.
type CachingReader struct {
	cache *lru.Cache[string, []byte]
}

// NewCachingReader returns a reader holding at most size entries. A size of
// zero or less selects DefaultCacheEntries.
func NewCachingReader(size int) *CachingReader {
	if size <= 0 {
		size = DefaultCacheEntries
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &CachingReader{cache: c}
}

// Code returns the bytecode of className from src.
func (r *CachingReader) Code(src Source, className string) ([]byte, error) {
	if _, ok := src.(Generated); ok {
		return src.Code(className)
	}
	key := src.Key() + "#" + className
	if b, ok := r.cache.Get(key); ok {
		return append([]byte(nil), b...), nil
	}
	b, err := src.Code(className)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, b)
	return append([]byte(nil), b...), nil
}

// Len reports the number of cached entries.
func (r *CachingReader) Len() int { return r.cache.Len() }

// Purge drops every cached entry.
func (r *CachingReader) Purge() { r.cache.Purge() }
