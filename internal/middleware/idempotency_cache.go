package middleware

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultIdempotencyEntries bounds the cache when no size is given.
const DefaultIdempotencyEntries = 10000

// cachedResponse is a replayable response.
type cachedResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IdempotencyCache stores responses by idempotency fingerprint. Entries expire after
// the TTL and the least recently used ones are evicted beyond the size bound.
type IdempotencyCache struct {
	lru *expirable.LRU[string, *cachedResponse]
}

// NewIdempotencyCache creates a cache of at most size responses kept for ttl.
func NewIdempotencyCache(size int, ttl time.Duration) *IdempotencyCache {
	if size <= 0 {
		size = DefaultIdempotencyEntries
	}
	return &IdempotencyCache{lru: expirable.NewLRU[string, *cachedResponse](size, nil, ttl)}
}

// Get returns the response stored under key.
func (c *IdempotencyCache) Get(key string) (*cachedResponse, bool) {
	return c.lru.Get(key)
}

// Set stores resp under key.
func (c *IdempotencyCache) Set(key string, resp *cachedResponse) {
	c.lru.Add(key, resp)
}

// Len returns the number of live entries.
func (c *IdempotencyCache) Len() int {
	return c.lru.Len()
}
