package auth

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TokenCache remembers the claims of recently verified tokens so repeated
// requests with the same token skip signature verification.
type TokenCache struct {
	cache  *expirable.LRU[string, *Claims]
	hits   int64
	misses int64
}

// NewTokenCache creates a TokenCache holding up to size tokens for at most ttl.
func NewTokenCache(size int, ttl time.Duration) *TokenCache {
	return &TokenCache{cache: expirable.NewLRU[string, *Claims](size, nil, ttl)}
}

// Get returns the cached claims of token.
func (tc *TokenCache) Get(token string) (*Claims, bool) {
	claims, found := tc.cache.Get(token)
	if found {
		atomic.AddInt64(&tc.hits, 1)
	} else {
		atomic.AddInt64(&tc.misses, 1)
	}
	return claims, found
}

// Add caches the claims of a verified token.
func (tc *TokenCache) Add(token string, claims *Claims) {
	tc.cache.Add(token, claims)
}

// Remove forgets token.
func (tc *TokenCache) Remove(token string) {
	tc.cache.Remove(token)
}

// Purge forgets every token.
func (tc *TokenCache) Purge() {
	tc.cache.Purge()
}

// Len returns the number of cached tokens.
func (tc *TokenCache) Len() int {
	return tc.cache.Len()
}

// Stats returns hit and miss counts.
func (tc *TokenCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&tc.hits), atomic.LoadInt64(&tc.misses)
}
