package derivedkey

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of derived keys kept by NewCache(0)
const DefaultCacheSize = 1024

type cacheKey struct {
	baseID    string
	algorithm string
	label     string
	nonce     string
	offset    int
	length    int
}

// Cache remembers derived keys per base token and derivation parameters.
// It is safe for concurrent use.
type Cache struct {
	keys   *lru.Cache[cacheKey, []byte]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates a cache holding up to size derived keys
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	keys, err := lru.New[cacheKey, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create derived key cache: %w", err)
	}
	return &Cache{keys: keys}, nil
}

// Derive returns the derived key for the parameters, computing and storing
// it on a miss. The returned slice is a copy.
func (c *Cache) Derive(baseID string, secret []byte, p Params) ([]byte, error) {
	k := cacheKey{
		baseID:    baseID,
		algorithm: p.Algorithm,
		label:     string(p.Label),
		nonce:     string(p.Nonce),
		offset:    p.Offset,
		length:    p.Length,
	}
	if key, ok := c.keys.Get(k); ok {
		c.hits.Add(1)
		return clone(key), nil
	}
	c.misses.Add(1)

	key, err := Derive(p.Algorithm, secret, p.Label, p.Nonce, p.Offset, p.Length)
	if err != nil {
		return nil, err
	}
	c.keys.Add(k, clone(key))
	return key, nil
}

// Forget drops every cached key derived from baseID
func (c *Cache) Forget(baseID string) int {
	n := 0
	for _, k := range c.keys.Keys() {
		if k.baseID == baseID && c.keys.Remove(k) {
			n++
		}
	}
	return n
}

// Len returns the number of cached keys
func (c *Cache) Len() int {
	return c.keys.Len()
}

// Stats returns hit and miss counts
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Purge empties the cache
func (c *Cache) Purge() {
	c.keys.Purge()
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
