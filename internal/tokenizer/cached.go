package tokenizer

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 4096

// Cached wraps a Tokenizer with an LRU cache of token counts. BPE counting
// is the hot path of every idearium mutation; the same content is recounted
// on each budget check, so caching by exact content pays off quickly.
// Encode/Decode pass through uncached.
type Cached struct {
	inner  Tokenizer
	counts *lru.Cache[string, int]
}

// NewCached wraps inner with a count cache of the given size.
// size <= 0 uses a default.
func NewCached(inner Tokenizer, size int) *Cached {
	if size <= 0 {
		size = defaultCacheSize
	}
	// lru.New only fails on size <= 0, which is handled above.
	cache, _ := lru.New[string, int](size)
	return &Cached{inner: inner, counts: cache}
}

func (c *Cached) Count(text string) int {
	if n, ok := c.counts.Get(text); ok {
		return n
	}
	n := c.inner.Count(text)
	c.counts.Add(text, n)
	return n
}

func (c *Cached) Encode(text string) []int { return c.inner.Encode(text) }

func (c *Cached) Decode(tokens []int) string { return c.inner.Decode(tokens) }
