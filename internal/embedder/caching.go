package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/maypok86/otter"
)

// cacheKey identifies one (mode, text) embedding request.
type cacheKey struct {
	mode Mode
	hash string
}

// Caching wraps any Embedder with an in-memory LRU cache keyed by
// (mode, content-hash), grounded on the teacher's internal/graph/searcher.go
// use of github.com/maypok86/otter. It gives otter a home in the stack
// without pretending to ship real model weights, which are out of scope.
// Caching is purely an optimization: a cache miss always falls through to
// the wrapped Embedder, so results are identical with or without it.
type Caching struct {
	inner Embedder
	cache otter.Cache[cacheKey, []float32]
}

// NewCaching wraps inner with an LRU cache holding up to capacity entries.
func NewCaching(inner Embedder, capacity int) (*Caching, error) {
	if capacity <= 0 {
		capacity = 10000
	}
	cache, err := otter.MustBuilder[cacheKey, []float32](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, err
	}
	return &Caching{inner: inner, cache: cache}, nil
}

func (c *Caching) Dimension() int  { return c.inner.Dimension() }
func (c *Caching) MaxTokens() int  { return c.inner.MaxTokens() }
func (c *Caching) ModelID() string { return c.inner.ModelID() }

func (c *Caching) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey{mode: ModeQuery, hash: contentHash(text)}
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	vec, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec)
	return vec, nil
}

// EmbedDocuments caches per-text, issuing exactly one inner call per miss
// batch so partially-cached batches still avoid re-embedding the cached
// subset.
func (c *Caching) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		key := cacheKey{mode: ModeDocument, hash: contentHash(t)}
		if v, ok := c.cache.Get(key); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Set(cacheKey{mode: ModeDocument, hash: contentHash(missTexts[j])}, vecs[j])
	}
	return out, nil
}

// Close releases cache resources.
func (c *Caching) Close() { c.cache.Close() }

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
