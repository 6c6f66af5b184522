package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mnemora/mnemora/internal/domain"
)

const defaultCacheSize = 4096

// Cache wraps an embedding client with an LRU keyed by content hash.
// Semantic recall embeds every memory on each query, so the hit rate is
// effectively the fraction of the graph that did not change since the last
// query.
type Cache struct {
	inner domain.EmbeddingClient
	lru   *lru.Cache[string, []float32]
}

// NewCache wraps inner. size <= 0 uses the default capacity.
func NewCache(inner domain.EmbeddingClient, size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cache{inner: inner, lru: cache}, nil
}

func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentKey(text)
	if vec, ok := c.lru.Get(key); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, vec)
	return vec, nil
}

// Len reports how many embeddings are currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func contentKey(text string) string {
	digest := sha256.Sum256([]byte(text))
	return hex.EncodeToString(digest[:])
}
