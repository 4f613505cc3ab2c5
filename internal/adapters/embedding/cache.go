package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// CachedEmbedder memoizes embeddings by exact text. Repeated questions and
// re-ingested chunks skip the embedding model entirely.
type CachedEmbedder struct {
	next  ports.EmbeddingService
	cache *ristretto.Cache[string, []float32]
}

// NewCachedEmbedder wraps next with a cache bounded to maxBytes of vectors.
func NewCachedEmbedder(next ports.EmbeddingService, maxBytes int64) (*CachedEmbedder, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding cache: %w", err)
	}
	return &CachedEmbedder{next: next, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v, int64(len(v)*4))
	return v, nil
}

// EmbedBatch embeds texts, consulting the cache per text.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Wait blocks until buffered cache writes are applied.
func (c *CachedEmbedder) Wait() {
	c.cache.Wait()
}

// Close releases the cache's background goroutines.
func (c *CachedEmbedder) Close() {
	c.cache.Close()
}
