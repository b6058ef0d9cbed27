package embedding

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/rohankatakam/codegraph/internal/cache"
)

// Cached serves repeat embeddings of identical text from a cache. Cache
// failures are logged and fall through to the provider.
type Cached struct {
	next   Embedder
	cache  cache.Cache
	logger *slog.Logger
}

// NewCached wraps next. A nil cache returns next unchanged.
func NewCached(next Embedder, c cache.Cache) Embedder {
	if c == nil {
		return next
	}
	return &Cached{next: next, cache: c, logger: slog.Default().With("component", "embedding_cache")}
}

func (c *Cached) key(text string, purpose Purpose) string {
	return cache.Key("emb", c.next.Model(), strconv.Itoa(c.next.Dimensions()), purpose.String(), text)
}

func (c *Cached) Embed(ctx context.Context, text string, purpose Purpose) ([]float32, error) {
	key := c.key(text, purpose)

	var vec []float32
	found, err := c.cache.Get(ctx, key, &vec)
	if err != nil {
		c.logger.Warn("cache read failed", "error", err)
	} else if found {
		return vec, nil
	}

	vec, err = c.next.Embed(ctx, text, purpose)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, vec); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
	return vec, nil
}

func (c *Cached) Model() string   { return c.next.Model() }
func (c *Cached) Dimensions() int { return c.next.Dimensions() }
