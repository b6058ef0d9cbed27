package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/codegraph/internal/cache"
	"github.com/rohankatakam/codegraph/internal/config"
	"github.com/rohankatakam/codegraph/internal/embedding"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/llm"
	"github.com/rohankatakam/codegraph/internal/query"
	"github.com/rohankatakam/codegraph/internal/vector"
)

// deps holds the clients a command needs. close releases whatever was opened.
type deps struct {
	graph    graph.Store
	vectors  vector.Store
	embedder embedding.Embedder
	closers  []func() error
}

func (d *deps) close(ctx context.Context) {
	if d.graph != nil {
		if err := d.graph.Close(ctx); err != nil {
			logger.WithError(err).Warn("Failed to close graph store")
		}
	}
	if d.vectors != nil {
		if err := d.vectors.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close vector store")
		}
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("Failed to release resource")
		}
	}
}

// openStores connects the graph and vector stores. withEmbedder also
// builds the embedding chain (cache, quota and rate limiting).
func openStores(ctx context.Context, c *config.Config, withEmbedder bool) (*deps, error) {
	d := &deps{}

	g, err := graph.Open(ctx, graph.Config{
		Backend:  c.Graph.Backend,
		URI:      c.Graph.URI,
		User:     c.Graph.User,
		Password: c.Graph.Password,
		Database: c.Graph.Database,
		KuzuPath: c.Graph.KuzuPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	d.graph = g

	v, err := vector.Open(ctx, vector.Config{
		Backend:    c.Vector.Backend,
		DSN:        c.Vector.DSN,
		SQLitePath: c.Vector.SQLitePath,
		Table:      c.Vector.Table,
		Dimensions: c.Embedding.Dimensions,
	})
	if err != nil {
		d.close(ctx)
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	d.vectors = v

	if withEmbedder {
		if d.embedder, err = buildEmbedder(ctx, c, d); err != nil {
			d.close(ctx)
			return nil, err
		}
	}

	logger.WithFields(logrus.Fields{
		"graph":  c.Graph.Backend,
		"vector": c.Vector.Backend,
	}).Debug("Stores opened")
	return d, nil
}

// buildEmbedder wraps the provider client: requests are rate limited
// before they reach the provider, and cache hits skip both.
func buildEmbedder(ctx context.Context, c *config.Config, d *deps) (embedding.Embedder, error) {
	base, err := embedding.New(ctx, embedding.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		Dimensions: c.Embedding.Dimensions,
		APIKey:     c.LLM.APIKey(c.Embedding.Provider),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	limiters := []embedding.Limiter{embedding.NewLocalLimiter(c.Ingest.EmbedRPS)}
	if c.Ingest.QuotaRPM > 0 {
		quota, err := embedding.NewRedisQuota(ctx, c.Cache.RedisAddr, "codegraph:quota:"+base.Model(), c.Ingest.QuotaRPM, c.Ingest.QuotaRPD)
		if err != nil {
			return nil, fmt.Errorf("failed to connect embedding quota: %w", err)
		}
		d.closers = append(d.closers, quota.Close)
		limiters = append(limiters, quota)
	}
	var emb embedding.Embedder = embedding.NewRateLimited(base, limiters...)

	cc, err := cache.Open(ctx, cache.Config{
		Backend:   c.Cache.Backend,
		RedisAddr: c.Cache.RedisAddr,
		RedisDB:   c.Cache.RedisDB,
		BoltPath:  c.Cache.BoltPath,
		TTL:       c.Cache.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	if cc != nil {
		d.closers = append(d.closers, cc.Close)
	}
	return embedding.NewCached(emb, cc), nil
}

func newAssembler(c *config.Config, d *deps) *query.Assembler {
	return query.NewAssembler(d.vectors, d.graph, d.embedder, query.Options{
		TopK:          c.Query.TopK,
		MaxHops:       c.Query.MaxHops,
		NeighborLimit: c.Query.NeighborLimit,
	})
}

func newSynthesizer(ctx context.Context, c *config.Config) (*llm.Synthesizer, error) {
	gen, err := llm.NewGenerator(ctx, llm.Config{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey(c.LLM.Provider),
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return llm.NewSynthesizer(gen, c.LLM.Timeout), nil
}
