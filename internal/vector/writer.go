package vector

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/embedding"
	"github.com/rohankatakam/codegraph/internal/errors"
)

// DefaultBatchSize is the number of records per upsert call.
const DefaultBatchSize = 100

// Writer embeds chunks and upserts them in fixed-size batches.
type Writer struct {
	store       Store
	embedder    embedding.Embedder
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// WriteStats summarizes one Write call.
type WriteStats struct {
	Embedded int
	Dropped  int
	Upserted int
	Batches  int
}

// NewWriter builds a Writer. Non-positive sizes fall back to defaults.
func NewWriter(store Store, embedder embedding.Embedder, batchSize, concurrency int) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Writer{
		store:       store,
		embedder:    embedder,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "vector_writer"),
	}
}

// sampleRecord is the loggable shape of a rejected record. Full embeddings
// are thousands of floats, so only the head is kept.
type sampleRecord struct {
	ID         string         `json:"id"`
	Dimensions int            `json:"dimensions"`
	ValuesHead []float32      `json:"values_head"`
	Metadata   map[string]any `json:"metadata"`
}

func sampleOf(r Record) sampleRecord {
	head := r.Embedding
	if len(head) > 8 {
		head = head[:8]
	}
	return sampleRecord{ID: r.ID, Dimensions: len(r.Embedding), ValuesHead: head, Metadata: r.Metadata}
}

// Write embeds every chunk with bounded concurrency, drops chunks whose
// embedding failed, and upserts the rest in order. A failed batch stops the
// write and is returned as an UpsertError carrying a sample record.
func (w *Writer) Write(ctx context.Context, chunks []chunking.Chunk) (WriteStats, error) {
	var stats WriteStats
	embedded := make([]*Record, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := w.embedder.Embed(gctx, c.Text, embedding.PurposeDocument)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				w.logger.Warn("embedding failed, chunk dropped", "error", errors.EmbeddingError(err, c.ID))
				return nil
			}
			embedded[i] = &Record{ID: c.ID, Embedding: vec, Metadata: FlattenMetadata(c.Metadata())}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	records := make([]Record, 0, len(chunks))
	for _, r := range embedded {
		if r != nil {
			records = append(records, *r)
		}
	}
	stats.Embedded = len(records)
	stats.Dropped = len(chunks) - len(records)
	w.logger.Info("chunks embedded", "embedded", stats.Embedded, "dropped", stats.Dropped)

	for start := 0; start < len(records); start += w.batchSize {
		end := min(start+w.batchSize, len(records))
		batch := records[start:end]
		if err := w.store.Upsert(ctx, batch); err != nil {
			return stats, errors.UpsertError(err, stats.Batches+1, sampleOf(batch[0]))
		}
		stats.Batches++
		stats.Upserted += len(batch)
		w.logger.Debug("batch upserted", "batch", stats.Batches, "records", len(batch))
	}
	return stats, nil
}

// Search embeds a query and returns the topK nearest chunks.
func Search(ctx context.Context, store Store, embedder embedding.Embedder, query string, topK int) ([]Match, error) {
	vec, err := embedder.Embed(ctx, query, embedding.PurposeQuery)
	if err != nil {
		return nil, errors.EmbeddingError(err, "query")
	}
	return store.Query(ctx, vec, topK)
}
