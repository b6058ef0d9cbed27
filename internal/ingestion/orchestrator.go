// Package ingestion turns a source tree into graph and vector index entries.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/vector"
)

// Pipeline runs scan, parse, graph sync, linking and vector writes.
type Pipeline struct {
	scanner   *Scanner
	processor *Processor
	store     graph.Store
	writer    *graph.Writer
	linker    *graph.Linker
	vectors   *vector.Writer
	workers   int
	logger    *slog.Logger
}

// NewPipeline wires the stages together. workers bounds both parsing and
// concurrent graph file syncs.
func NewPipeline(scanner *Scanner, processor *Processor, store graph.Store, vectors *vector.Writer, workers int) *Pipeline {
	if workers <= 0 {
		workers = 8
	}
	return &Pipeline{
		scanner:   scanner,
		processor: processor,
		store:     store,
		writer:    graph.NewWriter(store),
		linker:    graph.NewLinker(store),
		vectors:   vectors,
		workers:   workers,
		logger:    slog.Default().With("component", "pipeline"),
	}
}

// Result summarizes one ingestion run.
type Result struct {
	Root      string
	Files     int
	Fallbacks int
	Chunks    int
	Functions int
	Classes   int
	Modules   int
	Imports   int
	Calls     int
	Vectors   vector.WriteStats
	Duration  time.Duration
}

// Run ingests everything under root. Scan, graph and upsert failures are
// returned; per-file parse and per-chunk embedding failures are logged.
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	start := time.Now()
	result := &Result{Root: root}

	if err := p.store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to init graph schema: %w", err)
	}

	files, err := p.scanner.Scan(root)
	if err != nil {
		return nil, err
	}
	result.Files = len(files)

	parsed, err := p.processor.ProcessAll(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("failed to parse files: %w", err)
	}

	var chunks []chunking.Chunk
	for _, pf := range parsed {
		if pf.Fallback {
			result.Fallbacks++
		}
		for _, c := range pf.Chunks {
			switch c.Kind {
			case chunking.KindFunction:
				result.Functions++
			case chunking.KindClass:
				result.Classes++
			case chunking.KindModule:
				result.Modules++
			}
		}
		chunks = append(chunks, pf.Chunks...)
	}
	result.Chunks = len(chunks)
	p.logger.Info("files chunked",
		"files", result.Files,
		"chunks", result.Chunks,
		"fallbacks", result.Fallbacks,
	)

	if err := p.syncGraph(ctx, parsed); err != nil {
		return nil, err
	}

	facts := make([]graph.FileFacts, len(parsed))
	for i, pf := range parsed {
		facts[i] = graph.FileFacts{Path: pf.Path, Language: pf.Language, Symbols: pf.Symbols, Chunks: pf.Chunks}
	}
	linked, err := p.linker.Link(ctx, facts)
	if err != nil {
		return nil, fmt.Errorf("failed to link files: %w", err)
	}
	result.Imports, result.Calls = linked.Imports, linked.Calls

	result.Vectors, err = p.vectors.Write(ctx, chunks)
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		"duration", result.Duration,
		"files", result.Files,
		"chunks", result.Chunks,
		"vectors", result.Vectors.Upserted,
		"dropped", result.Vectors.Dropped,
		"imports", result.Imports,
		"calls", result.Calls,
	)
	return result, nil
}

// syncGraph writes each file's nodes and containment edges. Files are
// independent, so they are synced in parallel.
func (p *Pipeline) syncGraph(ctx context.Context, parsed []ParsedFile) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, pf := range parsed {
		g.Go(func() error {
			return p.writer.SyncFile(gctx, pf.Path, pf.Language, pf.Chunks)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to sync graph: %w", err)
	}
	p.logger.Info("graph synced", "files", len(parsed))
	return nil
}
