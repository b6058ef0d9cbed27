package ingestion

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/treesitter"
)

// ParsedFile is a SourceFile after parsing and segmentation. Content is not
// carried forward; chunks hold the byte ranges that matter.
type ParsedFile struct {
	Path     string
	Language string
	Chunks   []chunking.Chunk
	Symbols  treesitter.Symbols
	// Fallback is true when no tree was available and the file became a
	// single module chunk for that reason.
	Fallback bool
}

// Processor parses and segments files in parallel.
type Processor struct {
	registry *treesitter.Registry
	workers  int
	logger   *slog.Logger
}

// NewProcessor builds a Processor. workers <= 0 uses 8.
func NewProcessor(registry *treesitter.Registry, workers int) *Processor {
	if workers <= 0 {
		workers = 8
	}
	return &Processor{
		registry: registry,
		workers:  workers,
		logger:   slog.Default().With("component", "processor"),
	}
}

// ProcessAll parses every file with bounded parallelism. The result keeps
// the input order.
func (p *Processor) ProcessAll(ctx context.Context, files []SourceFile) ([]ParsedFile, error) {
	out := make([]ParsedFile, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = p.Process(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Process parses one file. A missing grammar or a parser failure is logged
// as a ParseError and the file falls back to a single module chunk.
func (p *Processor) Process(f SourceFile) ParsedFile {
	pf := ParsedFile{Path: f.Path, Language: f.Language}

	if !p.registry.Supports(f.Language) {
		p.logger.Debug("no grammar, using module chunk", "path", f.Path, "language", f.Language)
		pf.Chunks = chunking.Segment(f.Path, f.Language, f.Content, nil)
		pf.Fallback = true
		return pf
	}

	tree, err := p.registry.Parse(f.Language, f.Extension, f.Content)
	if err != nil {
		p.logger.Warn("parse failed, using module chunk", "error", errors.ParseError(err, f.Path))
		pf.Chunks = chunking.Segment(f.Path, f.Language, f.Content, nil)
		pf.Fallback = true
		return pf
	}
	defer tree.Close()

	if tree.HasErrors() {
		p.logger.Debug("syntax errors recovered", "path", f.Path)
	}

	root := tree.Root()
	pf.Chunks = chunking.Segment(f.Path, f.Language, f.Content, root)
	pf.Symbols = treesitter.ExtractSymbols(root, f.Content)
	return pf
}
