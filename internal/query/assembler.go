// Package query joins vector retrieval with graph expansion to build the
// context an answer is grounded in.
package query

import (
	"context"
	"log/slog"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/embedding"
	"github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/vector"
)

// Defaults for Options fields left at zero.
const (
	DefaultTopK          = 5
	DefaultMaxHops       = 2
	DefaultNeighborLimit = 10
)

// Options bound retrieval and expansion.
type Options struct {
	TopK          int
	MaxHops       int
	NeighborLimit int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MaxHops <= 0 {
		o.MaxHops = DefaultMaxHops
	}
	if o.NeighborLimit <= 0 {
		o.NeighborLimit = DefaultNeighborLimit
	}
	return o
}

// Location identifies where a retrieved chunk lives.
type Location struct {
	File     string `json:"file"`
	Symbol   string `json:"symbol"`
	Type     string `json:"type"`
	Language string `json:"language"`
}

// Entry is one retrieved chunk and the graph neighbors first reached
// through it.
type Entry struct {
	ID           string           `json:"id"`
	Code         string           `json:"code"`
	Metadata     Location         `json:"metadata"`
	Score        float64          `json:"score"`
	GraphContext []graph.Neighbor `json:"graphContext"`
}

// Context is the assembled grounding for one question.
type Context struct {
	Query   string  `json:"query"`
	Entries []Entry `json:"context"`
}

// Assembler builds a Context from the vector and graph stores.
type Assembler struct {
	vectors  vector.Store
	graph    graph.Store
	embedder embedding.Embedder
	opts     Options
	logger   *slog.Logger
}

// NewAssembler wires the stores and embedder.
func NewAssembler(vectors vector.Store, g graph.Store, embedder embedding.Embedder, opts Options) *Assembler {
	return &Assembler{
		vectors:  vectors,
		graph:    g,
		embedder: embedder,
		opts:     opts.withDefaults(),
		logger:   slog.Default().With("component", "query"),
	}
}

// Build retrieves the top-K chunks for question and expands each through
// the graph. A neighbor id appears at most once per Context, under the first
// entry that reached it. Expansion failures are logged and leave that entry
// with no neighbors; retrieval failures are returned.
func (a *Assembler) Build(ctx context.Context, question string) (*Context, error) {
	matches, err := vector.Search(ctx, a.vectors, a.embedder, question, a.opts.TopK)
	if err != nil {
		return nil, err
	}

	out := &Context{Query: question, Entries: make([]Entry, 0, len(matches))}
	seen := make(map[string]bool)

	for _, m := range matches {
		entry := entryFromMatch(m)
		entry.GraphContext = []graph.Neighbor{}

		seed := seedID(m.ID, entry.Metadata)
		neighbors, err := a.graph.Neighbors(ctx, seed, graph.ExpansionKinds, a.opts.MaxHops, a.opts.NeighborLimit)
		if err != nil {
			a.logger.Warn("graph expansion skipped", "error", errors.GraphExpansionError(err, m.ID))
		}
		for _, n := range neighbors {
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			entry.GraphContext = append(entry.GraphContext, n)
		}

		out.Entries = append(out.Entries, entry)
	}

	a.logger.Debug("context assembled", "query", question, "entries", len(out.Entries), "neighbors", len(seen))
	return out, nil
}

func entryFromMatch(m vector.Match) Entry {
	str := func(k string) string {
		s, _ := m.Metadata[k].(string)
		return s
	}
	return Entry{
		ID:    m.ID,
		Code:  str("text"),
		Score: m.Score,
		Metadata: Location{
			File:     str("file"),
			Symbol:   str("symbol"),
			Type:     str("type"),
			Language: str("language"),
		},
	}
}

// seedID maps a chunk to its graph node: module chunks are represented by
// their Module node, keyed by file path.
func seedID(chunkID string, loc Location) string {
	if loc.Type == string(chunking.KindModule) {
		if loc.File != "" {
			return loc.File
		}
		return chunking.FileFromID(chunkID)
	}
	return chunkID
}
