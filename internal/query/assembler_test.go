package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/embedding"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/vector"
)

// axisEmbedder maps known texts to fixed vectors so ranking is predictable.
type axisEmbedder struct {
	vecs map[string][]float32
}

func (a axisEmbedder) Embed(_ context.Context, text string, _ embedding.Purpose) ([]float32, error) {
	if v, ok := a.vecs[text]; ok {
		return v, nil
	}
	return nil, errors.New("unknown text")
}

func (axisEmbedder) Model() string   { return "axis" }
func (axisEmbedder) Dimensions() int { return 3 }

type failingGraph struct{ graph.Store }

func (failingGraph) Neighbors(context.Context, string, []graph.EdgeKind, int, int) ([]graph.Neighbor, error) {
	return nil, errors.New("connection refused")
}

func fixture(t *testing.T) (vector.Store, *graph.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	chunks := []chunking.Chunk{
		{ID: "a.js#add", ParentID: "a.js", File: "a.js", Symbol: "add", Kind: chunking.KindFunction, Language: "javascript", Text: "function add(a,b){return a+b;}"},
		{ID: "a.js#sum", ParentID: "a.js", File: "a.js", Symbol: "sum", Kind: chunking.KindFunction, Language: "javascript", Text: "function sum(xs){}"},
		chunking.ModuleChunk("cfg.py", "python", []byte("X = 1\n")),
	}

	g := graph.NewMemoryStore()
	w := graph.NewWriter(g)
	require.NoError(t, w.SyncFile(ctx, "a.js", "javascript", chunks[:2]))
	require.NoError(t, w.SyncFile(ctx, "cfg.py", "python", chunks[2:]))
	_, err := g.MergeEdges(ctx, []graph.GraphEdge{
		{Kind: graph.Calls, FromLabel: graph.LabelFunction, From: "a.js#sum", ToLabel: graph.LabelFunction, To: "a.js#add"},
	})
	require.NoError(t, err)

	v := vector.NewMemoryStore()
	vecs := [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 0, 1}}
	for i, c := range chunks {
		require.NoError(t, v.Upsert(ctx, []vector.Record{{ID: c.ID, Embedding: vecs[i], Metadata: c.Metadata()}}))
	}
	return v, g
}

func TestAssembler_Build(t *testing.T) {
	v, g := fixture(t)
	emb := axisEmbedder{vecs: map[string][]float32{"how do I add numbers?": {1, 0, 0}}}
	a := NewAssembler(v, g, emb, Options{TopK: 2})

	got, err := a.Build(context.Background(), "how do I add numbers?")
	require.NoError(t, err)

	assert.Equal(t, "how do I add numbers?", got.Query)
	require.Len(t, got.Entries, 2)

	first := got.Entries[0]
	assert.Equal(t, "a.js#add", first.ID)
	assert.Equal(t, "function add(a,b){return a+b;}", first.Code)
	assert.Equal(t, Location{File: "a.js", Symbol: "add", Type: "function", Language: "javascript"}, first.Metadata)

	var firstIDs []string
	for _, n := range first.GraphContext {
		firstIDs = append(firstIDs, n.ID)
	}
	assert.ElementsMatch(t, []string{"a.js", "a.js#sum"}, firstIDs)

	// the module was already reached through the first entry
	second := got.Entries[1]
	assert.Equal(t, "a.js#sum", second.ID)
	assert.Equal(t, []graph.Neighbor{{ID: "a.js#add", Type: "Function", Name: "add"}}, second.GraphContext)
}

func TestAssembler_NoDuplicateNeighbors(t *testing.T) {
	v, g := fixture(t)
	emb := axisEmbedder{vecs: map[string][]float32{"q": {0.5, 0.5, 0.5}}}
	got, err := NewAssembler(v, g, emb, Options{TopK: 3}).Build(context.Background(), "q")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, e := range got.Entries {
		for _, n := range e.GraphContext {
			assert.False(t, seen[n.ID], "duplicate neighbor %s", n.ID)
			seen[n.ID] = true
		}
	}
}

func TestAssembler_ModuleChunkSeedsFromModuleNode(t *testing.T) {
	ctx := context.Background()
	g := graph.NewMemoryStore()
	w := graph.NewWriter(g)
	require.NoError(t, w.SyncFile(ctx, "lib.js", "javascript", []chunking.Chunk{
		{ID: "lib.js#helper", ParentID: "lib.js", File: "lib.js", Symbol: "helper", Kind: chunking.KindFunction},
	}))

	v := vector.NewMemoryStore()
	mod := chunking.ModuleChunk("lib.js", "javascript", []byte("module.exports = {}"))
	require.NoError(t, v.Upsert(ctx, []vector.Record{{ID: mod.ID, Embedding: []float32{1, 0, 0}, Metadata: mod.Metadata()}}))

	emb := axisEmbedder{vecs: map[string][]float32{"q": {1, 0, 0}}}
	got, err := NewAssembler(v, g, emb, Options{}).Build(ctx, "q")
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	require.Len(t, got.Entries[0].GraphContext, 1)
	assert.Equal(t, graph.Neighbor{ID: "lib.js#helper", Type: "Function", Name: "helper"}, got.Entries[0].GraphContext[0])
}

func TestAssembler_ExpansionFailureIsNotFatal(t *testing.T) {
	v, _ := fixture(t)
	emb := axisEmbedder{vecs: map[string][]float32{"q": {1, 0, 0}}}
	got, err := NewAssembler(v, failingGraph{}, emb, Options{TopK: 2}).Build(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	for _, e := range got.Entries {
		assert.Empty(t, e.GraphContext)
	}
}

func TestAssembler_EmbeddingFailureIsReturned(t *testing.T) {
	v, g := fixture(t)
	_, err := NewAssembler(v, g, axisEmbedder{}, Options{}).Build(context.Background(), "unknown")
	assert.Error(t, err)
}

func TestAssembler_EmptyIndex(t *testing.T) {
	emb := axisEmbedder{vecs: map[string][]float32{"q": {1, 0, 0}}}
	got, err := NewAssembler(vector.NewMemoryStore(), graph.NewMemoryStore(), emb, Options{}).Build(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, got.Entries)
}

func TestSeedID(t *testing.T) {
	assert.Equal(t, "a.js#add", seedID("a.js#add", Location{File: "a.js", Type: "function"}))
	assert.Equal(t, "cfg.py", seedID("cfg.py#module", Location{File: "cfg.py", Type: "module"}))
	assert.Equal(t, "cfg.py", seedID("cfg.py#module", Location{Type: "module"}))
}
