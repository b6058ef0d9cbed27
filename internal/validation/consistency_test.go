package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/vector"
)

func seed(t *testing.T, g *graph.MemoryStore, v *vector.MemoryStore, upsert int) {
	t.Helper()
	ctx := context.Background()
	chunks := []chunking.Chunk{
		{ID: "a.js#add", ParentID: "a.js", File: "a.js", Symbol: "add", Kind: chunking.KindFunction},
		{ID: "a.js#Calc", ParentID: "a.js", File: "a.js", Symbol: "Calc", Kind: chunking.KindClass},
	}
	require.NoError(t, graph.NewWriter(g).SyncFile(ctx, "a.js", "javascript", chunks))
	for _, c := range chunks[:upsert] {
		require.NoError(t, v.Upsert(ctx, []vector.Record{{ID: c.ID, Embedding: []float32{1}, Metadata: c.Metadata()}}))
	}
}

func TestValidateAfterIngest_Consistent(t *testing.T) {
	g, v := graph.NewMemoryStore(), vector.NewMemoryStore()
	seed(t, g, v, 2)

	results, err := NewConsistencyValidator(g, v).ValidateAfterIngest(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, AllPassed(results))
	assert.Equal(t, 2, results[0].Expected)
	assert.Equal(t, 2, results[0].Actual)
}

func TestValidateAfterIngest_MissingVectors(t *testing.T) {
	g, v := graph.NewMemoryStore(), vector.NewMemoryStore()
	seed(t, g, v, 1)

	results, err := NewConsistencyValidator(g, v).ValidateAfterIngest(context.Background())
	require.NoError(t, err)
	assert.True(t, results[0].PassedThreshold)
	assert.False(t, results[1].PassedThreshold)
	assert.InDelta(t, 50.0, results[1].VariancePercent, 1e-9)
	assert.False(t, AllPassed(results))
}

func TestValidateAfterIngest_EmptyStores(t *testing.T) {
	results, err := NewConsistencyValidator(graph.NewMemoryStore(), vector.NewMemoryStore()).ValidateAfterIngest(context.Background())
	require.NoError(t, err)
	assert.True(t, AllPassed(results))
}

func TestValidateAfterIngest_ModuleChunksDoNotCoverDeclarations(t *testing.T) {
	ctx := context.Background()
	g, v := graph.NewMemoryStore(), vector.NewMemoryStore()
	seed(t, g, v, 0)

	for _, f := range []string{"cfg.js", "consts.js", "index.js"} {
		mod := chunking.ModuleChunk(f, "javascript", []byte("module.exports = {}"))
		require.NoError(t, graph.NewWriter(g).SyncFile(ctx, f, "javascript", []chunking.Chunk{mod}))
		require.NoError(t, v.Upsert(ctx, []vector.Record{{ID: mod.ID, Embedding: []float32{1}, Metadata: mod.Metadata()}}))
	}

	results, err := NewConsistencyValidator(g, v).ValidateAfterIngest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, results[1].Expected)
	assert.Equal(t, 0, results[1].Actual)
	assert.False(t, results[1].PassedThreshold)
}
