package graph

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/chunking"
)

// Run with: NEO4J_URI=bolt://localhost:7687 NEO4J_PASSWORD=... go test -run Neo4j ./internal/graph
func newTestNeo4jStore(t *testing.T) *Neo4jStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping neo4j integration test in short mode")
	}
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}
	user := os.Getenv("NEO4J_USERNAME")
	if user == "" {
		user = "neo4j"
	}

	ctx := context.Background()
	s, err := NewNeo4jStore(ctx, uri, user, os.Getenv("NEO4J_PASSWORD"), os.Getenv("NEO4J_DATABASE"))
	require.NoError(t, err)
	require.NoError(t, s.InitSchema(ctx))
	t.Cleanup(func() {
		s.executeRouted(ctx, RoutingWrite, "MATCH (n) WHERE n.id STARTS WITH 'it_test/' DETACH DELETE n", nil)
		s.Close(ctx)
	})
	return s
}

func TestNeo4jStore_SyncAndExpand(t *testing.T) {
	s := newTestNeo4jStore(t)
	ctx := context.Background()
	w := NewWriter(s)

	chunks := []chunking.Chunk{
		fnChunk("it_test/a.js", "add", "it_test/a.js"),
		fnChunk("it_test/a.js", "sum", "it_test/a.js"),
	}
	require.NoError(t, w.SyncFile(ctx, "it_test/a.js", "javascript", chunks))
	// second sync must be a no-op
	require.NoError(t, w.SyncFile(ctx, "it_test/a.js", "javascript", chunks))

	got, err := s.Neighbors(ctx, "it_test/a.js#add", ExpansionKinds, 2, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Neighbor{
		{ID: "it_test/a.js", Type: "Module", Name: "it_test/a.js"},
		{ID: "it_test/a.js#sum", Type: "Function", Name: "sum"},
	}, got)

	linked, err := s.MergeEdges(ctx, []GraphEdge{
		{Kind: Calls, FromLabel: LabelFunction, From: "it_test/a.js#add", ToLabel: LabelFunction, To: "it_test/none.js#x"},
	})
	require.NoError(t, err)
	assert.Zero(t, linked)
}
