package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.MergeNodes(ctx, []GraphNode{
		{Label: LabelModule, ID: "a.js", Properties: map[string]any{"path": "a.js"}},
		{Label: LabelModule, ID: "b.js", Properties: map[string]any{"path": "b.js"}},
		{Label: LabelFunction, ID: "a.js#add", Properties: map[string]any{"name": "add"}},
		{Label: LabelFunction, ID: "a.js#sum", Properties: map[string]any{"name": "sum"}},
		{Label: LabelFunction, ID: "b.js#main", Properties: map[string]any{"name": "main"}},
	}))
	linked, err := s.MergeEdges(ctx, []GraphEdge{
		{Kind: DefinedIn, FromLabel: LabelFunction, From: "a.js#add", ToLabel: LabelModule, To: "a.js"},
		{Kind: DefinedIn, FromLabel: LabelFunction, From: "a.js#sum", ToLabel: LabelModule, To: "a.js"},
		{Kind: DefinedIn, FromLabel: LabelFunction, From: "b.js#main", ToLabel: LabelModule, To: "b.js"},
		{Kind: Calls, FromLabel: LabelFunction, From: "b.js#main", ToLabel: LabelFunction, To: "a.js#add"},
		{Kind: Imports, FromLabel: LabelModule, From: "b.js", ToLabel: LabelModule, To: "a.js"},
	})
	require.NoError(t, err)
	require.Equal(t, 5, linked)
	return s
}

func neighborIDs(ns []Neighbor) []string {
	ids := make([]string, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestMemoryStore_MergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	before, err := s.Stats(ctx)
	require.NoError(t, err)

	// replay a node and an edge
	require.NoError(t, s.MergeNodes(ctx, []GraphNode{
		{Label: LabelFunction, ID: "a.js#add", Properties: map[string]any{"name": "add", "file": "a.js"}},
	}))
	_, err = s.MergeEdges(ctx, []GraphEdge{
		{Kind: Calls, FromLabel: LabelFunction, From: "b.js#main", ToLabel: LabelFunction, To: "a.js#add"},
	})
	require.NoError(t, err)

	after, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	props, ok := s.Node(LabelFunction, "a.js#add")
	require.True(t, ok)
	assert.Equal(t, "a.js", props["file"], "properties are SET on re-merge")
}

func TestMemoryStore_MergeEdgesSkipsMissingEndpoints(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	linked, err := s.MergeEdges(ctx, []GraphEdge{
		{Kind: Calls, FromLabel: LabelFunction, From: "a.js#add", ToLabel: LabelFunction, To: "nowhere.js#ghost"},
	})
	require.NoError(t, err)
	assert.Zero(t, linked)

	_, ok := s.Node(LabelFunction, "nowhere.js#ghost")
	assert.False(t, ok, "edge merge must not create endpoints")
}

func TestMemoryStore_MergeRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	assert.Error(t, s.MergeNodes(ctx, []GraphNode{{Label: LabelModule}}))
	assert.Error(t, s.MergeNodes(ctx, []GraphNode{{Label: "File", ID: "x"}}))

	_, err := s.MergeEdges(ctx, []GraphEdge{{Kind: "OWNS", FromLabel: LabelModule, ToLabel: LabelModule}})
	assert.Error(t, err)
}

func TestMemoryStore_Neighbors(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)

	t.Run("one hop is undirected", func(t *testing.T) {
		got, err := s.Neighbors(ctx, "a.js#add", ExpansionKinds, 1, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.js", "b.js#main"}, neighborIDs(got))
	})

	t.Run("two hops exclude the seed", func(t *testing.T) {
		got, err := s.Neighbors(ctx, "a.js#add", ExpansionKinds, 2, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.js", "b.js#main", "a.js#sum", "b.js"}, neighborIDs(got))
		assert.NotContains(t, neighborIDs(got), "a.js#add")
	})

	t.Run("imports are not followed", func(t *testing.T) {
		got, err := s.Neighbors(ctx, "b.js", ExpansionKinds, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"b.js#main"}, neighborIDs(got))
	})

	t.Run("limit caps results", func(t *testing.T) {
		got, err := s.Neighbors(ctx, "a.js#add", ExpansionKinds, 2, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("name falls back to id", func(t *testing.T) {
		got, err := s.Neighbors(ctx, "a.js#sum", ExpansionKinds, 1, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, Neighbor{ID: "a.js", Type: "Module", Name: "a.js"}, got[0])
	})

	t.Run("unknown seed", func(t *testing.T) {
		got, err := s.Neighbors(ctx, "missing", ExpansionKinds, 2, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := s.Neighbors(ctx, "a.js#add", ExpansionKinds, 0, 10)
		assert.Error(t, err)
	})
}

func TestMemoryStore_Stats(t *testing.T) {
	stats, err := seedStore(t).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Module": 2, "Function": 3}, stats.Nodes)
	assert.Equal(t, map[string]int{"DEFINED_IN": 3, "CALLS": 1, "IMPORTS": 1}, stats.Edges)
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Backend: "memory"})
	require.NoError(t, err)
	defer s.Close(ctx)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(ctx, Config{Backend: "arangodb"})
	assert.Error(t, err)
}
