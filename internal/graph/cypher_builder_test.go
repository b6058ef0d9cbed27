package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMergeNodes(t *testing.T) {
	b := NewCypherBuilder()
	q, err := b.BuildMergeNodes(LabelFunction, []GraphNode{
		{Label: LabelFunction, ID: "a.js#add", Properties: map[string]any{"name": "add", "file": "a.js"}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"UNWIND $p0 AS row MERGE (n:Function {id: row.id}) SET n += row.props RETURN count(n) AS merged", q)

	rows, ok := b.Params()["p0"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "a.js#add", rows[0]["id"])
	assert.Equal(t, map[string]any{"name": "add", "file": "a.js"}, rows[0]["props"])
}

func TestBuildMergeNodes_RejectsBadInput(t *testing.T) {
	_, err := NewCypherBuilder().BuildMergeNodes(Label("Robert'); DROP"), nil)
	assert.Error(t, err)

	_, err = NewCypherBuilder().BuildMergeNodes(LabelModule, []GraphNode{
		{Label: LabelModule, ID: "x", Properties: map[string]any{"bad key": 1}},
	})
	assert.Error(t, err)
}

func TestBuildMergeEdges(t *testing.T) {
	b := NewCypherBuilder()
	q, err := b.BuildMergeEdges(DefinedIn, LabelFunction, LabelModule, []GraphEdge{
		{Kind: DefinedIn, FromLabel: LabelFunction, From: "a.js#add", ToLabel: LabelModule, To: "a.js"},
	})
	require.NoError(t, err)

	assert.Contains(t, q, "MATCH (a:Function {id: row.from}) MATCH (b:Module {id: row.to})")
	assert.Contains(t, q, "MERGE (a)-[r:DEFINED_IN]->(b)")
	assert.NotContains(t, q, "CREATE")

	rows := b.Params()["p0"].([]map[string]any)
	assert.Equal(t, []map[string]any{{"from": "a.js#add", "to": "a.js"}}, rows)
}

func TestBuildMergeEdges_RejectsUnknownKind(t *testing.T) {
	_, err := NewCypherBuilder().BuildMergeEdges(EdgeKind("OWNS"), LabelFunction, LabelModule, nil)
	assert.Error(t, err)

	_, err = NewCypherBuilder().BuildMergeEdges(Calls, Label("File"), LabelFunction, nil)
	assert.Error(t, err)
}

func TestBuildNeighbors(t *testing.T) {
	b := NewCypherBuilder()
	q, err := b.BuildNeighbors("a.js#add", ExpansionKinds, 2, 10)
	require.NoError(t, err)

	assert.Contains(t, q, "CALL { MATCH (n:Module {id: $p0}) RETURN n UNION MATCH (n:Function {id: $p0}) RETURN n "+
		"UNION MATCH (n:Class {id: $p0}) RETURN n }")
	assert.NotContains(t, q, "MATCH (n {id:", "every start lookup is labeled")
	assert.Contains(t, q, "MATCH (n)-[:DEFINED_IN|CALLS*1..2]-(neighbor)")
	assert.Contains(t, q, "WHERE neighbor.id <> n.id")
	assert.Contains(t, q, "RETURN DISTINCT neighbor.id AS id")
	assert.Contains(t, q, "LIMIT $p1")
	assert.Equal(t, map[string]any{"p0": "a.js#add", "p1": 10}, b.Params())
}

func TestBuildNeighbors_Validation(t *testing.T) {
	tests := []struct {
		name    string
		kinds   []EdgeKind
		maxHops int
		limit   int
	}{
		{"no kinds", nil, 2, 10},
		{"zero hops", ExpansionKinds, 0, 10},
		{"zero limit", ExpansionKinds, 2, 0},
		{"unknown kind", []EdgeKind{"FOLLOWS"}, 2, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCypherBuilder().BuildNeighbors("x", tt.kinds, tt.maxHops, tt.limit)
			assert.Error(t, err)
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, isValidIdentifier("name"))
	assert.True(t, isValidIdentifier("_file2"))
	assert.False(t, isValidIdentifier("2file"))
	assert.False(t, isValidIdentifier("a-b"))
	assert.False(t, isValidIdentifier(""))
}
