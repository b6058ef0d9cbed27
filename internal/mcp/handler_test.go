package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/query"
	"github.com/rohankatakam/codegraph/internal/session"
)

type stubBuilder struct{}

func (stubBuilder) Build(_ context.Context, q string) (*query.Context, error) {
	return &query.Context{Query: q, Entries: []query.Entry{{
		ID:           "a.js#add",
		Code:         "function add(a,b){return a+b;}",
		Metadata:     query.Location{File: "a.js", Symbol: "add", Type: "function", Language: "javascript"},
		GraphContext: []graph.Neighbor{{ID: "a.js", Type: "Module", Name: "a.js"}},
	}}}, nil
}

type stubAnswerer struct{ err error }

func (s stubAnswerer) Answer(_ context.Context, qc *query.Context, sess *session.Session) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	answer := "1. add sums its arguments."
	sess.AppendExchange(qc.Query, answer)
	return answer, nil
}

func connect(t *testing.T, answerer Answerer) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(NewHandler(stubBuilder{}, answerer, nil), "test")
	st, ct := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError)
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestListTools(t *testing.T) {
	cs := connect(t, stubAnswerer{})
	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ask_codebase", "search_code"}, names)
}

func TestSearchCode(t *testing.T) {
	cs := connect(t, stubAnswerer{})
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_code",
		Arguments: SearchCodeInput{Query: "adding numbers"},
	})
	require.NoError(t, err)

	out := decode[SearchCodeOutput](t, res)
	assert.Equal(t, "adding numbers", out.Query)
	require.Len(t, out.Context, 1)
	assert.Equal(t, "a.js#add", out.Context[0].ID)
	assert.Equal(t, "a.js", out.Context[0].GraphContext[0].ID)
}

func TestSearchCode_EmptyQuery(t *testing.T) {
	cs := connect(t, stubAnswerer{})
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_code",
		Arguments: SearchCodeInput{Query: "   "},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAskCodebase_ContinuesSession(t *testing.T) {
	sessions := session.NewStore()
	h := NewHandler(stubBuilder{}, stubAnswerer{}, sessions)
	ctx := context.Background()

	_, first, err := h.AskCodebase(ctx, nil, AskCodebaseInput{Question: "what does add do?"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, []string{"a.js#add"}, first.Sources)

	_, second, err := h.AskCodebase(ctx, nil, AskCodebaseInput{Question: "and who calls it?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 4, sessions.Get(first.SessionID).Len())
}

func TestAskCodebase_OverMCP(t *testing.T) {
	cs := connect(t, stubAnswerer{})
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "ask_codebase",
		Arguments: AskCodebaseInput{Question: "what does add do?"},
	})
	require.NoError(t, err)
	out := decode[AskCodebaseOutput](t, res)
	assert.Equal(t, "1. add sums its arguments.", out.Answer)
	assert.NotEmpty(t, out.SessionID)
}

func TestAskCodebase_GenerationFailure(t *testing.T) {
	cs := connect(t, stubAnswerer{err: stderrors.New("model unavailable")})
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "ask_codebase",
		Arguments: AskCodebaseInput{Question: "q"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestAskCodebase_FailuresDoNotStoreSessions(t *testing.T) {
	sessions := session.NewStore()
	ctx := context.Background()

	failing := NewHandler(stubBuilder{}, stubAnswerer{err: stderrors.New("model unavailable")}, sessions)
	for _, id := range []string{"", "unknown-id", "another-unknown-id"} {
		_, _, err := failing.AskCodebase(ctx, nil, AskCodebaseInput{Question: "q", SessionID: id})
		require.Error(t, err)
	}
	assert.Zero(t, sessions.Len())

	_, out, err := NewHandler(stubBuilder{}, stubAnswerer{}, sessions).AskCodebase(ctx, nil, AskCodebaseInput{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, 1, sessions.Len())
	assert.Equal(t, 2, sessions.Get(out.SessionID).Len())
}
