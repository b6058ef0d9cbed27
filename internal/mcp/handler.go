package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rohankatakam/codegraph/internal/query"
	"github.com/rohankatakam/codegraph/internal/session"
)

// ContextBuilder assembles grounding context for a question.
type ContextBuilder interface {
	Build(ctx context.Context, question string) (*query.Context, error)
}

// Answerer produces an answer from assembled context.
type Answerer interface {
	Answer(ctx context.Context, qc *query.Context, sess *session.Session) (string, error)
}

// Handler implements the tool calls.
type Handler struct {
	builder  ContextBuilder
	answerer Answerer
	sessions *session.Store
	logger   *slog.Logger
}

// NewHandler creates a Handler. Conversations are kept in sessions until
// they sit idle past the store's TTL.
func NewHandler(builder ContextBuilder, answerer Answerer, sessions *session.Store) *Handler {
	if sessions == nil {
		sessions = session.NewStore()
	}
	return &Handler{
		builder:  builder,
		answerer: answerer,
		sessions: sessions,
		logger:   slog.Default().With("component", "mcp"),
	}
}

// SearchCodeInput is the input for search_code.
type SearchCodeInput struct {
	Query string `json:"query" jsonschema:"natural-language description of the code to find"`
}

// SearchCodeOutput mirrors the assembled context.
type SearchCodeOutput struct {
	Query   string        `json:"query"`
	Context []query.Entry `json:"context"`
}

// AskCodebaseInput is the input for ask_codebase.
type AskCodebaseInput struct {
	Question  string `json:"question" jsonschema:"question about the indexed codebase"`
	SessionID string `json:"sessionId,omitempty" jsonschema:"id returned by an earlier call, to continue that conversation"`
}

// AskCodebaseOutput is the answer plus the chunks it was grounded on.
type AskCodebaseOutput struct {
	Answer    string   `json:"answer"`
	SessionID string   `json:"sessionId"`
	Sources   []string `json:"sources"`
}

// SearchCode runs retrieval and graph expansion without calling the model.
func (h *Handler) SearchCode(ctx context.Context, _ *mcp.CallToolRequest, input SearchCodeInput) (*mcp.CallToolResult, SearchCodeOutput, error) {
	q := strings.TrimSpace(input.Query)
	if q == "" {
		return nil, SearchCodeOutput{}, fmt.Errorf("query is required")
	}

	qc, err := h.builder.Build(ctx, q)
	if err != nil {
		return nil, SearchCodeOutput{}, fmt.Errorf("search failed: %w", err)
	}
	h.logger.Info("search_code", "query", q, "entries", len(qc.Entries))
	return nil, SearchCodeOutput{Query: qc.Query, Context: qc.Entries}, nil
}

// AskCodebase answers a question, remembering the exchange under the session id.
func (h *Handler) AskCodebase(ctx context.Context, _ *mcp.CallToolRequest, input AskCodebaseInput) (*mcp.CallToolResult, AskCodebaseOutput, error) {
	q := strings.TrimSpace(input.Question)
	if q == "" {
		return nil, AskCodebaseOutput{}, fmt.Errorf("question is required")
	}

	qc, err := h.builder.Build(ctx, q)
	if err != nil {
		return nil, AskCodebaseOutput{}, fmt.Errorf("context assembly failed: %w", err)
	}

	// only answered conversations are kept
	sess := h.sessions.Get(input.SessionID)
	answer, err := h.answerer.Answer(ctx, qc, sess)
	if err != nil {
		return nil, AskCodebaseOutput{}, err
	}
	h.sessions.Save(sess)

	sources := make([]string, len(qc.Entries))
	for i, e := range qc.Entries {
		sources[i] = e.ID
	}
	h.logger.Info("ask_codebase", "session", sess.ID, "entries", len(qc.Entries), "turns", sess.Len())
	return nil, AskCodebaseOutput{Answer: answer, SessionID: sess.ID, Sources: sources}, nil
}
