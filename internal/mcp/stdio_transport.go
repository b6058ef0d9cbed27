// Package mcp exposes the context assembler and answerer as MCP tools.
package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer registers the code search tools on a new MCP server.
func NewServer(h *Handler, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_code",
		Description: "Find the code chunks most similar to a natural-language query, each with its graph neighbors (containing module or class, callers and callees).",
	}, h.SearchCode)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_codebase",
		Description: "Answer a question about the indexed codebase using retrieved code and its graph relationships. Pass the returned sessionId back to continue a conversation.",
	}, h.AskCodebase)

	return server
}

// ServeStdio runs the server on stdin/stdout until ctx is done or the
// client disconnects.
func ServeStdio(ctx context.Context, h *Handler, version string) error {
	slog.Default().With("component", "mcp").Info("mcp server listening on stdio", "version", version)
	return NewServer(h, version).Run(ctx, &mcp.StdioTransport{})
}
