package main

import (
	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/config"
	"github.com/rohankatakam/codegraph/internal/mcp"
	"github.com/rohankatakam/codegraph/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search_code and ask_codebase over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout for editors and agents.

Tools:
  search_code   retrieved chunks with their graph neighbors
  ask_codebase  a grounded answer; pass sessionId to continue a conversation

Logs go to stderr so they never mix with protocol frames.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.ValidateOrError(config.ValidationContextAsk); err != nil {
		return err
	}

	d, err := openStores(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	synth, err := newSynthesizer(ctx, cfg)
	if err != nil {
		return err
	}

	h := mcp.NewHandler(newAssembler(cfg, d), synth, session.NewStore())
	return mcp.ServeStdio(ctx, h, Version)
}
