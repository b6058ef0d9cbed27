package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/config"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/validation"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node, edge and vector counts",
	Long: `Print graph node counts per label, edge counts per kind and the number of
vector records. Counts are unchanged by re-ingesting an unchanged tree.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := cfg.ValidateOrError(config.ValidationContextStats); err != nil {
		return err
	}

	d, err := openStores(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	gs, err := d.graph.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read graph stats: %w", err)
	}
	vectors, err := d.vectors.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count vectors: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Graph (%s)\n", cfg.Graph.Backend)
	printCounts(out, "Nodes", gs.Nodes, []string{string(graph.LabelModule), string(graph.LabelClass), string(graph.LabelFunction)})
	printCounts(out, "Edges", gs.Edges, []string{string(graph.DefinedIn), string(graph.Imports), string(graph.Calls)})
	fmt.Fprintf(out, "\nVectors (%s)\n  %-10s %d\n", cfg.Vector.Backend, "Records", vectors)

	results, err := validation.NewConsistencyValidator(d.graph, d.vectors).ValidateAfterIngest(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nConsistency")
	for _, r := range results {
		status := "ok"
		if !r.PassedThreshold {
			status = "FAILED"
		}
		fmt.Fprintf(out, "  %-28s %d/%d (%.1f%%) %s\n", r.Check, r.Actual, r.Expected, r.VariancePercent, status)
	}
	return nil
}

// printCounts lists the known keys first, in order, then anything else sorted.
func printCounts(out io.Writer, title string, counts map[string]int, known []string) {
	fmt.Fprintf(out, "  %s\n", title)
	seen := make(map[string]bool, len(known))
	for _, k := range known {
		seen[k] = true
		fmt.Fprintf(out, "    %-10s %d\n", k, counts[k])
	}
	var rest []string
	for k := range counts {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		fmt.Fprintf(out, "    %-10s %d\n", k, counts[k])
	}
}
