package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/config"
	"github.com/rohankatakam/codegraph/internal/ingestion"
	"github.com/rohankatakam/codegraph/internal/treesitter"
	"github.com/rohankatakam/codegraph/internal/vector"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <root>",
	Short: "Index a source tree into the graph and vector stores",
	Long: `Scan <root>, split every supported file into module, class and function
chunks, write them to the graph (DEFINED_IN, IMPORTS and CALLS edges) and
embed them into the vector store.

Re-running on an unchanged tree leaves both stores unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root := args[0]

	if err := cfg.ValidateOrError(config.ValidationContextIngest); err != nil {
		return err
	}

	d, err := openStores(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer d.close(ctx)

	pipeline := ingestion.NewPipeline(
		ingestion.NewScanner(ingestion.ScanOptions{
			IgnoredDirs:  cfg.Ingest.IgnoredDirs,
			Extensions:   cfg.Ingest.Extensions,
			MaxFileBytes: cfg.Ingest.MaxFileBytes,
		}),
		ingestion.NewProcessor(treesitter.NewRegistry(), cfg.Ingest.Workers),
		d.graph,
		vector.NewWriter(d.vectors, d.embedder, cfg.Ingest.BatchSize, cfg.Ingest.EmbedConcurrency),
		cfg.Ingest.Workers,
	)

	logger.WithField("root", root).Info("Starting ingestion")
	result, err := pipeline.Run(ctx, root)
	if err != nil {
		logger.WithError(err).Error("Ingestion failed")
		return err
	}

	logger.WithFields(logrus.Fields{
		"files":     result.Files,
		"chunks":    result.Chunks,
		"functions": result.Functions,
		"classes":   result.Classes,
		"modules":   result.Modules,
		"imports":   result.Imports,
		"calls":     result.Calls,
		"embedded":  result.Vectors.Embedded,
		"dropped":   result.Vectors.Dropped,
		"duration":  result.Duration.String(),
	}).Info("Ingestion completed successfully")
	return nil
}
