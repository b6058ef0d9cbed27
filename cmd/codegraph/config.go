package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/codegraph/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect Codegraph configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Long: `Print the configuration after defaults, the config file and environment
overrides are applied. API keys show their source (env, keychain or config).`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	shown.LLM.GeminiAPIKey = config.MaskAPIKey(cfg.LLM.GeminiAPIKey)
	shown.LLM.OpenAIAPIKey = config.MaskAPIKey(cfg.LLM.OpenAIAPIKey)
	if shown.Graph.Password != "" {
		shown.Graph.Password = "****"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	km := config.NewKeyringManager()
	fmt.Fprintln(out, "\n# key sources")
	for _, p := range []string{config.ProviderGemini, config.ProviderOpenAI} {
		fmt.Fprintf(out, "# %s: %s\n", p, km.KeySource(cfg, p))
	}
	return nil
}
