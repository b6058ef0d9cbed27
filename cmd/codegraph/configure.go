package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/codegraph/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard (with OS keychain support)",
	Long: `Walk through Codegraph configuration step-by-step.

This will configure:
1. Model provider (gemini or openai) and its API key, stored in the OS
   keychain when one is available
2. Graph store (neo4j, kuzu or memory)
3. Vector store (sqlite, postgres or memory)`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func defaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".codegraph", "config.yaml")
}

// prompt prints question and returns the trimmed answer, or def when empty.
func prompt(r *bufio.Reader, out io.Writer, question, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, def)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}
	line, _ := r.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return def
}

// readSecret reads without echo from a terminal, or a plain line from a pipe.
func readSecret(r *bufio.Reader, out io.Writer) string {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(os.Stdin)

	configPath := cfgFile
	if configPath == "" {
		configPath = defaultConfigPath()
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		loaded = config.Default()
	}

	km := config.NewKeyringManager()
	keychain := km.IsAvailable()

	fmt.Fprintln(out, "Codegraph Configuration Wizard")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 1/3: Model provider")
	provider := prompt(reader, out, "Provider (gemini/openai)", loaded.LLM.Provider)
	if !oneOf(provider, config.ProviderGemini, config.ProviderOpenAI) {
		return fmt.Errorf("unknown provider %q", provider)
	}
	if provider != loaded.LLM.Provider {
		loaded.LLM.Model = ""
		loaded.Embedding.Model = ""
	}
	loaded.LLM.Provider = provider
	loaded.Embedding.Provider = provider
	if provider == config.ProviderOpenAI {
		loaded.LLM.Model = prompt(reader, out, "Chat model", firstNonEmpty(loaded.LLM.Model, "gpt-4o-mini"))
		loaded.Embedding.Model = prompt(reader, out, "Embedding model", firstNonEmpty(loaded.Embedding.Model, "text-embedding-3-large"))
		loaded.Embedding.Dimensions = 3072
	} else {
		loaded.LLM.Model = prompt(reader, out, "Chat model", firstNonEmpty(loaded.LLM.Model, "gemini-2.5-flash"))
		loaded.Embedding.Model = prompt(reader, out, "Embedding model", firstNonEmpty(loaded.Embedding.Model, "gemini-embedding-001"))
	}

	if current := loaded.LLM.APIKey(provider); current != "" {
		fmt.Fprintf(out, "Current key: %s (source: %s)\n", config.MaskAPIKey(current), km.KeySource(loaded, provider))
	}
	fmt.Fprint(out, "API key (leave empty to keep): ")
	if key := readSecret(reader, out); key != "" {
		if keychain {
			if err := km.SaveAPIKey(provider, key); err != nil {
				fmt.Fprintf(out, "Failed to save to keychain: %v\n", err)
				return fmt.Errorf("api key not saved: set %s_API_KEY in the environment instead", strings.ToUpper(provider))
			}
			loaded.LLM.UseKeychain = true
			fmt.Fprintln(out, "API key saved to OS keychain")
		} else {
			// Save never writes keys to disk
			fmt.Fprintf(out, "OS keychain not available; export %s_API_KEY in your shell or .env file\n", strings.ToUpper(provider))
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 2/3: Graph store")
	loaded.Graph.Backend = prompt(reader, out, "Backend (neo4j/kuzu/memory)", loaded.Graph.Backend)
	switch loaded.Graph.Backend {
	case "neo4j":
		loaded.Graph.URI = prompt(reader, out, "Neo4j URI", loaded.Graph.URI)
		loaded.Graph.User = prompt(reader, out, "Neo4j user", loaded.Graph.User)
		fmt.Fprintln(out, "Set NEO4J_PASSWORD in the environment; passwords are not written to the config file.")
	case "kuzu":
		loaded.Graph.KuzuPath = prompt(reader, out, "Kuzu database path", loaded.Graph.KuzuPath)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 3/3: Vector store")
	loaded.Vector.Backend = prompt(reader, out, "Backend (sqlite/postgres/memory)", loaded.Vector.Backend)
	switch loaded.Vector.Backend {
	case "sqlite":
		loaded.Vector.SQLitePath = prompt(reader, out, "SQLite path", loaded.Vector.SQLitePath)
	case "postgres":
		loaded.Vector.DSN = prompt(reader, out, "Postgres DSN", loaded.Vector.DSN)
	}
	fmt.Fprintln(out)

	if res := loaded.Validate(config.ValidationContextStats); res.HasErrors() {
		return fmt.Errorf("%s", res.Error())
	}

	if err := loaded.Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	fmt.Fprintln(out, "Next: codegraph ingest <path>")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
