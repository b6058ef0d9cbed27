package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/codegraph/internal/config"
	"github.com/rohankatakam/codegraph/internal/query"
	"github.com/rohankatakam/codegraph/internal/session"
)

var askQuery string

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask questions about the indexed codebase",
	Long: `Start an interactive session. Each question is answered from the most
similar code chunks and their graph neighbors; earlier exchanges in the
session are sent along as history. Type "exit" or "quit" to leave.

Use --query to ask a single question and exit.`,
	Args: cobra.NoArgs,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "ask one question and exit")
}

// answerer is the slice of the query and llm packages the loop needs.
type answerer interface {
	ask(ctx context.Context, question string, sess *session.Session) (string, error)
}

type pipelineAnswerer struct {
	assembler interface {
		Build(ctx context.Context, question string) (*query.Context, error)
	}
	synth interface {
		Answer(ctx context.Context, qc *query.Context, sess *session.Session) (string, error)
	}
}

func (p pipelineAnswerer) ask(ctx context.Context, question string, sess *session.Session) (string, error) {
	qc, err := p.assembler.Build(ctx, question)
	if err != nil {
		return "", err
	}
	return p.synth.Answer(ctx, qc, sess)
}

func runAsk(cmd *cobra.Command, args []string) error {
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
	a := pipelineAnswerer{assembler: newAssembler(cfg, d), synth: synth}

	if askQuery != "" {
		answer, err := a.ask(ctx, askQuery, session.New())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	}
	return chatLoop(ctx, os.Stdin, cmd.OutOrStdout(), a)
}

// isExit reports whether a line ends the session.
func isExit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}

// chatLoop reads questions until exit, quit or EOF. A failed turn is
// reported and the loop continues; the session only grows on success.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, a answerer) error {
	sess := session.New()
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, `Ask a question about the codebase ("exit" to quit).`)
	for {
		fmt.Fprint(out, "\n> ")
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read input: %w", err)
		}
		eof := err == io.EOF

		if isExit(line) {
			fmt.Fprintln(out, "Goodbye.")
			return nil
		}
		if q := strings.TrimSpace(line); q != "" {
			answer, aerr := a.ask(ctx, q, sess)
			if aerr != nil {
				logger.WithError(aerr).Error("Failed to answer question")
				fmt.Fprintln(out, "Sorry, the answer could not be generated. Please try again.")
			} else {
				fmt.Fprintf(out, "\n%s\n", answer)
			}
		}
		if eof {
			fmt.Fprintln(out)
			return nil
		}
	}
}
