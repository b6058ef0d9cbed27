package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/query"
	"github.com/rohankatakam/codegraph/internal/session"
)

// DefaultTimeout bounds one model call when none is configured.
const DefaultTimeout = 60 * time.Second

// Synthesizer answers questions from an assembled context.
type Synthesizer struct {
	gen     Generator
	timeout time.Duration
	logger  *slog.Logger
}

// NewSynthesizer wraps gen. timeout <= 0 uses DefaultTimeout.
func NewSynthesizer(gen Generator, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Synthesizer{gen: gen, timeout: timeout, logger: slog.Default().With("component", "synthesizer")}
}

// Answer builds the prompt from qc, calls the model with the session's prior
// turns, and on success records the exchange in sess. On failure sess is
// unchanged and a GenerationError is returned. A nil sess answers statelessly.
func (s *Synthesizer) Answer(ctx context.Context, qc *query.Context, sess *session.Session) (string, error) {
	prompt := BuildPrompt(qc.Query, qc.Entries)

	var history []session.Turn
	if sess != nil {
		history = sess.Turns()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	answer, err := s.gen.Generate(ctx, SystemInstruction, history, prompt)
	if err != nil {
		return "", errors.GenerationError(err, s.gen.Model())
	}

	if sess != nil {
		sess.AppendExchange(prompt, answer)
	}
	s.logger.Info("answer generated",
		"model", s.gen.Model(),
		"entries", len(qc.Entries),
		"history_turns", len(history),
		"duration", time.Since(start),
	)
	return answer, nil
}
