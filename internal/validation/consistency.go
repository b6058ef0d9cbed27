// Package validation checks that the graph and vector stores agree after
// ingestion.
package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rohankatakam/codegraph/internal/chunking"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/vector"
)

// ValidationResult is one consistency check.
type ValidationResult struct {
	Check           string  `json:"check"`
	Expected        int     `json:"expected"`
	Actual          int     `json:"actual"`
	VariancePercent float64 `json:"variance_percent"`
	PassedThreshold bool    `json:"passed"`
}

// ConsistencyValidator compares counts across the two stores.
type ConsistencyValidator struct {
	graph   graph.Store
	vectors vector.Store
	logger  *slog.Logger
}

// NewConsistencyValidator creates a new consistency validator
func NewConsistencyValidator(g graph.Store, v vector.Store) *ConsistencyValidator {
	return &ConsistencyValidator{
		graph:   g,
		vectors: v,
		logger:  slog.Default().With("component", "validation"),
	}
}

// ValidateAfterIngest runs every check.
//
// Containment must be exact: each Function and Class has one DEFINED_IN
// edge. Vector coverage tolerates the chunks whose embedding failed and
// were dropped, down to 95%.
func (v *ConsistencyValidator) ValidateAfterIngest(ctx context.Context) ([]ValidationResult, error) {
	stats, err := v.graph.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph stats: %w", err)
	}
	byType, err := v.vectors.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count vectors: %w", err)
	}
	declVectors := byType[string(chunking.KindFunction)] + byType[string(chunking.KindClass)]

	declarations := stats.Nodes[string(graph.LabelFunction)] + stats.Nodes[string(graph.LabelClass)]

	containment := compare("DEFINED_IN per declaration", declarations, stats.Edges[string(graph.DefinedIn)])
	containment.PassedThreshold = containment.Expected == containment.Actual

	// Fallback module chunks have no declaration node and are not counted.
	coverage := compare("vector coverage", declarations, declVectors)
	coverage.PassedThreshold = coverage.VariancePercent >= 95.0

	results := []ValidationResult{containment, coverage}
	v.logResults(results)
	return results, nil
}

func compare(check string, expected, actual int) ValidationResult {
	variance := 100.0
	if expected > 0 {
		variance = float64(actual) / float64(expected) * 100.0
	}
	return ValidationResult{
		Check:           check,
		Expected:        expected,
		Actual:          actual,
		VariancePercent: variance,
	}
}

// AllPassed reports whether every result passed.
func AllPassed(results []ValidationResult) bool {
	for _, r := range results {
		if !r.PassedThreshold {
			return false
		}
	}
	return true
}

func (v *ConsistencyValidator) logResults(results []ValidationResult) {
	for _, r := range results {
		if r.PassedThreshold {
			v.logger.Debug("consistency check passed", "check", r.Check, "expected", r.Expected, "actual", r.Actual)
		} else {
			v.logger.Warn("consistency check failed",
				"check", r.Check,
				"expected", r.Expected,
				"actual", r.Actual,
				"variance_percent", fmt.Sprintf("%.1f", r.VariancePercent),
			)
		}
	}
}
