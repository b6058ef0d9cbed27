package graph

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// TimeoutMonitor bounds store operations with the per-operation timeout and
// logs operations that fail, time out, or use most of their budget.
type TimeoutMonitor struct {
	logger       *slog.Logger
	warningRatio float64
}

// NewTimeoutMonitor creates a monitor that warns at 80% of the timeout.
func NewTimeoutMonitor(logger *slog.Logger) *TimeoutMonitor {
	return &TimeoutMonitor{
		logger:       logger,
		warningRatio: 0.8,
	}
}

// Run executes fn under the timeout configured for operation.
func (tm *TimeoutMonitor) Run(ctx context.Context, operation string, fn func(context.Context) error) error {
	timeout := GetConfigForOperation(operation).Timeout
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(opCtx)
	duration := time.Since(start)

	switch {
	case err != nil && errors.Is(opCtx.Err(), context.DeadlineExceeded):
		tm.logger.Error("graph operation timed out",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"timeout_seconds", timeout.Seconds())
	case err != nil:
		tm.logger.Warn("graph operation failed",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"error", err)
	case duration >= time.Duration(float64(timeout)*tm.warningRatio):
		tm.logger.Warn("graph operation approaching timeout",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"timeout_seconds", timeout.Seconds())
	default:
		tm.logger.Debug("graph operation completed",
			"operation", operation,
			"duration_seconds", duration.Seconds())
	}
	return err
}
