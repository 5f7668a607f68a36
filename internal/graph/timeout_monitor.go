package graph

import (
	"log/slog"
	"time"
)

// warningRatio: successful queries slower than this share of their timeout are logged.
const warningRatio = 0.8

// monitorQuery runs fn and logs failures, timeouts and near-timeouts.
func monitorQuery(logger *slog.Logger, operation string, timeout time.Duration, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	switch {
	case err != nil && timeout > 0 && duration >= timeout:
		logger.Error("query timed out",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"timeout_seconds", timeout.Seconds(),
			"error", err)
	case err != nil:
		logger.Warn("query failed",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"error", err)
	case timeout > 0 && duration >= time.Duration(float64(timeout)*warningRatio):
		logger.Warn("query approaching timeout",
			"operation", operation,
			"duration_seconds", duration.Seconds(),
			"timeout_seconds", timeout.Seconds())
	default:
		logger.Debug("query completed",
			"operation", operation,
			"duration_seconds", duration.Seconds())
	}

	return err
}
