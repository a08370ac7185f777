// Package observability holds the logging, metrics and tracing hooks the
// engine and chat nodes report through.
//
// Logging uses slog; metrics and tracing use OpenTelemetry. Metrics and
// tracing are opt-in and fall back to no-op implementations.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns logger with run_id, node_id and attempt attached.
func EnrichLogger(logger *slog.Logger, runID, nodeID string, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
		slog.Int("attempt", attempt),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting", slog.String("run_id", runID))
}

// LogRunComplete logs a run that reached END.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunHalted logs a run a node stopped on purpose.
func LogRunHalted(logger *slog.Logger, runID string, durationMs float64, nodeCount int, haltedBy string) {
	if logger == nil {
		return
	}
	logger.Info("graph run halted",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
		slog.String("halted_by", haltedBy),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting", slog.String("node_id", nodeID))
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeHalt logs a node that ended the run deliberately.
func LogNodeHalt(logger *slog.Logger, nodeID string, reason error) {
	if logger == nil {
		return
	}
	logger.Debug("node halted run",
		slog.String("node_id", nodeID),
		slog.String("reason", reason.Error()),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure (non-fatal).
func LogCheckpointError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogCompletion logs a finished LLM call and its token usage.
func LogCompletion(logger *slog.Logger, model string, inputTokens, outputTokens int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("completion finished",
		slog.String("model", model),
		slog.Int("input_tokens", inputTokens),
		slog.Int("output_tokens", outputTokens),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCompletionError logs a failed LLM call. category is the error class
// (transient, permanent, ...).
func LogCompletionError(logger *slog.Logger, model, category string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("completion failed",
		slog.String("model", model),
		slog.String("category", category),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// TimedOperation returns a func reporting elapsed milliseconds since the call.
//
//	done := TimedOperation()
//	resp, err := client.Complete(ctx, req)
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
