// Package observability provides structured logging, metrics and
// tracing for formstate.
//
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds form context to a logger.
// Returns a new logger with form_id and field fields; empty values are
// left out.
//
//	enriched := EnrichLogger(logger, "signup", "email")
//	enriched.Info("validating") // includes form_id, field
func EnrichLogger(logger *slog.Logger, formID, fieldName string) *slog.Logger {
	if logger == nil {
		return nil
	}
	var attrs []any
	if formID != "" {
		attrs = append(attrs, slog.String("form_id", formID))
	}
	if fieldName != "" {
		attrs = append(attrs, slog.String("field", fieldName))
	}
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}

// LogFormCreated logs form construction.
func LogFormCreated(logger *slog.Logger, formID string, fieldCount int) {
	if logger == nil {
		return
	}
	logger.Debug("form created",
		slog.String("form_id", formID),
		slog.Int("fields", fieldCount),
	)
}

// LogFormDestroyed logs form teardown.
func LogFormDestroyed(logger *slog.Logger, formID string) {
	if logger == nil {
		return
	}
	logger.Debug("form destroyed",
		slog.String("form_id", formID),
	)
}

// LogValidationComplete logs the end of a form-level validation pass.
func LogValidationComplete(logger *slog.Logger, formID string, valid bool, fieldCount int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("form validated",
		slog.String("form_id", formID),
		slog.Bool("valid", valid),
		slog.Int("fields", fieldCount),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRuleError logs a validator that returned an error or panicked.
// The failure has already been converted into an invalid result.
func LogRuleError(logger *slog.Logger, fieldName, validator string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("validator failed",
		slog.String("field", fieldName),
		slog.String("validator", validator),
		slog.String("error", err.Error()),
	)
}

// LogBackgroundValidationError logs a background validation that could
// not complete. Nothing is surfaced to the caller.
func LogBackgroundValidationError(logger *slog.Logger, fieldName string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("background validation failed",
		slog.String("field", fieldName),
		slog.String("error", err.Error()),
	)
}

// LogStaleValidation logs a background validation result that was
// discarded because the field value changed while it ran.
func LogStaleValidation(logger *slog.Logger, fieldName string, generation, current uint64) {
	if logger == nil {
		return
	}
	logger.Debug("stale validation discarded",
		slog.String("field", fieldName),
		slog.Uint64("generation", generation),
		slog.Uint64("current", current),
	)
}

// LogSubmit logs a form submission.
func LogSubmit(logger *slog.Logger, formID string, valid bool, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("form submitted",
		slog.String("form_id", formID),
		slog.Bool("valid", valid),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSubmitError logs a submission whose processor failed.
func LogSubmitError(logger *slog.Logger, formID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("form submit failed",
		slog.String("form_id", formID),
		slog.String("error", err.Error()),
	)
}

// LogDraft logs a saved draft.
func LogDraft(logger *slog.Logger, formID, label string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("draft saved",
		slog.String("form_id", formID),
		slog.String("label", label),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogDraftError logs a draft store failure.
func LogDraftError(logger *slog.Logger, formID, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("draft operation failed",
		slog.String("form_id", formID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
