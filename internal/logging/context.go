package logging

import (
	"context"
	"log/slog"

	"lectern/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldUnitID is the standardized structured logging key for lecture unit identifiers.
	FieldUnitID = "unit_id"
	// FieldLectureID is the standardized structured logging key for lecture identifiers.
	FieldLectureID = "lecture_id"
	// FieldPhase is the standardized structured logging key for processing phase names.
	FieldPhase = "phase"
	// FieldSweep is the standardized structured logging key for recovery sweep names.
	FieldSweep = "sweep"
	// FieldJobID is the standardized structured logging key for external job identifiers.
	FieldJobID = "job_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.UnitIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldUnitID, id))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
