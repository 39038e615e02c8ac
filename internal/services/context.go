package services

import "context"

type contextKey string

const (
	unitIDKey    contextKey = "unit_id"
	phaseKey     contextKey = "phase"
	requestIDKey contextKey = "request_id"
)

// WithUnitID annotates context with the lecture unit identifier.
func WithUnitID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, unitIDKey, id)
}

// UnitIDFromContext extracts the lecture unit identifier if present.
func UnitIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(unitIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithPhase annotates context with the processing phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the processing phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
