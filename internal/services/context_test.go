package services_test

import (
	"context"
	"testing"

	"lectern/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithUnitID(ctx, 42)
	ctx = services.WithPhase(ctx, "transcribing")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.UnitIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected unit id: %v %v", id, ok)
	}
	if phase, ok := services.PhaseFromContext(ctx); !ok || phase != "transcribing" {
		t.Fatalf("unexpected phase: %v %v", phase, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestPhaseBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithPhase(ctx, "")
	if _, ok := services.PhaseFromContext(ctx); ok {
		t.Fatal("expected no phase value")
	}
}
