package api_test

import (
	"context"
	"testing"

	"lectern/internal/api"
	"lectern/internal/procstate"
	"lectern/internal/testsupport"
)

func TestProcessingServiceListAttachesStates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewProcessingService(store)

	ctx := context.Background()
	tracked := testsupport.NewUnit(t, store, 1, "tracked")
	state := testsupport.NewState(t, store, tracked.ID)
	state.Phase = procstate.PhaseIngesting
	if err := store.UpdateState(ctx, state); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	testsupport.NewUnit(t, store, 2, "untracked")

	units, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	var withState, withoutState int
	for _, unit := range units {
		if unit.Processing != nil {
			withState++
			if unit.Processing.Phase != "ingesting" {
				t.Fatalf("unexpected phase %q", unit.Processing.Phase)
			}
		} else {
			withoutState++
		}
	}
	if withState != 1 || withoutState != 1 {
		t.Fatalf("expected one unit with state and one without, got %d/%d", withState, withoutState)
	}
}

func TestProcessingServiceDescribeMissingUnit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewProcessingService(store)

	unit, err := svc.Describe(context.Background(), 42)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if unit != nil {
		t.Fatalf("expected nil for missing unit, got %#v", unit)
	}
}

func TestProcessingServiceHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := api.NewProcessingService(store)

	ctx := context.Background()
	unit := testsupport.NewUnit(t, store, 1, "health")
	testsupport.NewState(t, store, unit.ID)

	summary, phases, err := svc.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if summary.Total != 1 || summary.Idle != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if phases["idle"] != 1 {
		t.Fatalf("unexpected phase counts: %#v", phases)
	}
}
