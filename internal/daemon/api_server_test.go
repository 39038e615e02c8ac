package daemon_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"lectern/internal/api"
	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/logging"
	"lectern/internal/pipeline"
	"lectern/internal/procstate"
	"lectern/internal/testsupport"
)

func startDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *procstate.Store, *api.Client) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	orch := pipeline.New(cfg, store, logger)
	sched := pipeline.NewScheduler(orch, logger)
	d, err := daemon.New(cfg, store, logger, orch, sched)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	client := api.NewClientForURL("http://"+d.APIAddr(), cfg.Paths.APIToken, &http.Client{Timeout: 5 * time.Second})
	return d, store, client
}

func TestAPIStatusEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, _, client := startDaemon(t, cfg)

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.Capabilities.Transcription {
		t.Fatal("expected transcription unavailable without configuration")
	}
	if _, ok := status.Phases["idle"]; !ok {
		t.Fatalf("expected phase counts, got %#v", status.Phases)
	}
}

func TestAPISaveListDescribeDeleteUnit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, store, client := startDaemon(t, cfg)
	ctx := context.Background()

	saved, err := client.SaveUnit(ctx, api.UnitRequest{
		LectureID:      9,
		Title:          "Flow Networks",
		AttachmentLink: "https://files.example.com/flow.pdf",
	})
	if err != nil {
		t.Fatalf("SaveUnit failed: %v", err)
	}
	if saved.ID == 0 || saved.Title != "Flow Networks" {
		t.Fatalf("unexpected saved unit: %#v", saved)
	}

	units, err := client.ListUnits(ctx)
	if err != nil {
		t.Fatalf("ListUnits failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}

	described, err := client.DescribeUnit(ctx, saved.ID)
	if err != nil {
		t.Fatalf("DescribeUnit failed: %v", err)
	}
	if described.LectureID != 9 {
		t.Fatalf("unexpected unit: %#v", described)
	}

	if err := client.DeleteUnit(ctx, saved.ID); err != nil {
		t.Fatalf("DeleteUnit failed: %v", err)
	}
	unit, err := store.GetUnit(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetUnit failed: %v", err)
	}
	if unit != nil {
		t.Fatalf("expected unit removed, got %#v", unit)
	}
}

func TestAPIDescribeMissingUnitReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, _, client := startDaemon(t, cfg)

	if _, err := client.DescribeUnit(context.Background(), 404); err == nil {
		t.Fatal("expected not found error")
	}
}

func TestAPIRetryRejectsNonFailedUnit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, store, client := startDaemon(t, cfg)
	ctx := context.Background()

	unit := testsupport.NewUnit(t, store, 1, "retryable")
	testsupport.NewState(t, store, unit.ID)

	if err := client.RetryUnit(ctx, unit.ID); err == nil {
		t.Fatal("expected retry of idle unit to be rejected")
	}
}

func TestAPICancelEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, store, client := startDaemon(t, cfg)
	ctx := context.Background()

	unit := testsupport.NewUnit(t, store, 1, "cancellable")
	state := testsupport.NewState(t, store, unit.ID)
	state.Phase = procstate.PhaseIngesting
	state.IngestionJobToken = "token"
	if err := store.UpdateState(ctx, state); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	if err := client.CancelUnit(ctx, unit.ID); err != nil {
		t.Fatalf("CancelUnit failed: %v", err)
	}
	state, err := store.StateByUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("StateByUnit failed: %v", err)
	}
	if state.Phase != procstate.PhaseIdle || state.ErrorMessage != procstate.CancelledMessage {
		t.Fatalf("unexpected state after cancel: %#v", state)
	}
}

func TestAPIIngestionCallbackValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _, _ := startDaemon(t, cfg)

	resp, err := http.Post("http://"+d.APIAddr()+"/api/callbacks/ingestion", "application/json",
		nil)
	if err != nil {
		t.Fatalf("post callback: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty callback, got %d", resp.StatusCode)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	d, _, authed := startDaemon(t, cfg)

	resp, err := http.Get("http://" + d.APIAddr() + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	if _, err := authed.Status(context.Background()); err != nil {
		t.Fatalf("authorized status failed: %v", err)
	}
}
