package procstate_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lectern/internal/lecture"
	"lectern/internal/procstate"
	"lectern/internal/testsupport"
)

func TestOpenCreatesSchemaAndPersistsUnits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	unit := &lecture.Unit{
		LectureID:      42,
		Title:          "Intro to Queues",
		VideoSource:    "https://videos.example.com/intro",
		AttachmentLink: "https://files.example.com/intro.pdf",
	}
	if err := store.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("CreateUnit failed: %v", err)
	}
	if unit.ID == 0 {
		t.Fatal("expected unit ID to be assigned")
	}

	fetched, err := store.GetUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("GetUnit failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Intro to Queues" {
		t.Fatalf("unexpected fetched unit: %#v", fetched)
	}
	if fetched.LectureID != 42 {
		t.Fatalf("expected lecture ID 42, got %d", fetched.LectureID)
	}
}

func TestGetUnitMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	unit, err := store.GetUnit(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetUnit failed: %v", err)
	}
	if unit != nil {
		t.Fatalf("expected nil for missing unit, got %#v", unit)
	}
}

func TestUpsertUnitInsertsWithExplicitID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	unit := &lecture.Unit{ID: 7, LectureID: 1, Title: "Explicit"}
	if err := store.UpsertUnit(ctx, unit); err != nil {
		t.Fatalf("UpsertUnit failed: %v", err)
	}

	fetched, err := store.GetUnit(ctx, 7)
	if err != nil {
		t.Fatalf("GetUnit failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Explicit" {
		t.Fatalf("unexpected fetched unit: %#v", fetched)
	}

	unit.Title = "Renamed"
	unit.AttachmentVersion = 3
	if err := store.UpsertUnit(ctx, unit); err != nil {
		t.Fatalf("UpsertUnit update failed: %v", err)
	}
	fetched, err = store.GetUnit(ctx, 7)
	if err != nil {
		t.Fatalf("GetUnit failed: %v", err)
	}
	if fetched.Title != "Renamed" || fetched.AttachmentVersion != 3 {
		t.Fatalf("expected updated unit, got %#v", fetched)
	}
}

func TestStateLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	unit := testsupport.NewUnit(t, store, 10, "lifecycle")
	state := testsupport.NewState(t, store, unit.ID)
	if state.Phase != procstate.PhaseIdle {
		t.Fatalf("expected idle phase, got %s", state.Phase)
	}

	state.Phase = procstate.PhaseTranscribing
	state.VideoSourceHash = "abc123"
	state.PlaylistURL = "https://cdn.example.com/playlist.m3u8"
	state.RetryCount = 1
	due := time.Now().Add(2 * time.Minute)
	state.ScheduleRetry(due)
	if err := store.UpdateState(ctx, state); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	fetched, err := store.StateByUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("StateByUnit failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected state")
	}
	if fetched.Phase != procstate.PhaseTranscribing {
		t.Fatalf("expected transcribing, got %s", fetched.Phase)
	}
	if fetched.VideoSourceHash != "abc123" {
		t.Fatalf("expected hash preserved, got %q", fetched.VideoSourceHash)
	}
	if fetched.NextRetryAt == nil {
		t.Fatal("expected scheduled retry preserved")
	}
	if fetched.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", fetched.RetryCount)
	}

	fetched.MarkFailed("transcription failed")
	if err := store.UpdateState(ctx, fetched); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	failed, err := store.StateByUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("StateByUnit failed: %v", err)
	}
	if failed.Phase != procstate.PhaseFailed || failed.ErrorMessage != "transcription failed" {
		t.Fatalf("unexpected failed state: %#v", failed)
	}
	if failed.NextRetryAt != nil {
		t.Fatal("expected retry schedule cleared on failure")
	}

	deleted, err := store.DeleteStateByUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("DeleteStateByUnit failed: %v", err)
	}
	if !deleted {
		t.Fatal("expected state deletion")
	}
	gone, err := store.StateByUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("StateByUnit failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected nil after deletion, got %#v", gone)
	}
}

func TestStatesByPhaseFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	phases := []procstate.Phase{
		procstate.PhaseIdle,
		procstate.PhaseTranscribing,
		procstate.PhaseIngesting,
		procstate.PhaseFailed,
	}
	for i, phase := range phases {
		unit := testsupport.NewUnit(t, store, int64(i+1), fmt.Sprintf("unit-%d", i))
		state := testsupport.NewState(t, store, unit.ID)
		state.Phase = phase
		if err := store.UpdateState(ctx, state); err != nil {
			t.Fatalf("UpdateState failed: %v", err)
		}
	}

	active, err := store.StatesByPhase(ctx, procstate.PhaseTranscribing, procstate.PhaseIngesting)
	if err != nil {
		t.Fatalf("StatesByPhase failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active states, got %d", len(active))
	}

	all, err := store.StatesByPhase(ctx)
	if err != nil {
		t.Fatalf("StatesByPhase failed: %v", err)
	}
	if len(all) != len(phases) {
		t.Fatalf("expected %d states, got %d", len(phases), len(all))
	}
}

func TestTranscriptSaveReplacesPerUnit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	unit := testsupport.NewUnit(t, store, 5, "transcripts")

	first := &procstate.Transcript{
		UnitID: unit.ID,
		JobID:  "job-1",
		Status: procstate.TranscriptPending,
	}
	if err := store.SaveTranscript(ctx, first); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected transcript ID assigned")
	}

	second := &procstate.Transcript{
		UnitID: unit.ID,
		JobID:  "job-2",
		Status: procstate.TranscriptCompleted,
	}
	if err := store.SaveTranscript(ctx, second); err != nil {
		t.Fatalf("SaveTranscript replace failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected replacement to keep row ID %d, got %d", first.ID, second.ID)
	}

	fetched, err := store.TranscriptByUnit(ctx, unit.ID)
	if err != nil {
		t.Fatalf("TranscriptByUnit failed: %v", err)
	}
	if fetched == nil || fetched.JobID != "job-2" || fetched.Status != procstate.TranscriptCompleted {
		t.Fatalf("unexpected transcript: %#v", fetched)
	}
}

func TestPendingTranscripts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pendingUnit := testsupport.NewUnit(t, store, 1, "pending")
	doneUnit := testsupport.NewUnit(t, store, 2, "done")

	if err := store.SaveTranscript(ctx, &procstate.Transcript{
		UnitID: pendingUnit.ID,
		JobID:  "job-pending",
		Status: procstate.TranscriptPending,
	}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}
	if err := store.SaveTranscript(ctx, &procstate.Transcript{
		UnitID: doneUnit.ID,
		JobID:  "job-done",
		Status: procstate.TranscriptCompleted,
	}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	pending, err := store.PendingTranscripts(ctx)
	if err != nil {
		t.Fatalf("PendingTranscripts failed: %v", err)
	}
	if len(pending) != 1 || pending[0].UnitID != pendingUnit.ID {
		t.Fatalf("unexpected pending transcripts: %#v", pending)
	}
}

func TestStaleStatesAndDueRetries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stuckUnit := testsupport.NewUnit(t, store, 1, "stuck")
	stuck := testsupport.NewState(t, store, stuckUnit.ID)
	stuck.Phase = procstate.PhaseTranscribing
	if err := store.UpdateState(ctx, stuck); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	retryUnit := testsupport.NewUnit(t, store, 2, "retry")
	retry := testsupport.NewState(t, store, retryUnit.ID)
	retry.Phase = procstate.PhaseIngesting
	retry.ScheduleRetry(time.Now().Add(-time.Minute))
	if err := store.UpdateState(ctx, retry); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	stale, err := store.StaleStates(ctx, procstate.PhaseTranscribing, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("StaleStates failed: %v", err)
	}
	if len(stale) != 1 || stale[0].UnitID != stuckUnit.ID {
		t.Fatalf("unexpected stale states: %#v", stale)
	}

	fresh, err := store.StaleStates(ctx, procstate.PhaseTranscribing, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("StaleStates failed: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("expected no stale states before cutoff, got %d", len(fresh))
	}

	due, err := store.DueRetries(ctx, time.Now())
	if err != nil {
		t.Fatalf("DueRetries failed: %v", err)
	}
	if len(due) != 1 || due[0].UnitID != retryUnit.ID {
		t.Fatalf("unexpected due retries: %#v", due)
	}
}

func TestDeleteOrphansRemovesStatesWithoutUnits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	kept := testsupport.NewUnit(t, store, 1, "kept")
	testsupport.NewState(t, store, kept.ID)

	doomed := testsupport.NewUnit(t, store, 2, "doomed")
	testsupport.NewState(t, store, doomed.ID)
	if err := store.SaveTranscript(ctx, &procstate.Transcript{
		UnitID: doomed.ID,
		JobID:  "job-orphan",
		Status: procstate.TranscriptPending,
	}); err != nil {
		t.Fatalf("SaveTranscript failed: %v", err)
	}

	deleted, err := store.DeleteUnit(ctx, doomed.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteUnit failed: deleted=%v err=%v", deleted, err)
	}

	removed, err := store.DeleteOrphans(ctx)
	if err != nil {
		t.Fatalf("DeleteOrphans failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 orphan rows removed, got %d", removed)
	}

	keptState, err := store.StateByUnit(ctx, kept.ID)
	if err != nil {
		t.Fatalf("StateByUnit failed: %v", err)
	}
	if keptState == nil {
		t.Fatal("expected surviving state for kept unit")
	}
}

func TestHealthSummaryCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	phases := []procstate.Phase{
		procstate.PhaseIdle,
		procstate.PhaseCheckingPlaylist,
		procstate.PhaseTranscribing,
		procstate.PhaseDone,
		procstate.PhaseFailed,
	}
	for i, phase := range phases {
		unit := testsupport.NewUnit(t, store, int64(i+1), fmt.Sprintf("health-%d", i))
		state := testsupport.NewState(t, store, unit.ID)
		state.Phase = phase
		if err := store.UpdateState(ctx, state); err != nil {
			t.Fatalf("UpdateState failed: %v", err)
		}
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if summary.Total != 5 || summary.Idle != 1 || summary.Active != 2 || summary.Done != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	health := store.CheckHealth(ctx)
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.TotalStates != 5 {
		t.Fatalf("expected 5 states, got %d", health.TotalStates)
	}
}

func TestWithUnitLockSerializes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	const workers = 8
	var (
		wg      sync.WaitGroup
		active  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithUnitLock(ctx, 1, func(context.Context) error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive execution, saw %d concurrent holders", maxSeen)
	}
}

func TestWithUnitLockHonorsCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.WithUnitLock(ctx, 1, func(context.Context) error {
		t.Fatal("callback should not run with cancelled context")
		return nil
	})
	if err == nil {
		t.Fatal("expected context error")
	}
}
