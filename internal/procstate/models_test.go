package procstate_test

import (
	"testing"
	"time"

	"lectern/internal/procstate"
)

func TestParsePhase(t *testing.T) {
	cases := []struct {
		input string
		want  procstate.Phase
		ok    bool
	}{
		{"idle", procstate.PhaseIdle, true},
		{"  Transcribing ", procstate.PhaseTranscribing, true},
		{"CHECKING_PLAYLIST", procstate.PhaseCheckingPlaylist, true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tc := range cases {
		got, ok := procstate.ParsePhase(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParsePhase(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParsePhase(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestIsActivePhase(t *testing.T) {
	active := []procstate.Phase{
		procstate.PhaseCheckingPlaylist,
		procstate.PhaseTranscribing,
		procstate.PhaseIngesting,
	}
	for _, phase := range active {
		if !procstate.IsActivePhase(phase) {
			t.Fatalf("expected %s active", phase)
		}
	}
	for _, phase := range []procstate.Phase{procstate.PhaseIdle, procstate.PhaseDone, procstate.PhaseFailed} {
		if procstate.IsActivePhase(phase) {
			t.Fatalf("expected %s inactive", phase)
		}
	}
}

func TestStateMarkFailedClearsJobToken(t *testing.T) {
	due := time.Now()
	state := &procstate.State{
		Phase:             procstate.PhaseIngesting,
		IngestionJobToken: "token",
		NextRetryAt:       &due,
	}
	state.MarkFailed("boom")
	if state.Phase != procstate.PhaseFailed {
		t.Fatalf("expected failed phase, got %s", state.Phase)
	}
	if state.IngestionJobToken != "" {
		t.Fatal("expected job token cleared")
	}
	if state.NextRetryAt != nil {
		t.Fatal("expected retry schedule cleared")
	}
	if state.ErrorMessage != "boom" {
		t.Fatalf("unexpected error message %q", state.ErrorMessage)
	}
}

func TestStateResetRetry(t *testing.T) {
	due := time.Now()
	state := &procstate.State{RetryCount: 2, NextRetryAt: &due}
	state.ResetRetry()
	if state.RetryCount != 0 || state.NextRetryAt != nil {
		t.Fatalf("expected retry reset, got %#v", state)
	}
}

func TestStateTerminal(t *testing.T) {
	if !(&procstate.State{Phase: procstate.PhaseDone}).IsTerminal() {
		t.Fatal("done should be terminal")
	}
	if !(&procstate.State{Phase: procstate.PhaseFailed}).IsTerminal() {
		t.Fatal("failed should be terminal")
	}
	if (&procstate.State{Phase: procstate.PhaseTranscribing}).IsTerminal() {
		t.Fatal("transcribing should not be terminal")
	}
}
