package api_test

import (
	"testing"
	"time"

	"lectern/internal/api"
	"lectern/internal/lecture"
	"lectern/internal/procstate"
)

func TestFromUnitIncludesProcessing(t *testing.T) {
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	unit := &lecture.Unit{
		ID:                7,
		LectureID:         3,
		Title:             "Shortest Paths",
		VideoSource:       "https://videos.example.com/sp",
		AttachmentLink:    "https://files.example.com/sp.pdf",
		AttachmentVersion: 2,
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	due := created.Add(2 * time.Minute)
	state := &procstate.State{
		UnitID:        7,
		Phase:         procstate.PhaseTranscribing,
		RetryCount:    1,
		NextRetryAt:   &due,
		ErrorMessage:  "Transcription submission failed",
		PlaylistURL:   "https://cdn.example.com/sp.m3u8",
		StartedAt:     created,
		LastUpdatedAt: created,
	}

	dto := api.FromUnit(unit, state)
	if dto.ID != 7 || dto.LectureID != 3 || dto.Title != "Shortest Paths" {
		t.Fatalf("unexpected dto: %#v", dto)
	}
	if dto.CreatedAt != "2026-03-14T10:00:00.000Z" {
		t.Fatalf("unexpected createdAt: %q", dto.CreatedAt)
	}
	if dto.Processing == nil {
		t.Fatal("expected processing attached")
	}
	if dto.Processing.Phase != "transcribing" || dto.Processing.RetryCount != 1 {
		t.Fatalf("unexpected processing: %#v", dto.Processing)
	}
	if dto.Processing.NextRetryAt != "2026-03-14T10:02:00.000Z" {
		t.Fatalf("unexpected nextRetryAt: %q", dto.Processing.NextRetryAt)
	}
}

func TestFromUnitWithoutState(t *testing.T) {
	dto := api.FromUnit(&lecture.Unit{ID: 1, LectureID: 1}, nil)
	if dto.Processing != nil {
		t.Fatalf("expected nil processing, got %#v", dto.Processing)
	}
}

func TestMergePhaseStatsFillsKnownPhases(t *testing.T) {
	merged := api.MergePhaseStats(map[procstate.Phase]int{
		procstate.PhaseDone: 4,
	})
	if merged["done"] != 4 {
		t.Fatalf("expected done count preserved, got %d", merged["done"])
	}
	if count, ok := merged["transcribing"]; !ok || count != 0 {
		t.Fatalf("expected zero-filled transcribing, got %d (present %v)", count, ok)
	}
	if len(merged) != len(procstate.AllPhases()) {
		t.Fatalf("expected %d phases, got %d", len(procstate.AllPhases()), len(merged))
	}
}
