package testsupport

import (
	"context"
	"testing"

	"lectern/internal/config"
	"lectern/internal/lecture"
	"lectern/internal/procstate"
)

// MustOpenStore opens a procstate.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *procstate.Store {
	t.Helper()

	store, err := procstate.Open(cfg)
	if err != nil {
		t.Fatalf("procstate.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUnit creates a lecture unit for tests using the provided store.
func NewUnit(t testing.TB, store *procstate.Store, lectureID int64, title string) *lecture.Unit {
	t.Helper()

	unit := &lecture.Unit{
		LectureID:      lectureID,
		Title:          title,
		VideoSource:    "https://videos.example.com/" + title,
		AttachmentLink: "https://files.example.com/" + title + ".pdf",
	}
	if err := store.CreateUnit(context.Background(), unit); err != nil {
		t.Fatalf("store.CreateUnit: %v", err)
	}
	return unit
}

// NewState creates an idle processing state for the unit.
func NewState(t testing.TB, store *procstate.Store, unitID int64) *procstate.State {
	t.Helper()

	state, err := store.CreateState(context.Background(), unitID)
	if err != nil {
		t.Fatalf("store.CreateState: %v", err)
	}
	return state
}
