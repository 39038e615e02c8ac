package api

import (
	"lectern/internal/lecture"
	"lectern/internal/procstate"
)

// FromUnit converts a lecture unit and its optional processing state to the
// API representation.
func FromUnit(unit *lecture.Unit, state *procstate.State) Unit {
	if unit == nil {
		return Unit{}
	}
	dto := Unit{
		ID:                unit.ID,
		LectureID:         unit.LectureID,
		Title:             unit.Title,
		Tutorial:          unit.Tutorial,
		VideoSource:       unit.VideoSource,
		AttachmentLink:    unit.AttachmentLink,
		AttachmentVersion: unit.AttachmentVersion,
	}
	if !unit.CreatedAt.IsZero() {
		dto.CreatedAt = unit.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !unit.UpdatedAt.IsZero() {
		dto.UpdatedAt = unit.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if state != nil {
		processing := FromState(state)
		dto.Processing = &processing
	}
	return dto
}

// FromState converts a processing state to its API representation.
func FromState(state *procstate.State) Processing {
	if state == nil {
		return Processing{}
	}
	dto := Processing{
		Phase:        string(state.Phase),
		RetryCount:   state.RetryCount,
		ErrorMessage: state.ErrorMessage,
		PlaylistURL:  state.PlaylistURL,
	}
	if state.NextRetryAt != nil {
		dto.NextRetryAt = state.NextRetryAt.UTC().Format(dateTimeFormat)
	}
	if !state.StartedAt.IsZero() {
		dto.StartedAt = state.StartedAt.UTC().Format(dateTimeFormat)
	}
	if !state.LastUpdatedAt.IsZero() {
		dto.LastUpdatedAt = state.LastUpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromHealth converts store health counts to the API representation.
func FromHealth(summary procstate.HealthSummary) HealthSummary {
	return HealthSummary{
		Total:  summary.Total,
		Idle:   summary.Idle,
		Active: summary.Active,
		Done:   summary.Done,
		Failed: summary.Failed,
	}
}

// MergePhaseStats converts per-phase counts to string keys, filling in zero
// counts for known phases so consumers always see the full set.
func MergePhaseStats(stats map[procstate.Phase]int) map[string]int {
	merged := make(map[string]int, len(stats))
	for _, phase := range procstate.AllPhases() {
		merged[string(phase)] = 0
	}
	for phase, count := range stats {
		merged[string(phase)] = count
	}
	return merged
}
