package pipeline

import (
	"context"
	"errors"

	"lectern/internal/logging"
	"lectern/internal/procstate"
	"lectern/internal/services"
	"lectern/internal/services/transcriber"
)

// PollTranscriptions queries the transcriber for every transcribing unit
// without a pending retry schedule. Terminal results feed the transcription
// completion handler so the stale-job validation lives in one place.
func (s *Scheduler) PollTranscriptions(ctx context.Context) error {
	if !s.orch.transcriber.Available() {
		return nil
	}
	states, err := s.orch.store.StatesByPhase(ctx, procstate.PhaseTranscribing)
	if err != nil {
		return err
	}
	for _, state := range states {
		if state.NextRetryAt != nil {
			continue
		}
		if err := s.pollOne(ctx, state.UnitID); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Warn("transcription poll failed",
				logging.Int64(logging.FieldUnitID, state.UnitID),
				logging.Error(err))
		}
	}
	return nil
}

func (s *Scheduler) pollOne(ctx context.Context, unitID int64) error {
	status, err := s.orch.transcriber.Status(ctx, unitID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			// The remote job vanished; report it as a failure so the retry
			// budget decides what happens next.
			return s.orch.handlePolledResult(ctx, unitID)
		}
		return err
	}

	switch status.State {
	case transcriber.JobCompleted:
		return s.orch.HandleTranscriptionComplete(ctx, unitID, status.JobID, true, status.Detail)
	case transcriber.JobFailed:
		return s.orch.HandleTranscriptionComplete(ctx, unitID, status.JobID, false, status.Detail)
	default:
		return nil
	}
}

// handlePolledResult reports a vanished remote job as a failure of the
// current local record.
func (o *Orchestrator) handlePolledResult(ctx context.Context, unitID int64) error {
	transcript, err := o.store.TranscriptByUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if transcript == nil {
		return nil
	}
	return o.HandleTranscriptionComplete(ctx, unitID, transcript.JobID, false, "transcription job no longer exists")
}
