package pipeline

import (
	"context"

	"lectern/internal/lecture"
	"lectern/internal/logging"
	"lectern/internal/procstate"
	"lectern/internal/services"
)

// Cancel aborts a unit's processing. Remote jobs matching the current phase
// are cancelled best effort; the state always finishes at idle with a
// cancellation message.
func (o *Orchestrator) Cancel(ctx context.Context, unitID int64) error {
	return o.store.WithUnitLock(ctx, unitID, func(ctx context.Context) error {
		log := o.logger.With(logging.Int64(logging.FieldUnitID, unitID))

		state, err := o.store.StateByUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if state == nil {
			return nil
		}

		switch state.Phase {
		case procstate.PhaseTranscribing:
			if _, err := o.store.DeleteTranscriptByUnit(ctx, unitID); err != nil {
				return err
			}
			if err := o.transcriber.Cancel(ctx, unitID); err != nil {
				log.Warn("cancel transcription job", logging.Error(err))
			}
		case procstate.PhaseIngesting:
			if _, err := o.knowledge.CancelIngestion(ctx, unitID); err != nil {
				log.Warn("cancel ingestion job", logging.Error(err))
			}
		}

		state.Phase = procstate.PhaseIdle
		state.ErrorMessage = procstate.CancelledMessage
		state.IngestionJobToken = ""
		state.ResetRetry()
		if err := o.store.UpdateState(ctx, state); err != nil {
			return err
		}
		log.Info("processing cancelled")
		return nil
	})
}

// Retry resets a failed unit and re-runs the trigger. Content fingerprints
// are preserved so the retry does not count as a content change.
func (o *Orchestrator) Retry(ctx context.Context, unit *lecture.Unit) error {
	if unit == nil || unit.ID == 0 {
		return services.Wrap(services.ErrValidation, "pipeline", "retry", "unit is nil or unsaved", nil)
	}

	err := o.store.WithUnitLock(ctx, unit.ID, func(ctx context.Context) error {
		state, err := o.store.StateByUnit(ctx, unit.ID)
		if err != nil {
			return err
		}
		if state == nil || state.Phase != procstate.PhaseFailed {
			return services.Wrap(services.ErrValidation, "pipeline", "retry", "unit is not in a failed state", nil)
		}
		state.Phase = procstate.PhaseIdle
		state.ErrorMessage = ""
		state.ResetRetry()
		return o.store.UpdateState(ctx, state)
	})
	if err != nil {
		return err
	}
	return o.Trigger(ctx, unit)
}

// HandleUnitsDeletion cleans up processing artifacts for deleted units:
// remote transcription jobs are cancelled, local state and transcription
// records removed, and the knowledge base asked to drop ingested content.
func (o *Orchestrator) HandleUnitsDeletion(ctx context.Context, unitIDs []int64) error {
	if len(unitIDs) == 0 {
		return nil
	}
	for _, unitID := range unitIDs {
		err := o.store.WithUnitLock(ctx, unitID, func(ctx context.Context) error {
			log := o.logger.With(logging.Int64(logging.FieldUnitID, unitID))

			transcript, err := o.store.TranscriptByUnit(ctx, unitID)
			if err != nil {
				return err
			}
			if transcript != nil {
				if _, err := o.store.DeleteTranscriptByUnit(ctx, unitID); err != nil {
					return err
				}
				if transcript.Status == procstate.TranscriptPending {
					if err := o.transcriber.Cancel(ctx, unitID); err != nil {
						log.Warn("cancel transcription for deleted unit", logging.Error(err))
					}
				}
			}
			_, err = o.store.DeleteStateByUnit(ctx, unitID)
			return err
		})
		if err != nil {
			return err
		}
	}

	if err := o.knowledge.DeleteUnits(ctx, unitIDs); err != nil {
		o.logger.Warn("delete knowledge content for deleted units", logging.Error(err))
	}
	return nil
}
