package pipeline

import (
	"context"

	"lectern/internal/logging"
	"lectern/internal/procstate"
)

// HandleTranscriptionComplete processes a terminal transcription result. The
// result is ignored unless the unit is transcribing and the job matches the
// unit's current transcription record, so completions for superseded jobs
// cannot advance the state.
func (o *Orchestrator) HandleTranscriptionComplete(ctx context.Context, unitID int64, jobID string, success bool, detail string) error {
	return o.store.WithUnitLock(ctx, unitID, func(ctx context.Context) error {
		log := o.logger.With(
			logging.Int64(logging.FieldUnitID, unitID),
			logging.String(logging.FieldJobID, jobID),
		)

		state, err := o.store.StateByUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if state == nil || state.Phase != procstate.PhaseTranscribing {
			log.Debug("ignoring transcription result, unit not transcribing")
			return nil
		}

		transcript, err := o.store.TranscriptByUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if transcript == nil || transcript.JobID != jobID {
			log.Info("ignoring stale transcription result")
			return nil
		}

		unit, err := o.store.GetUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			log.Warn("transcription result for missing unit")
			return nil
		}
		caps := o.capabilitiesFor(unit)

		if !success {
			transcript.Status = procstate.TranscriptFailed
			transcript.Detail = detail
			if err := o.store.SaveTranscript(ctx, transcript); err != nil {
				return err
			}
			message := "Transcription failed"
			if detail != "" {
				message = "Transcription failed: " + detail
			}
			return o.transcriptionFailure(ctx, unit, state, caps, message, log)
		}

		transcript.Status = procstate.TranscriptCompleted
		transcript.Detail = detail
		if err := o.store.SaveTranscript(ctx, transcript); err != nil {
			return err
		}
		state.ResetRetry()
		state.ErrorMessage = ""
		log.Info("transcription completed")

		if caps.canIngest {
			return o.startIngestion(ctx, unit, state, log)
		}
		return o.markDone(ctx, unit, state, log)
	})
}

// HandleIngestionComplete processes an ingestion completion callback. The
// callback is ignored unless the unit is ingesting and the presented token
// matches the stored one, so stale callbacks from cancelled or superseded
// jobs cannot advance the state.
func (o *Orchestrator) HandleIngestionComplete(ctx context.Context, unitID int64, jobToken string, success bool, detail string) error {
	return o.store.WithUnitLock(ctx, unitID, func(ctx context.Context) error {
		log := o.logger.With(logging.Int64(logging.FieldUnitID, unitID))

		state, err := o.store.StateByUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if state == nil || state.Phase != procstate.PhaseIngesting {
			log.Debug("ignoring ingestion callback, unit not ingesting")
			return nil
		}
		if jobToken == "" || state.IngestionJobToken != jobToken {
			log.Info("ignoring ingestion callback with stale job token")
			return nil
		}

		unit, err := o.store.GetUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			log.Warn("ingestion callback for missing unit")
			return nil
		}

		if !success {
			message := "Ingestion failed"
			if detail != "" {
				message = "Ingestion failed: " + detail
			}
			return o.ingestionFailure(ctx, unit, state, message, log)
		}

		return o.markDone(ctx, unit, state, log)
	})
}
