package pipeline

import (
	"context"
	"log/slog"

	"lectern/internal/contenthash"
	"lectern/internal/lecture"
	"lectern/internal/logging"
	"lectern/internal/procstate"
	"lectern/internal/services"
	"lectern/internal/services/transcriber"
)

// Trigger evaluates a unit's content and drives it into processing. It is
// invoked when a unit is created or updated and by recovery sweeps. Units in
// an active or terminal phase are left alone unless their content changed.
func (o *Orchestrator) Trigger(ctx context.Context, unit *lecture.Unit) error {
	if unit == nil || unit.ID == 0 {
		return services.Wrap(services.ErrValidation, "pipeline", "trigger", "unit is nil or unsaved", nil)
	}
	log := o.unitLogger(unit)
	if unit.Tutorial {
		log.Debug("skipping tutorial unit")
		return nil
	}

	caps := o.capabilitiesFor(unit)
	if !caps.any() {
		log.Debug("no processing applies to unit")
		return nil
	}

	return o.store.WithUnitLock(ctx, unit.ID, func(ctx context.Context) error {
		state, err := o.store.StateByUnit(ctx, unit.ID)
		if err != nil {
			return err
		}
		created := false
		if state == nil {
			state, err = o.store.CreateState(ctx, unit.ID)
			if err != nil {
				return err
			}
			created = true
		}

		if err := o.applyContentChanges(ctx, unit, state, log); err != nil {
			return err
		}

		if state.Phase != procstate.PhaseIdle {
			log.Debug("unit not idle, leaving alone", logging.String(logging.FieldPhase, string(state.Phase)))
			return nil
		}

		return o.startFromIdle(ctx, unit, state, caps, created, log)
	})
}

// applyContentChanges detects content fingerprint changes and resets the
// state when the unit's content was replaced. A first observation records the
// fingerprint without counting as a change.
func (o *Orchestrator) applyContentChanges(ctx context.Context, unit *lecture.Unit, state *procstate.State, log *slog.Logger) error {
	currentHash := contenthash.VideoSource(unit.VideoSource)
	videoChanged := state.VideoSourceHash != "" && currentHash != "" && state.VideoSourceHash != currentHash
	attachmentChanged := state.AttachmentVersion != 0 && unit.AttachmentVersion != 0 && state.AttachmentVersion != unit.AttachmentVersion

	if !videoChanged && !attachmentChanged {
		// Record first observations so later triggers can detect changes.
		dirty := false
		if state.VideoSourceHash == "" && currentHash != "" {
			state.VideoSourceHash = currentHash
			dirty = true
		}
		if state.AttachmentVersion == 0 && unit.AttachmentVersion != 0 {
			state.AttachmentVersion = unit.AttachmentVersion
			dirty = true
		}
		if dirty {
			return o.store.UpdateState(ctx, state)
		}
		return nil
	}

	log.Info("unit content changed, resetting processing",
		logging.Bool("video_changed", videoChanged),
		logging.Bool("attachment_changed", attachmentChanged))

	if videoChanged {
		// Delete the local record before the remote cancel so a completion
		// racing in can no longer match it.
		if _, err := o.store.DeleteTranscriptByUnit(ctx, unit.ID); err != nil {
			return err
		}
		if err := o.transcriber.Cancel(ctx, unit.ID); err != nil {
			log.Warn("cancel transcription after content change", logging.Error(err))
		}
	}

	if state.IngestionJobToken != "" {
		if _, err := o.knowledge.CancelIngestion(ctx, unit.ID); err != nil {
			log.Warn("cancel ingestion after content change", logging.Error(err))
		}
		state.IngestionJobToken = ""
	}

	if err := o.knowledge.DeleteUnits(ctx, []int64{unit.ID}); err != nil {
		log.Warn("delete stale knowledge content", logging.Error(err))
	}

	state.VideoSourceHash = currentHash
	state.AttachmentVersion = unit.AttachmentVersion
	state.ResetRetry()
	state.ErrorMessage = ""
	state.Phase = procstate.PhaseIdle
	return o.store.UpdateState(ctx, state)
}

func (o *Orchestrator) startFromIdle(ctx context.Context, unit *lecture.Unit, state *procstate.State, caps capabilities, created bool, log *slog.Logger) error {
	transcript, err := o.store.TranscriptByUnit(ctx, unit.ID)
	if err != nil {
		return err
	}
	if transcript != nil && transcript.Status == procstate.TranscriptCompleted {
		log.Info("transcription already completed, skipping to ingestion")
		if caps.canIngest {
			return o.startIngestion(ctx, unit, state, log)
		}
		return o.markDone(ctx, unit, state, log)
	}

	if caps.canTranscribe {
		return o.startTranscription(ctx, unit, state, caps, log)
	}

	if caps.hasPDF && caps.canIngest {
		return o.startIngestion(ctx, unit, state, log)
	}

	if created {
		// Nothing applies after all; do not leave an idle state behind.
		_, err := o.store.DeleteStateByUnit(ctx, unit.ID)
		return err
	}
	return nil
}

func (o *Orchestrator) startTranscription(ctx context.Context, unit *lecture.Unit, state *procstate.State, caps capabilities, log *slog.Logger) error {
	state.Phase = procstate.PhaseCheckingPlaylist
	if err := o.store.UpdateState(ctx, state); err != nil {
		return err
	}

	playlistURL, found, err := o.video.PlaylistLink(ctx, unit.VideoSource)
	if err != nil {
		log.Warn("playlist lookup failed", logging.Error(err))
		if caps.hasPDF && caps.canIngest {
			return o.startIngestion(ctx, unit, state, log)
		}
		state.Phase = procstate.PhaseIdle
		state.ErrorMessage = "Playlist check failed"
		return o.store.UpdateState(ctx, state)
	}
	if !found {
		log.Info("no playlist available for video source")
		if caps.hasPDF && caps.canIngest {
			return o.startIngestion(ctx, unit, state, log)
		}
		state.Phase = procstate.PhaseIdle
		return o.store.UpdateState(ctx, state)
	}

	state.PlaylistURL = playlistURL
	return o.submitTranscription(ctx, unit, state, caps, log)
}

// submitTranscription sends the job to the transcriber using the playlist URL
// already stored on the state. The retry sweep reuses it for re-submission.
func (o *Orchestrator) submitTranscription(ctx context.Context, unit *lecture.Unit, state *procstate.State, caps capabilities, log *slog.Logger) error {
	jobID, err := o.transcriber.Start(ctx, transcriber.StartRequest{
		UnitID:      unit.ID,
		LectureID:   unit.LectureID,
		PlaylistURL: state.PlaylistURL,
	})
	if err != nil {
		log.Warn("transcription submission failed", logging.Error(err))
		return o.transcriptionFailure(ctx, unit, state, caps, "Transcription submission failed", log)
	}

	state.Phase = procstate.PhaseTranscribing
	state.ErrorMessage = ""
	if err := o.store.UpdateState(ctx, state); err != nil {
		return err
	}
	log.Info("transcription started", logging.String(logging.FieldJobID, jobID))
	return o.store.SaveTranscript(ctx, &procstate.Transcript{
		UnitID: unit.ID,
		JobID:  jobID,
		Status: procstate.TranscriptPending,
	})
}
