package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lectern/internal/lecture"
	"lectern/internal/logging"
	"lectern/internal/procstate"
	"lectern/internal/services/knowledge"
)

func (o *Orchestrator) startIngestion(ctx context.Context, unit *lecture.Unit, state *procstate.State, log *slog.Logger) error {
	req := knowledge.IngestionRequest{
		UnitID:         unit.ID,
		LectureID:      unit.LectureID,
		Title:          unit.Title,
		AttachmentLink: unit.AttachmentLink,
	}
	if transcript, err := o.store.TranscriptByUnit(ctx, unit.ID); err != nil {
		return err
	} else if transcript != nil && transcript.Status == procstate.TranscriptCompleted {
		req.TranscriptID = transcript.ID
	}

	token, err := o.knowledge.StartIngestion(ctx, req)
	if err != nil {
		log.Warn("ingestion submission failed", logging.Error(err))
		return o.ingestionFailure(ctx, unit, state, "Ingestion submission failed", log)
	}
	if token == "" {
		log.Info("unit not applicable for ingestion")
		return o.markDone(ctx, unit, state, log)
	}

	state.Phase = procstate.PhaseIngesting
	state.IngestionJobToken = token
	state.ErrorMessage = ""
	if err := o.store.UpdateState(ctx, state); err != nil {
		return err
	}
	log.Info("ingestion started")
	return nil
}

func (o *Orchestrator) markDone(ctx context.Context, unit *lecture.Unit, state *procstate.State, log *slog.Logger) error {
	state.Phase = procstate.PhaseDone
	state.IngestionJobToken = ""
	state.ErrorMessage = ""
	state.ResetRetry()
	if err := o.store.UpdateState(ctx, state); err != nil {
		return err
	}
	log.Info("processing complete")
	if err := o.notifier.NotifyProcessingCompleted(ctx, unit.Title); err != nil {
		log.Warn("completion notification failed", logging.Error(err))
	}
	return nil
}

// retryDelay doubles per attempt: 2, 4, 8 minutes for counts 1 through 3.
func retryDelay(retryCount int) time.Duration {
	return time.Duration(1<<retryCount) * time.Minute
}

// transcriptionFailure records a transcription failure. While the retry
// budget holds, the state stays in its phase with a scheduled retry. An
// exhausted budget falls back to PDF ingestion when possible and fails the
// unit otherwise.
func (o *Orchestrator) transcriptionFailure(ctx context.Context, unit *lecture.Unit, state *procstate.State, caps capabilities, message string, log *slog.Logger) error {
	state.RetryCount++
	if state.RetryCount <= o.maxRetries() {
		delay := retryDelay(state.RetryCount)
		state.Phase = procstate.PhaseTranscribing
		state.ErrorMessage = message
		state.ScheduleRetry(time.Now().Add(delay))
		log.Info("transcription retry scheduled",
			logging.Int("retry_count", state.RetryCount),
			logging.Duration("delay", delay))
		return o.store.UpdateState(ctx, state)
	}

	if caps.hasPDF && caps.canIngest {
		log.Info("transcription budget exhausted, falling back to attachment ingestion")
		state.ResetRetry()
		state.ErrorMessage = ""
		return o.startIngestion(ctx, unit, state, log)
	}

	return o.failUnit(ctx, unit, state, fmt.Sprintf("%s after %d attempts", message, state.RetryCount), log)
}

// ingestionFailure records an ingestion failure. The stored job token is
// cleared immediately because the failed remote job no longer answers to it.
func (o *Orchestrator) ingestionFailure(ctx context.Context, unit *lecture.Unit, state *procstate.State, message string, log *slog.Logger) error {
	state.IngestionJobToken = ""
	state.RetryCount++
	if state.RetryCount <= o.maxRetries() {
		delay := retryDelay(state.RetryCount)
		state.Phase = procstate.PhaseIngesting
		state.ErrorMessage = message
		state.ScheduleRetry(time.Now().Add(delay))
		log.Info("ingestion retry scheduled",
			logging.Int("retry_count", state.RetryCount),
			logging.Duration("delay", delay))
		return o.store.UpdateState(ctx, state)
	}

	return o.failUnit(ctx, unit, state, fmt.Sprintf("%s after %d attempts", message, state.RetryCount), log)
}

func (o *Orchestrator) failUnit(ctx context.Context, unit *lecture.Unit, state *procstate.State, message string, log *slog.Logger) error {
	state.MarkFailed(message)
	if err := o.store.UpdateState(ctx, state); err != nil {
		return err
	}
	log.Error("processing failed", logging.String("reason", message))
	if err := o.notifier.NotifyProcessingFailed(ctx, unit.Title, message); err != nil {
		log.Warn("failure notification failed", logging.Error(err))
	}
	return nil
}
