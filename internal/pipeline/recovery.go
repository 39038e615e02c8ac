package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lectern/internal/logging"
	"lectern/internal/procstate"
)

// Scheduler runs the recovery sweeps and the transcription poller inside the
// daemon. Each sweep is also callable directly, which tests and the status
// surface use.
type Scheduler struct {
	orch   *Orchestrator
	logger *slog.Logger

	stuckInterval  time.Duration
	retryInterval  time.Duration
	orphanInterval time.Duration
	pollInterval   time.Duration

	phaseTimeouts map[procstate.Phase]time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler constructs a scheduler from the orchestrator's config.
func NewScheduler(orch *Orchestrator, logger *slog.Logger) *Scheduler {
	cfg := orch.cfg
	return &Scheduler{
		orch:           orch,
		logger:         logging.NewComponentLogger(logger, "recovery"),
		stuckInterval:  time.Duration(cfg.Pipeline.StuckSweepInterval) * time.Second,
		retryInterval:  time.Duration(cfg.Pipeline.RetrySweepInterval) * time.Second,
		orphanInterval: time.Duration(cfg.Pipeline.OrphanSweepInterval) * time.Second,
		pollInterval:   time.Duration(cfg.Pipeline.PollInterval) * time.Second,
		phaseTimeouts: map[procstate.Phase]time.Duration{
			procstate.PhaseCheckingPlaylist: time.Duration(cfg.Pipeline.PlaylistTimeoutMinutes) * time.Minute,
			procstate.PhaseTranscribing:     time.Duration(cfg.Pipeline.TranscribeTimeoutMinutes) * time.Minute,
			procstate.PhaseIngesting:        time.Duration(cfg.Pipeline.IngestTimeoutMinutes) * time.Minute,
		},
	}
}

// Start launches the sweep loops. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.loop(runCtx, s.stuckInterval, "stuck", s.RunStuckSweep)
	s.loop(runCtx, s.retryInterval, "retry", s.RunRetrySweep)
	s.loop(runCtx, s.orphanInterval, "orphan", s.RunOrphanSweep)
	s.loop(runCtx, s.pollInterval, "poll", s.PollTranscriptions)
}

// Stop halts the sweep loops and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, name string, sweep func(context.Context) error) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sweep(ctx); err != nil && ctx.Err() == nil {
					s.logger.Warn("sweep failed",
						logging.String(logging.FieldSweep, name),
						logging.Error(err))
				}
			}
		}
	}()
}

// RunStuckSweep finds active states whose last update is older than their
// phase timeout. Over-budget states fail; the rest reset to idle and get
// re-triggered.
func (s *Scheduler) RunStuckSweep(ctx context.Context) error {
	now := time.Now()
	for phase, timeout := range s.phaseTimeouts {
		if timeout <= 0 {
			continue
		}
		states, err := s.orch.store.StaleStates(ctx, phase, now.Add(-timeout))
		if err != nil {
			return err
		}
		for _, stale := range states {
			if err := s.recoverStuck(ctx, stale.UnitID, phase, timeout); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scheduler) recoverStuck(ctx context.Context, unitID int64, phase procstate.Phase, timeout time.Duration) error {
	var retrigger bool
	err := s.orch.store.WithUnitLock(ctx, unitID, func(ctx context.Context) error {
		state, err := s.orch.store.StateByUnit(ctx, unitID)
		if err != nil {
			return err
		}
		// Re-check under the lock; the unit may have moved on.
		if state == nil || state.Phase != phase || time.Since(state.LastUpdatedAt) < timeout {
			return nil
		}

		log := s.logger.With(
			logging.Int64(logging.FieldUnitID, unitID),
			logging.String(logging.FieldPhase, string(phase)))

		unit, err := s.orch.store.GetUnit(ctx, unitID)
		if err != nil {
			return err
		}

		state.RetryCount++
		if state.RetryCount > s.orch.maxRetries() {
			message := fmt.Sprintf("Timed out in phase %s", phase)
			if unit == nil {
				state.MarkFailed(message)
				return s.orch.store.UpdateState(ctx, state)
			}
			return s.orch.failUnit(ctx, unit, state, message, log)
		}

		log.Info("resetting stuck unit", logging.Int("retry_count", state.RetryCount))
		state.Phase = procstate.PhaseIdle
		state.IngestionJobToken = ""
		state.ClearRetrySchedule()
		if err := s.orch.store.UpdateState(ctx, state); err != nil {
			return err
		}
		retrigger = unit != nil
		return nil
	})
	if err != nil || !retrigger {
		return err
	}

	unit, err := s.orch.store.GetUnit(ctx, unitID)
	if err != nil || unit == nil {
		return err
	}
	return s.orch.Trigger(ctx, unit)
}

// RunRetrySweep re-drives states whose scheduled retry time has arrived.
// Transcribing states re-submit their job, ingesting states re-submit
// ingestion; failures re-enter the failure path.
func (s *Scheduler) RunRetrySweep(ctx context.Context) error {
	due, err := s.orch.store.DueRetries(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, dueState := range due {
		if err := s.retryDue(ctx, dueState.UnitID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) retryDue(ctx context.Context, unitID int64) error {
	return s.orch.store.WithUnitLock(ctx, unitID, func(ctx context.Context) error {
		state, err := s.orch.store.StateByUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if state == nil || state.NextRetryAt == nil || state.NextRetryAt.After(time.Now()) {
			return nil
		}

		unit, err := s.orch.store.GetUnit(ctx, unitID)
		if err != nil {
			return err
		}
		if unit == nil {
			// The orphan sweep will collect the state.
			return nil
		}

		log := s.orch.unitLogger(unit)
		caps := s.orch.capabilitiesFor(unit)
		state.ClearRetrySchedule()
		if err := s.orch.store.UpdateState(ctx, state); err != nil {
			return err
		}

		switch state.Phase {
		case procstate.PhaseTranscribing:
			if state.PlaylistURL == "" {
				playlistURL, found, err := s.orch.video.PlaylistLink(ctx, unit.VideoSource)
				if err != nil || !found {
					if err != nil {
						log.Warn("playlist lookup failed during retry", logging.Error(err))
					}
					return s.orch.transcriptionFailure(ctx, unit, state, caps, "Playlist unavailable on retry", log)
				}
				state.PlaylistURL = playlistURL
			}
			log.Info("retrying transcription", logging.Int("retry_count", state.RetryCount))
			return s.orch.submitTranscription(ctx, unit, state, caps, log)
		case procstate.PhaseIngesting:
			log.Info("retrying ingestion", logging.Int("retry_count", state.RetryCount))
			return s.orch.startIngestion(ctx, unit, state, log)
		default:
			return nil
		}
	})
}

// RunOrphanSweep removes states and transcription records whose unit no
// longer exists.
func (s *Scheduler) RunOrphanSweep(ctx context.Context) error {
	removed, err := s.orch.store.DeleteOrphans(ctx)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.logger.Info("removed orphaned processing rows",
			logging.String(logging.FieldSweep, "orphan"),
			logging.Int64("removed", removed))
	}
	return nil
}
