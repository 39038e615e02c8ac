package procstate

import (
	"context"
	"fmt"
	"os"
	"time"
)

// StaleStates returns states stuck in the given phase whose last update is
// older than the cutoff.
func (s *Store) StaleStates(ctx context.Context, phase Phase, cutoff time.Time) ([]*State, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+stateColumns+` FROM processing_states
         WHERE phase = ? AND last_updated_at < ?
         ORDER BY last_updated_at, id`,
		phase,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale states: %w", err)
	}
	defer rows.Close()

	var states []*State
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// DueRetries returns states in a retryable phase whose scheduled retry time
// has arrived.
func (s *Store) DueRetries(ctx context.Context, now time.Time) ([]*State, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+stateColumns+` FROM processing_states
         WHERE phase IN (?, ?) AND next_retry_at IS NOT NULL AND next_retry_at <= ?
         ORDER BY next_retry_at, id`,
		PhaseTranscribing,
		PhaseIngesting,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("list due retries: %w", err)
	}
	defer rows.Close()

	var states []*State
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// DeleteOrphans removes processing states and transcription records whose
// lecture unit no longer exists. It returns how many rows were removed.
func (s *Store) DeleteOrphans(ctx context.Context) (int64, error) {
	var removed int64

	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM processing_states
         WHERE unit_id NOT IN (SELECT id FROM lecture_units)`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete orphan states: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil {
		removed += affected
	}

	res, err = s.execWithRetry(
		ctx,
		`DELETE FROM transcripts
         WHERE unit_id NOT IN (SELECT id FROM lecture_units)`,
	)
	if err != nil {
		return removed, fmt.Errorf("delete orphan transcripts: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil {
		removed += affected
	}

	return removed, nil
}

// Stats returns per-phase state counts.
func (s *Store) Stats(ctx context.Context) (map[Phase]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT phase, COUNT(*) FROM processing_states GROUP BY phase`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Phase]int)
	for rows.Next() {
		var (
			phase string
			count int
		)
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, err
		}
		stats[Phase(phase)] = count
	}
	return stats, rows.Err()
}

// Health aggregates state counts into a lifecycle summary.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}

	var summary HealthSummary
	for phase, count := range stats {
		summary.Total += count
		switch {
		case phase == PhaseIdle:
			summary.Idle += count
		case phase == PhaseDone:
			summary.Done += count
		case phase == PhaseFailed:
			summary.Failed += count
		case IsActivePhase(phase):
			summary.Active += count
		}
	}
	return summary, nil
}

// CheckHealth runs diagnostic checks against the state database.
func (s *Store) CheckHealth(ctx context.Context) DatabaseHealth {
	health := DatabaseHealth{DBPath: s.path}

	if _, err := os.Stat(s.path); err != nil {
		health.Error = fmt.Sprintf("database file not accessible: %v", err)
		return health
	}
	health.DatabaseExists = true

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processing_states`).Scan(&total); err != nil {
		health.Error = fmt.Sprintf("database not readable: %v", err)
		return health
	}
	health.DatabaseReadable = true
	health.TotalStates = total

	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		health.Error = fmt.Sprintf("integrity check failed: %v", err)
		return health
	}
	if result != "ok" {
		health.Error = fmt.Sprintf("integrity check reported: %s", result)
		return health
	}
	health.IntegrityCheck = true
	return health
}
