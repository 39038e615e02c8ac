package procstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StateByUnit fetches a unit's processing state.
func (s *Store) StateByUnit(ctx context.Context, unitID int64) (*State, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stateColumns+` FROM processing_states WHERE unit_id = ?`, unitID)
	state, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return state, nil
}

// CreateState inserts a fresh idle state for a unit.
func (s *Store) CreateState(ctx context.Context, unitID int64) (*State, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO processing_states (
            unit_id, phase, retry_count, started_at, last_updated_at
        ) VALUES (?, ?, 0, ?, ?)`,
		unitID,
		PhaseIdle,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert state: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &State{
		ID:            id,
		UnitID:        unitID,
		Phase:         PhaseIdle,
		StartedAt:     now,
		LastUpdatedAt: now,
	}, nil
}

// UpdateState persists all mutable state fields and bumps last_updated_at.
func (s *Store) UpdateState(ctx context.Context, state *State) error {
	if state == nil {
		return errors.New("state is nil")
	}
	state.LastUpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE processing_states
         SET phase = ?, video_source_hash = ?, attachment_version = ?,
             playlist_url = ?, ingestion_job_token = ?, retry_count = ?,
             next_retry_at = ?, error_message = ?, last_updated_at = ?
         WHERE id = ?`,
		state.Phase,
		nullableString(state.VideoSourceHash),
		state.AttachmentVersion,
		nullableString(state.PlaylistURL),
		nullableString(state.IngestionJobToken),
		state.RetryCount,
		nullableTime(state.NextRetryAt),
		nullableString(state.ErrorMessage),
		state.LastUpdatedAt.Format(time.RFC3339Nano),
		state.ID,
	); err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

// DeleteStateByUnit removes a unit's processing state.
func (s *Store) DeleteStateByUnit(ctx context.Context, unitID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM processing_states WHERE unit_id = ?`, unitID)
	if err != nil {
		return false, fmt.Errorf("delete state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// StatesByPhase returns states matching any of the given phases ordered by
// last update. With no phases, all states are returned.
func (s *Store) StatesByPhase(ctx context.Context, phases ...Phase) ([]*State, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + stateColumns + ` FROM processing_states`
	orderClause := ` ORDER BY last_updated_at, id`

	if len(phases) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(phases))
		args := make([]any, len(phases))
		for i, phase := range phases {
			args[i] = phase
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE phase IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
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
