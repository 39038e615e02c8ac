package procstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TranscriptByUnit fetches the unit's current transcription record.
func (s *Store) TranscriptByUnit(ctx context.Context, unitID int64) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE unit_id = ?`, unitID)
	transcript, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return transcript, nil
}

// SaveTranscript stores the unit's transcription record, replacing any prior
// record for the same unit. A superseded job's record does not survive.
func (s *Store) SaveTranscript(ctx context.Context, transcript *Transcript) error {
	if transcript == nil {
		return errors.New("transcript is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	existing, err := s.TranscriptByUnit(ctx, transcript.UnitID)
	if err != nil {
		return err
	}
	if existing == nil {
		res, err := s.execWithRetry(
			ctx,
			`INSERT INTO transcripts (
                unit_id, job_id, status, detail, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?)`,
			transcript.UnitID,
			nullableString(transcript.JobID),
			transcript.Status,
			nullableString(transcript.Detail),
			timestamp,
			timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert transcript: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		transcript.ID = id
		transcript.CreatedAt = now
		transcript.UpdatedAt = now
		return nil
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE transcripts
         SET job_id = ?, status = ?, detail = ?, updated_at = ?
         WHERE unit_id = ?`,
		nullableString(transcript.JobID),
		transcript.Status,
		nullableString(transcript.Detail),
		timestamp,
		transcript.UnitID,
	); err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	transcript.ID = existing.ID
	transcript.CreatedAt = existing.CreatedAt
	transcript.UpdatedAt = now
	return nil
}

// DeleteTranscriptByUnit removes the unit's transcription record.
func (s *Store) DeleteTranscriptByUnit(ctx context.Context, unitID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM transcripts WHERE unit_id = ?`, unitID)
	if err != nil {
		return false, fmt.Errorf("delete transcript: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// PendingTranscripts lists transcription records still awaiting completion,
// oldest first. The poller works through these.
func (s *Store) PendingTranscripts(ctx context.Context) ([]*Transcript, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+transcriptColumns+` FROM transcripts WHERE status = ? ORDER BY created_at, id`,
		TranscriptPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		transcript, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, transcript)
	}
	return transcripts, rows.Err()
}
