package procstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lectern/internal/lecture"
)

// CreateUnit inserts a new lecture unit and assigns its identifier.
func (s *Store) CreateUnit(ctx context.Context, unit *lecture.Unit) error {
	if unit == nil {
		return errors.New("unit is nil")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO lecture_units (
            lecture_id, title, tutorial, video_source, attachment_link,
            attachment_version, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.LectureID,
		nullableString(unit.Title),
		boolToInt(unit.Tutorial),
		nullableString(unit.VideoSource),
		nullableString(unit.AttachmentLink),
		unit.AttachmentVersion,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	unit.ID = id
	unit.CreatedAt = now
	unit.UpdatedAt = now
	return nil
}

// UpdateUnit persists changes to an existing lecture unit.
func (s *Store) UpdateUnit(ctx context.Context, unit *lecture.Unit) error {
	if unit == nil {
		return errors.New("unit is nil")
	}
	unit.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE lecture_units
         SET lecture_id = ?, title = ?, tutorial = ?, video_source = ?,
             attachment_link = ?, attachment_version = ?, updated_at = ?
         WHERE id = ?`,
		unit.LectureID,
		nullableString(unit.Title),
		boolToInt(unit.Tutorial),
		nullableString(unit.VideoSource),
		nullableString(unit.AttachmentLink),
		unit.AttachmentVersion,
		unit.UpdatedAt.Format(time.RFC3339Nano),
		unit.ID,
	); err != nil {
		return fmt.Errorf("update unit: %w", err)
	}
	return nil
}

// UpsertUnit creates the unit when it has no identifier and updates it
// otherwise.
func (s *Store) UpsertUnit(ctx context.Context, unit *lecture.Unit) error {
	if unit == nil {
		return errors.New("unit is nil")
	}
	if unit.ID == 0 {
		return s.CreateUnit(ctx, unit)
	}
	existing, err := s.GetUnit(ctx, unit.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		now := time.Now().UTC()
		timestamp := now.Format(time.RFC3339Nano)
		if err := s.execWithoutResultRetry(
			ctx,
			`INSERT INTO lecture_units (
                id, lecture_id, title, tutorial, video_source, attachment_link,
                attachment_version, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			unit.ID,
			unit.LectureID,
			nullableString(unit.Title),
			boolToInt(unit.Tutorial),
			nullableString(unit.VideoSource),
			nullableString(unit.AttachmentLink),
			unit.AttachmentVersion,
			timestamp,
			timestamp,
		); err != nil {
			return fmt.Errorf("insert unit with id: %w", err)
		}
		unit.CreatedAt = now
		unit.UpdatedAt = now
		return nil
	}
	return s.UpdateUnit(ctx, unit)
}

// GetUnit fetches a lecture unit by identifier.
func (s *Store) GetUnit(ctx context.Context, id int64) (*lecture.Unit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM lecture_units WHERE id = ?`, id)
	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return unit, nil
}

// ListUnits returns all lecture units ordered by creation time.
func (s *Store) ListUnits(ctx context.Context) ([]*lecture.Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+unitColumns+` FROM lecture_units ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []*lecture.Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// DeleteUnit removes a lecture unit by identifier.
func (s *Store) DeleteUnit(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM lecture_units WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete unit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
