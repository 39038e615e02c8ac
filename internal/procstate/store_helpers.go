package procstate

import (
	"database/sql"
	"errors"
	"time"

	"lectern/internal/lecture"
)

const stateColumns = "id, unit_id, phase, video_source_hash, attachment_version, playlist_url, ingestion_job_token, retry_count, next_retry_at, error_message, started_at, last_updated_at"

const unitColumns = "id, lecture_id, title, tutorial, video_source, attachment_link, attachment_version, created_at, updated_at"

const transcriptColumns = "id, unit_id, job_id, status, detail, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanState(scanner rowScanner) (*State, error) {
	var (
		id           int64
		unitID       int64
		phaseStr     string
		videoHash    sql.NullString
		attVersion   sql.NullInt64
		playlistURL  sql.NullString
		jobToken     sql.NullString
		retryCount   int
		nextRetryRaw sql.NullString
		errorMessage sql.NullString
		startedRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&unitID,
		&phaseStr,
		&videoHash,
		&attVersion,
		&playlistURL,
		&jobToken,
		&retryCount,
		&nextRetryRaw,
		&errorMessage,
		&startedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	state := &State{
		ID:                id,
		UnitID:            unitID,
		Phase:             Phase(phaseStr),
		VideoSourceHash:   videoHash.String,
		AttachmentVersion: attVersion.Int64,
		PlaylistURL:       playlistURL.String,
		IngestionJobToken: jobToken.String,
		RetryCount:        retryCount,
		ErrorMessage:      errorMessage.String,
	}
	if nextRetryRaw.Valid {
		if due, err := parseTimeString(nextRetryRaw.String); err == nil {
			state.NextRetryAt = &due
		}
	}
	if started, err := parseTimeString(startedRaw.String); err == nil {
		state.StartedAt = started
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		state.LastUpdatedAt = updated
	}
	return state, nil
}

func scanUnit(scanner rowScanner) (*lecture.Unit, error) {
	var (
		id         int64
		lectureID  int64
		title      sql.NullString
		tutorial   sql.NullInt64
		video      sql.NullString
		attachment sql.NullString
		attVersion sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&lectureID,
		&title,
		&tutorial,
		&video,
		&attachment,
		&attVersion,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	unit := &lecture.Unit{
		ID:                id,
		LectureID:         lectureID,
		Title:             title.String,
		Tutorial:          tutorial.Int64 != 0,
		VideoSource:       video.String,
		AttachmentLink:    attachment.String,
		AttachmentVersion: attVersion.Int64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		unit.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		unit.UpdatedAt = updated
	}
	return unit, nil
}

func scanTranscript(scanner rowScanner) (*Transcript, error) {
	var (
		id         int64
		unitID     int64
		jobID      sql.NullString
		status     string
		detail     sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&unitID,
		&jobID,
		&status,
		&detail,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	transcript := &Transcript{
		ID:     id,
		UnitID: unitID,
		JobID:  jobID.String,
		Status: TranscriptStatus(status),
		Detail: detail.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		transcript.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		transcript.UpdatedAt = updated
	}
	return transcript, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
