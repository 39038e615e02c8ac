package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Unit describes a lecture unit in a transport-friendly format.
type Unit struct {
	ID                int64       `json:"id"`
	LectureID         int64       `json:"lectureId"`
	Title             string      `json:"title"`
	Tutorial          bool        `json:"tutorial"`
	VideoSource       string      `json:"videoSource,omitempty"`
	AttachmentLink    string      `json:"attachmentLink,omitempty"`
	AttachmentVersion int64       `json:"attachmentVersion,omitempty"`
	CreatedAt         string      `json:"createdAt,omitempty"`
	UpdatedAt         string      `json:"updatedAt,omitempty"`
	Processing        *Processing `json:"processing,omitempty"`
}

// Processing captures a unit's processing state for API consumers.
type Processing struct {
	Phase         string `json:"phase"`
	RetryCount    int    `json:"retryCount"`
	NextRetryAt   string `json:"nextRetryAt,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	PlaylistURL   string `json:"playlistUrl,omitempty"`
	StartedAt     string `json:"startedAt,omitempty"`
	LastUpdatedAt string `json:"lastUpdatedAt,omitempty"`
}

// Capabilities reports which external services the daemon can reach.
type Capabilities struct {
	VideoProvider bool `json:"videoProvider"`
	Transcription bool `json:"transcription"`
	Ingestion     bool `json:"ingestion"`
}

// HealthSummary mirrors per-lifecycle state counts.
type HealthSummary struct {
	Total  int `json:"total"`
	Idle   int `json:"idle"`
	Active int `json:"active"`
	Done   int `json:"done"`
	Failed int `json:"failed"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	StateDBPath  string         `json:"stateDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Capabilities Capabilities   `json:"capabilities"`
	Health       HealthSummary  `json:"health"`
	Phases       map[string]int `json:"phases"`
}

// UnitListResponse wraps a collection of units for API responses.
type UnitListResponse struct {
	Units []Unit `json:"units"`
}

// UnitResponse wraps a single unit.
type UnitResponse struct {
	Unit Unit `json:"unit"`
}

// UnitRequest is the create/update payload accepted by the daemon.
type UnitRequest struct {
	ID                int64  `json:"id,omitempty"`
	LectureID         int64  `json:"lectureId"`
	Title             string `json:"title"`
	Tutorial          bool   `json:"tutorial"`
	VideoSource       string `json:"videoSource,omitempty"`
	AttachmentLink    string `json:"attachmentLink,omitempty"`
	AttachmentVersion int64  `json:"attachmentVersion,omitempty"`
}

// IngestionCallback is the completion payload posted by the knowledge base.
type IngestionCallback struct {
	UnitID   int64  `json:"unitId"`
	JobToken string `json:"jobToken"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}
