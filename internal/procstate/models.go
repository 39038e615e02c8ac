package procstate

import (
	"strings"
	"time"
)

// Phase represents the lifecycle of a unit's processing state.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseCheckingPlaylist Phase = "checking_playlist"
	PhaseTranscribing     Phase = "transcribing"
	PhaseIngesting        Phase = "ingesting"
	PhaseDone             Phase = "done"
	PhaseFailed           Phase = "failed"
)

// CancelledMessage is the error message recorded when processing is cancelled
// by an operator.
const CancelledMessage = "Cancelled"

var allPhases = []Phase{
	PhaseIdle,
	PhaseCheckingPlaylist,
	PhaseTranscribing,
	PhaseIngesting,
	PhaseDone,
	PhaseFailed,
}

var phaseSet = func() map[Phase]struct{} {
	set := make(map[Phase]struct{}, len(allPhases))
	for _, phase := range allPhases {
		set[phase] = struct{}{}
	}
	return set
}()

var activePhases = map[Phase]struct{}{
	PhaseCheckingPlaylist: {},
	PhaseTranscribing:     {},
	PhaseIngesting:        {},
}

// AllPhases returns the ordered list of known phases.
func AllPhases() []Phase {
	cp := make([]Phase, len(allPhases))
	copy(cp, allPhases)
	return cp
}

// ParsePhase converts a string into a known Phase.
func ParsePhase(value string) (Phase, bool) {
	normalized := Phase(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := phaseSet[normalized]
	return normalized, ok
}

// IsActivePhase reports whether a phase reflects in-flight processing.
func IsActivePhase(phase Phase) bool {
	_, ok := activePhases[phase]
	return ok
}

// State is a unit's processing state persisted in SQLite. One row exists per
// unit. VideoSourceHash "" and AttachmentVersion 0 mean the respective
// content was never observed.
type State struct {
	ID                int64
	UnitID            int64
	Phase             Phase
	VideoSourceHash   string
	AttachmentVersion int64
	PlaylistURL       string
	IngestionJobToken string
	RetryCount        int
	NextRetryAt       *time.Time
	ErrorMessage      string
	StartedAt         time.Time
	LastUpdatedAt     time.Time
}

// IsActive reports whether the state is in an in-flight phase.
func (s *State) IsActive() bool {
	return s != nil && IsActivePhase(s.Phase)
}

// IsTerminal reports whether the state finished, successfully or not.
func (s *State) IsTerminal() bool {
	return s != nil && (s.Phase == PhaseDone || s.Phase == PhaseFailed)
}

// ResetRetry clears the retry counter and any scheduled retry.
func (s *State) ResetRetry() {
	s.RetryCount = 0
	s.NextRetryAt = nil
}

// ScheduleRetry records when the next attempt becomes due.
func (s *State) ScheduleRetry(at time.Time) {
	at = at.UTC()
	s.NextRetryAt = &at
}

// ClearRetrySchedule drops a pending retry without touching the counter.
func (s *State) ClearRetrySchedule() {
	s.NextRetryAt = nil
}

// MarkFailed moves the state to the failed phase with a reason. Outstanding
// job tokens and retry schedules are cleared.
func (s *State) MarkFailed(message string) {
	s.Phase = PhaseFailed
	s.ErrorMessage = message
	s.IngestionJobToken = ""
	s.NextRetryAt = nil
}

// TranscriptStatus describes the local transcription record lifecycle.
type TranscriptStatus string

const (
	TranscriptPending   TranscriptStatus = "pending"
	TranscriptCompleted TranscriptStatus = "completed"
	TranscriptFailed    TranscriptStatus = "failed"
)

// Transcript is the local record of a unit's current transcription job. At
// most one record exists per unit; superseded jobs replace it.
type Transcript struct {
	ID        int64
	UnitID    int64
	JobID     string
	Status    TranscriptStatus
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthSummary describes aggregated state counts per key lifecycle phases.
type HealthSummary struct {
	Total  int
	Idle   int
	Active int
	Done   int
	Failed int
}

// DatabaseHealth captures diagnostic information about the state database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	TotalStates      int
	Error            string
}
