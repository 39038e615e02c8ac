package pipeline

import (
	"log/slog"

	"lectern/internal/config"
	"lectern/internal/lecture"
	"lectern/internal/logging"
	"lectern/internal/notifications"
	"lectern/internal/procstate"
	"lectern/internal/services/knowledge"
	"lectern/internal/services/transcriber"
	"lectern/internal/services/videostream"
)

// Orchestrator drives lecture units through the processing phases. All state
// mutations happen under the store's per-unit lock, so triggers, callbacks,
// and sweeps never interleave on one unit.
type Orchestrator struct {
	cfg         *config.Config
	store       *procstate.Store
	logger      *slog.Logger
	notifier    notifications.Service
	video       videostream.Service
	transcriber transcriber.Service
	knowledge   knowledge.Service
}

// New constructs an orchestrator with service clients built from the config.
func New(cfg *config.Config, store *procstate.Store, logger *slog.Logger) *Orchestrator {
	return NewWithServices(
		cfg,
		store,
		logger,
		notifications.NewService(cfg),
		videostream.NewConfiguredService(cfg),
		transcriber.NewConfiguredService(cfg),
		knowledge.NewConfiguredService(cfg),
	)
}

// NewWithServices constructs an orchestrator with explicit service clients.
// Used in tests to inject fakes.
func NewWithServices(
	cfg *config.Config,
	store *procstate.Store,
	logger *slog.Logger,
	notifier notifications.Service,
	video videostream.Service,
	transcriberSvc transcriber.Service,
	knowledgeSvc knowledge.Service,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		notifier:    notifier,
		video:       video,
		transcriber: transcriberSvc,
		knowledge:   knowledgeSvc,
	}
}

// ServiceAvailability reports which external services are currently
// configured and reachable. The status API exposes this.
func (o *Orchestrator) ServiceAvailability() (video, transcription, ingestion bool) {
	return o.video.Available(), o.transcriber.Available(), o.knowledge.Available()
}

// capabilities captures what processing applies to a unit given its content
// and the configured services.
type capabilities struct {
	hasVideo      bool
	hasPDF        bool
	canTranscribe bool
	canIngest     bool
}

func (c capabilities) any() bool {
	return c.canTranscribe || c.canIngest
}

func (o *Orchestrator) capabilitiesFor(unit *lecture.Unit) capabilities {
	caps := capabilities{
		hasVideo: unit.HasVideo(),
		hasPDF:   unit.HasPDF(),
	}
	caps.canTranscribe = caps.hasVideo && o.transcriber.Available() && o.video.Available()
	caps.canIngest = o.knowledge.Available() && (caps.hasPDF || caps.canTranscribe)
	return caps
}

func (o *Orchestrator) maxRetries() int {
	if o.cfg == nil || o.cfg.Pipeline.MaxRetries <= 0 {
		return 3
	}
	return o.cfg.Pipeline.MaxRetries
}

func (o *Orchestrator) unitLogger(unit *lecture.Unit) *slog.Logger {
	return o.logger.With(
		logging.Int64(logging.FieldUnitID, unit.ID),
		logging.Int64(logging.FieldLectureID, unit.LectureID),
	)
}
