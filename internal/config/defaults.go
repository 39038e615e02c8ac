package config

const (
	defaultDataDir                  = "~/.local/share/lectern"
	defaultLogDir                   = "~/.local/share/lectern/logs"
	defaultAPIBind                  = "127.0.0.1:7512"
	defaultServiceTimeoutSeconds    = 30
	defaultLogFormat                = "auto"
	defaultLogLevel                 = "info"
	defaultMaxRetries               = 3
	defaultStuckSweepInterval       = 300
	defaultRetrySweepInterval       = 30
	defaultOrphanSweepInterval      = 3600
	defaultPollInterval             = 60
	defaultPlaylistTimeoutMinutes   = 5
	defaultTranscribeTimeoutMinutes = 120
	defaultIngestTimeoutMinutes     = 60
	defaultNotifyRequestTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		VideoProvider: VideoProvider{
			TimeoutSeconds: defaultServiceTimeoutSeconds,
		},
		Transcriber: Transcriber{
			TimeoutSeconds: defaultServiceTimeoutSeconds,
		},
		Knowledge: Knowledge{
			TimeoutSeconds: defaultServiceTimeoutSeconds,
		},
		Pipeline: Pipeline{
			MaxRetries:               defaultMaxRetries,
			StuckSweepInterval:       defaultStuckSweepInterval,
			RetrySweepInterval:       defaultRetrySweepInterval,
			OrphanSweepInterval:      defaultOrphanSweepInterval,
			PollInterval:             defaultPollInterval,
			PlaylistTimeoutMinutes:   defaultPlaylistTimeoutMinutes,
			TranscribeTimeoutMinutes: defaultTranscribeTimeoutMinutes,
			IngestTimeoutMinutes:     defaultIngestTimeoutMinutes,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completions:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
