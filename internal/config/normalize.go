package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVideoProvider()
	c.normalizeTranscriber()
	c.normalizeKnowledge()
	c.normalizePipeline()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("LECTERN_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeVideoProvider() {
	c.VideoProvider.BaseURL = strings.TrimRight(strings.TrimSpace(c.VideoProvider.BaseURL), "/")
	c.VideoProvider.APIKey = strings.TrimSpace(c.VideoProvider.APIKey)
	if c.VideoProvider.APIKey == "" {
		if value, ok := os.LookupEnv("VIDEO_PROVIDER_API_KEY"); ok {
			c.VideoProvider.APIKey = strings.TrimSpace(value)
		}
	}
	if c.VideoProvider.TimeoutSeconds <= 0 {
		c.VideoProvider.TimeoutSeconds = defaultServiceTimeoutSeconds
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcriber.BaseURL), "/")
	c.Transcriber.APIKey = strings.TrimSpace(c.Transcriber.APIKey)
	if c.Transcriber.APIKey == "" {
		if value, ok := os.LookupEnv("TRANSCRIBER_API_KEY"); ok {
			c.Transcriber.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Transcriber.TimeoutSeconds <= 0 {
		c.Transcriber.TimeoutSeconds = defaultServiceTimeoutSeconds
	}
}

func (c *Config) normalizeKnowledge() {
	c.Knowledge.BaseURL = strings.TrimRight(strings.TrimSpace(c.Knowledge.BaseURL), "/")
	c.Knowledge.APIKey = strings.TrimSpace(c.Knowledge.APIKey)
	if c.Knowledge.APIKey == "" {
		if value, ok := os.LookupEnv("KNOWLEDGE_API_KEY"); ok {
			c.Knowledge.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Knowledge.TimeoutSeconds <= 0 {
		c.Knowledge.TimeoutSeconds = defaultServiceTimeoutSeconds
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MaxRetries <= 0 {
		c.Pipeline.MaxRetries = defaultMaxRetries
	}
	if c.Pipeline.StuckSweepInterval <= 0 {
		c.Pipeline.StuckSweepInterval = defaultStuckSweepInterval
	}
	if c.Pipeline.RetrySweepInterval <= 0 {
		c.Pipeline.RetrySweepInterval = defaultRetrySweepInterval
	}
	if c.Pipeline.OrphanSweepInterval <= 0 {
		c.Pipeline.OrphanSweepInterval = defaultOrphanSweepInterval
	}
	if c.Pipeline.PollInterval <= 0 {
		c.Pipeline.PollInterval = defaultPollInterval
	}
	if c.Pipeline.PlaylistTimeoutMinutes <= 0 {
		c.Pipeline.PlaylistTimeoutMinutes = defaultPlaylistTimeoutMinutes
	}
	if c.Pipeline.TranscribeTimeoutMinutes <= 0 {
		c.Pipeline.TranscribeTimeoutMinutes = defaultTranscribeTimeoutMinutes
	}
	if c.Pipeline.IngestTimeoutMinutes <= 0 {
		c.Pipeline.IngestTimeoutMinutes = defaultIngestTimeoutMinutes
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
