package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscriber(); err != nil {
		return err
	}
	if err := c.validateKnowledge(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscriber() error {
	if !c.Transcriber.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Transcriber.BaseURL) == "" {
		return errors.New("transcriber.base_url must be set when transcriber.enabled is true")
	}
	if !c.VideoProviderAvailable() {
		return errors.New("video_provider.base_url must be set when transcriber.enabled is true")
	}
	return nil
}

func (c *Config) validateKnowledge() error {
	if !c.Knowledge.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Knowledge.BaseURL) == "" {
		return errors.New("knowledge.base_url must be set when knowledge.enabled is true")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	return ensurePositiveMap(map[string]int{
		"pipeline.max_retries":                c.Pipeline.MaxRetries,
		"pipeline.stuck_sweep_interval":       c.Pipeline.StuckSweepInterval,
		"pipeline.retry_sweep_interval":       c.Pipeline.RetrySweepInterval,
		"pipeline.orphan_sweep_interval":      c.Pipeline.OrphanSweepInterval,
		"pipeline.poll_interval":              c.Pipeline.PollInterval,
		"pipeline.playlist_timeout_minutes":   c.Pipeline.PlaylistTimeoutMinutes,
		"pipeline.transcribe_timeout_minutes": c.Pipeline.TranscribeTimeoutMinutes,
		"pipeline.ingest_timeout_minutes":     c.Pipeline.IngestTimeoutMinutes,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
