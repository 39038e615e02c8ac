package testsupport

import (
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t   testing.TB
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{t: t, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTranscriber enables the transcription service against the given base URL.
func WithTranscriber(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcriber.Enabled = true
		b.cfg.Transcriber.BaseURL = baseURL
		b.cfg.Transcriber.APIKey = "test"
		b.cfg.VideoProvider.BaseURL = baseURL
		b.cfg.VideoProvider.APIKey = "test"
	}
}

// WithKnowledge enables the knowledge ingestion service against the given
// base URL.
func WithKnowledge(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Knowledge.Enabled = true
		b.cfg.Knowledge.BaseURL = baseURL
		b.cfg.Knowledge.APIKey = "test"
	}
}

// WithMaxRetries overrides the retry budget on the test config.
func WithMaxRetries(max int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.MaxRetries = max
	}
}
