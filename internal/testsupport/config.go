package testsupport

import (
	"path/filepath"
	"testing"

	"lotsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Outbound services point nowhere until an option wires them to a test server.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = "test"
	cfgVal.LLM.BaseURL = "http://127.0.0.1:1/v1/chat/completions"
	cfgVal.Notifications.WebhookURL = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLLMEndpoint points the chat completion client at url.
func WithLLMEndpoint(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithWebhook enables the confirmation webhook at url.
func WithWebhook(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.WebhookURL = url
	}
}

// WithAPIToken requires bearer auth on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithPartialResults toggles the partial-results enrichment policy.
func WithPartialResults(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.PartialResults = enabled
	}
}

// WithGapMS overrides the clustering gap threshold in milliseconds.
func WithGapMS(ms int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Clustering.GapThresholdMS = ms
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
