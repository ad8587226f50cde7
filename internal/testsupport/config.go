package testsupport

import (
	"path/filepath"
	"testing"

	"claimcheck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It uses the sqlite driver and filesystem evidence storage and applies any
// provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = base
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Oracle.URL = "http://127.0.0.1:1/generate"
	cfgVal.Oracle.Model = "test-model"
	cfgVal.Oracle.AccessKey = "test-key"
	cfgVal.Storage.Backend = config.StorageFilesystem
	cfgVal.Storage.Root = filepath.Join(base, "evidence")
	cfgVal.Storage.PublicBaseURL = "http://evidence.test"
	cfgVal.Database.Driver = config.DriverSQLite
	cfgVal.Database.Path = filepath.Join(base, "claims.db")
	cfgVal.Pipeline.Suggestions = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithOracleURL points the oracle client at a test server.
func WithOracleURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Oracle.URL = url
	}
}

// WithAPIToken sets the bearer token required by the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.Token = token
	}
}

// WithSuggestions toggles the post-commit suggestion task.
func WithSuggestions(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.Suggestions = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}
