package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// API contains HTTP daemon settings.
type API struct {
	Bind        string `toml:"bind"`
	Token       string `toml:"token"`
	MaxUploadMB int    `toml:"max_upload_mb"`
	MaxImages   int    `toml:"max_images"`
}

// Oracle contains connection settings for the AI content-analysis service.
type Oracle struct {
	URL              string `toml:"url"`
	Model            string `toml:"model"`
	AccessKey        string `toml:"access_key"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	RetryMaxAttempts int    `toml:"retry_max_attempts"`
}

// Storage selects and configures the evidence object store.
type Storage struct {
	Backend       string `toml:"backend"`
	Root          string `toml:"root"`
	Bucket        string `toml:"bucket"`
	Region        string `toml:"region"`
	Endpoint      string `toml:"endpoint"`
	UsePathStyle  bool   `toml:"use_path_style"`
	PublicBaseURL string `toml:"public_base_url"`
}

// Database selects and configures the claim persistence backend.
type Database struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Name     string `toml:"name"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	SSLMode  string `toml:"sslmode"`
}

// Adjudication holds the business constants applied to photo evidence.
type Adjudication struct {
	MatchThreshold    int `toml:"match_threshold"`
	RecencyWindowDays int `toml:"recency_window_days"`
}

// Pipeline contains run execution settings.
type Pipeline struct {
	PhotoConcurrency     int  `toml:"photo_concurrency"`
	UploadConcurrency    int  `toml:"upload_concurrency"`
	Suggestions          bool `toml:"suggestions"`
	ShutdownGraceSeconds int  `toml:"shutdown_grace_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Events configures run event publishing to Kafka and SQS.
type Events struct {
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
	SQSQueueURL  string   `toml:"sqs_queue_url"`
	SQSRegion    string   `toml:"sqs_region"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for claimcheck.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - API: daemon bind address, bearer token, upload limits
//   - Oracle: AI oracle endpoint, model, and access key
//   - Storage: evidence object store (filesystem or s3)
//   - Database: claim persistence backend (sqlite or postgres)
//   - Adjudication: match threshold and recency window
//   - Pipeline: run concurrency, suggestions, shutdown grace
//   - Notifications: ntfy push notifications
//   - Events: Kafka and SQS run events
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Oracle        Oracle        `toml:"oracle"`
	Storage       Storage       `toml:"storage"`
	Database      Database      `toml:"database"`
	Adjudication  Adjudication  `toml:"adjudication"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Notifications Notifications `toml:"notifications"`
	Events        Events        `toml:"events"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("claimcheck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageFilesystem {
		dirs = append(dirs, c.Storage.Root)
	}
	if c.Database.Driver == DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequireOracle reports whether the oracle connection settings are complete.
// Commands that only read persisted claims skip this check.
func (c *Config) RequireOracle() error {
	if strings.TrimSpace(c.Oracle.URL) == "" {
		return errors.New("oracle.url is required. Set MIRA_AI_URL or edit the config file (create with 'claimcheck config init')")
	}
	if strings.TrimSpace(c.Oracle.Model) == "" {
		return errors.New("oracle.model is required. Set MIRA_AI_MODEL or edit the config file")
	}
	if strings.TrimSpace(c.Oracle.AccessKey) == "" {
		return errors.New("oracle.access_key is required. Set MIRA_AI_ACCESS_KEY or edit the config file")
	}
	return nil
}

// OracleTimeout returns the HTTP timeout applied to oracle requests.
func (c *Config) OracleTimeout() time.Duration {
	if c.Oracle.TimeoutSeconds <= 0 {
		return time.Duration(defaultOracleTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// ShutdownGrace returns how long shutdown waits for in-flight runs.
func (c *Config) ShutdownGrace() time.Duration {
	if c.Pipeline.ShutdownGraceSeconds <= 0 {
		return time.Duration(defaultShutdownGraceSeconds) * time.Second
	}
	return time.Duration(c.Pipeline.ShutdownGraceSeconds) * time.Second
}

// MaxUploadBytes returns the multipart body limit for intake requests.
func (c *Config) MaxUploadBytes() int64 {
	mb := c.API.MaxUploadMB
	if mb <= 0 {
		mb = defaultMaxUploadMB
	}
	return int64(mb) << 20
}

// PostgresDSN returns the connection string for the postgres driver.
func (c *Config) PostgresDSN() string {
	if dsn := strings.TrimSpace(c.Database.DSN); dsn != "" {
		return dsn
	}
	parts := []string{
		"host=" + c.Database.Host,
		"port=" + strconv.Itoa(c.Database.Port),
		"dbname=" + c.Database.Name,
	}
	if c.Database.User != "" {
		parts = append(parts, "user="+c.Database.User)
	}
	if c.Database.Password != "" {
		parts = append(parts, "password="+c.Database.Password)
	}
	if c.Database.SSLMode != "" {
		parts = append(parts, "sslmode="+c.Database.SSLMode)
	}
	return strings.Join(parts, " ")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func validURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
