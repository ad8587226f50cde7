package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOracle(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAdjudication(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOracle() error {
	if c.Oracle.URL != "" && !validURL(c.Oracle.URL) {
		return fmt.Errorf("oracle.url must be an http(s) URL, got %q", c.Oracle.URL)
	}
	if c.Oracle.RetryMaxAttempts > 10 {
		return errors.New("oracle.retry_max_attempts must be between 1 and 10")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageFilesystem:
		if strings.TrimSpace(c.Storage.Root) == "" {
			return errors.New("storage.root must be set for the filesystem backend")
		}
	case StorageS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 backend. Set BUCKET_NAME or edit the config file")
		}
		if c.Storage.Endpoint != "" && !validURL(c.Storage.Endpoint) {
			return fmt.Errorf("storage.endpoint must be an http(s) URL, got %q", c.Storage.Endpoint)
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (use %q or %q)", c.Storage.Backend, StorageFilesystem, StorageS3)
	}
	if c.Storage.PublicBaseURL != "" && !validURL(c.Storage.PublicBaseURL) {
		return fmt.Errorf("storage.public_base_url must be an http(s) URL, got %q", c.Storage.PublicBaseURL)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.DSN) == "" && (c.Database.Host == "" || strings.TrimSpace(c.Database.Name) == "") {
			return errors.New("database.dsn or database.host and database.name are required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver: unsupported value %q (use %q or %q)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}
	return nil
}

func (c *Config) validateAdjudication() error {
	if c.Adjudication.MatchThreshold < 0 || c.Adjudication.MatchThreshold > 100 {
		return errors.New("adjudication.match_threshold must be between 0 and 100")
	}
	if c.Adjudication.RecencyWindowDays <= 0 {
		return errors.New("adjudication.recency_window_days must be positive")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.PhotoConcurrency <= 0 {
		return errors.New("pipeline.photo_concurrency must be positive")
	}
	if c.Pipeline.UploadConcurrency <= 0 {
		return errors.New("pipeline.upload_concurrency must be positive")
	}
	if c.Pipeline.ShutdownGraceSeconds < 0 {
		return errors.New("pipeline.shutdown_grace_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic != "" && !validURL(c.Notifications.NtfyTopic) {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", c.Notifications.NtfyTopic)
	}
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	if c.Events.SQSQueueURL != "" && !validURL(c.Events.SQSQueueURL) {
		return fmt.Errorf("events.sqs_queue_url must be an http(s) URL, got %q", c.Events.SQSQueueURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
