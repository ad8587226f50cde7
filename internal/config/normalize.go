package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeOracle()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	if err := c.normalizeDatabase(); err != nil {
		return err
	}
	c.normalizeEvents()
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
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		if port, ok := lookupEnv("PORT"); ok {
			c.API.Bind = "0.0.0.0:" + port
		} else {
			c.API.Bind = defaultAPIBind
		}
	}
	if c.API.Token == "" {
		if value, ok := lookupEnv("CLAIMCHECK_API_TOKEN"); ok {
			c.API.Token = value
		}
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.MaxUploadMB <= 0 {
		c.API.MaxUploadMB = defaultMaxUploadMB
	}
	if c.API.MaxImages <= 0 {
		c.API.MaxImages = defaultMaxImages
	}
}

func (c *Config) normalizeOracle() {
	if c.Oracle.URL == "" {
		if value, ok := lookupEnv("MIRA_AI_URL"); ok {
			c.Oracle.URL = value
		}
	}
	if c.Oracle.Model == "" {
		if value, ok := lookupEnv("MIRA_AI_MODEL"); ok {
			c.Oracle.Model = value
		}
	}
	if c.Oracle.AccessKey == "" {
		if value, ok := lookupEnv("MIRA_AI_ACCESS_KEY"); ok {
			c.Oracle.AccessKey = value
		}
	}
	c.Oracle.URL = strings.TrimSpace(c.Oracle.URL)
	c.Oracle.Model = strings.TrimSpace(c.Oracle.Model)
	c.Oracle.AccessKey = strings.TrimSpace(c.Oracle.AccessKey)
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = defaultOracleTimeoutSeconds
	}
	if c.Oracle.RetryMaxAttempts <= 0 {
		c.Oracle.RetryMaxAttempts = defaultOracleRetryAttempts
	}
}

func (c *Config) normalizeStorage() error {
	if c.Storage.Bucket == "" {
		if value, ok := lookupEnv("BUCKET_NAME"); ok {
			c.Storage.Bucket = value
		}
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		if c.Storage.Bucket != "" {
			c.Storage.Backend = StorageS3
		} else {
			c.Storage.Backend = StorageFilesystem
		}
	}
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		if value, ok := lookupEnv("AWS_REGION"); ok {
			c.Storage.Region = value
		} else {
			c.Storage.Region = defaultS3Region
		}
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	if c.Storage.Backend == StorageFilesystem {
		if strings.TrimSpace(c.Storage.Root) == "" {
			c.Storage.Root = filepath.Join(c.Paths.DataDir, defaultEvidenceDir)
		}
		var err error
		if c.Storage.Root, err = expandPath(c.Storage.Root); err != nil {
			return fmt.Errorf("storage.root: %w", err)
		}
		if c.Storage.PublicBaseURL == "" {
			c.Storage.PublicBaseURL = "http://" + c.API.Bind + defaultFilesystemURLBasePath
		}
	}
	return nil
}

func (c *Config) normalizeDatabase() error {
	if c.Database.Host == "" {
		if value, ok := lookupEnv("DB_HOST"); ok {
			c.Database.Host = value
		}
	}
	if c.Database.Name == "" {
		if value, ok := lookupEnv("DB_NAME"); ok {
			c.Database.Name = value
		}
	}
	if c.Database.User == "" {
		if value, ok := lookupEnv("DB_USER"); ok {
			c.Database.User = value
		}
	}
	if c.Database.Password == "" {
		if value, ok := lookupEnv("DB_PASSWORD"); ok {
			c.Database.Password = value
		}
	}
	if value, ok := lookupEnv("DB_PORT"); ok {
		if port, err := strconv.Atoi(value); err == nil && port > 0 {
			c.Database.Port = port
		}
	}
	c.Database.Host = strings.TrimSpace(c.Database.Host)
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		if c.Database.Host != "" || strings.TrimSpace(c.Database.DSN) != "" {
			c.Database.Driver = DriverPostgres
		} else {
			c.Database.Driver = DriverSQLite
		}
	}
	if c.Database.Port <= 0 {
		c.Database.Port = defaultPostgresPort
	}
	if c.Database.Driver == DriverSQLite {
		if strings.TrimSpace(c.Database.Path) == "" {
			c.Database.Path = filepath.Join(c.Paths.DataDir, defaultDatabaseFile)
		}
		var err error
		if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
			return fmt.Errorf("database.path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeEvents() {
	brokers := make([]string, 0, len(c.Events.KafkaBrokers))
	for _, broker := range c.Events.KafkaBrokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	c.Events.KafkaBrokers = brokers
	c.Events.KafkaTopic = strings.TrimSpace(c.Events.KafkaTopic)
	if len(brokers) > 0 && c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = defaultKafkaTopic
	}
	c.Events.SQSQueueURL = strings.TrimSpace(c.Events.SQSQueueURL)
	c.Events.SQSRegion = strings.TrimSpace(c.Events.SQSRegion)
	if c.Events.SQSRegion == "" {
		c.Events.SQSRegion = c.Storage.Region
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
