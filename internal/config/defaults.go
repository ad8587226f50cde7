package config

const (
	defaultConfigPath            = "~/.config/claimcheck/config.toml"
	defaultDataDir               = "~/.local/share/claimcheck"
	defaultLogDir                = "~/.local/share/claimcheck/logs"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultMaxUploadMB           = 64
	defaultMaxImages             = 10
	defaultOracleTimeoutSeconds  = 120
	defaultOracleRetryAttempts   = 1
	defaultDatabaseFile          = "claims.db"
	defaultEvidenceDir           = "evidence"
	defaultPostgresPort          = 5432
	defaultPostgresSSLMode       = "require"
	defaultMatchThreshold        = 80
	defaultRecencyWindowDays     = 30
	defaultPhotoConcurrency      = 4
	defaultUploadConcurrency     = 4
	defaultShutdownGraceSeconds  = 60
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultS3Region              = "us-east-1"
	defaultKafkaTopic            = "claimcheck.runs"
	defaultFilesystemURLBasePath = "/evidence"
)

// Backend and driver names accepted by the storage and database sections.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
	DriverSQLite      = "sqlite"
	DriverPostgres    = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		API: API{
			MaxUploadMB: defaultMaxUploadMB,
			MaxImages:   defaultMaxImages,
		},
		Oracle: Oracle{
			TimeoutSeconds:   defaultOracleTimeoutSeconds,
			RetryMaxAttempts: defaultOracleRetryAttempts,
		},
		Database: Database{
			Port:    defaultPostgresPort,
			SSLMode: defaultPostgresSSLMode,
		},
		Adjudication: Adjudication{
			MatchThreshold:    defaultMatchThreshold,
			RecencyWindowDays: defaultRecencyWindowDays,
		},
		Pipeline: Pipeline{
			PhotoConcurrency:     defaultPhotoConcurrency,
			UploadConcurrency:    defaultUploadConcurrency,
			Suggestions:          true,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
