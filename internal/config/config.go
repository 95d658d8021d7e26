package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tracehub/internal/health"
)

// Config holds configuration for the tracehub service.
type Config struct {
	HTTPPort   string
	Database   DatabaseConfig
	Redis      RedisConfig
	Worker     WorkerConfig
	Capture    CaptureConfig
	Rate       RateConfig
	Cost       CostConfig
	Queue      QueueConfig
	Retention  RetentionConfig
	Export     ExportConfig
	Thresholds health.Thresholds
}

// DatabaseConfig holds Postgres connection settings for the event store.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkerConfig holds settings for the external log worker the health
// aggregator and recent-trace listing consult. An empty URL is a valid
// state: the service reports it as a configuration error, not a crash.
type WorkerConfig struct {
	URL     string
	Timeout time.Duration
}

// CaptureConfig holds settings for the capture shim.
type CaptureConfig struct {
	IngestURL string
	Enabled   bool
	System    string
	Timeout   time.Duration
}

// RateConfig holds the sliding-window parameters.
type RateConfig struct {
	Window      time.Duration
	GlobalLimit int64
}

// CostConfig holds the cost-meter constants. Both are externally supplied;
// the per-write cost mirrors the ingestion store's billing rate.
type CostConfig struct {
	PerWriteUSD      float64
	BudgetCeilingUSD float64
}

// QueueConfig holds ingest queue settings.
type QueueConfig struct {
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// RetentionConfig holds the event retention policy.
type RetentionConfig struct {
	MaxAge   time.Duration
	Schedule string // 5-field cron expression
}

// ExportConfig holds optional S3 archival settings for session exports.
type ExportConfig struct {
	S3Bucket string
	S3Region string
	S3Prefix string
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvFloat(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}
	return duration
}

// Load reads configuration from environment variables, with health
// thresholds optionally overridden by a YAML policy file.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort: getEnvString("HTTP_PORT", "8080"),
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Worker: WorkerConfig{
			URL:     getEnvString("WORKER_URL", ""),
			Timeout: getEnvDuration("WORKER_TIMEOUT", 8*time.Second),
		},
		Capture: CaptureConfig{
			IngestURL: getEnvString("INGEST_URL", ""),
			Enabled:   getEnvString("CAPTURE_ENABLED", "true") == "true",
			System:    getEnvString("CAPTURE_SYSTEM", "manual"),
			Timeout:   getEnvDuration("CAPTURE_TIMEOUT", 5*time.Second),
		},
		Rate: RateConfig{
			Window:      getEnvDuration("RATE_WINDOW", time.Hour),
			GlobalLimit: getEnvInt64("RATE_GLOBAL_LIMIT", 1000),
		},
		Cost: CostConfig{
			PerWriteUSD:      getEnvFloat("COST_PER_WRITE_USD", 0.00000125),
			BudgetCeilingUSD: getEnvFloat("BUDGET_CEILING_USD", 10),
		},
		Queue: QueueConfig{
			BatchSize:    getEnvInt("INGEST_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("INGEST_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("INGEST_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("INGEST_RETRY_BACKOFF", 1*time.Second),
		},
		Retention: RetentionConfig{
			MaxAge:   getEnvDuration("RETENTION_MAX_AGE", 7*24*time.Hour),
			Schedule: getEnvString("RETENTION_SCHEDULE", "0 3 * * *"),
		},
		Export: ExportConfig{
			S3Bucket: getEnvString("EXPORT_S3_BUCKET", ""),
			S3Region: getEnvString("EXPORT_S3_REGION", "us-east-1"),
			S3Prefix: getEnvString("EXPORT_S3_PREFIX", "debug-sessions/"),
		},
		Thresholds: health.DefaultThresholds(),
	}

	if err := loadThresholds(&cfg.Thresholds); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadThresholds applies the YAML policy file (if any), then individual env
// overrides on top of it.
func loadThresholds(th *health.Thresholds) error {
	if path := os.Getenv("THRESHOLDS_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read thresholds file: %w", err)
		}
		if err := yaml.Unmarshal(data, th); err != nil {
			return fmt.Errorf("failed to parse thresholds file: %w", err)
		}
	}

	th.RateCriticalPct = getEnvFloat("HEALTH_RATE_CRITICAL_PCT", th.RateCriticalPct)
	th.RateWarningPct = getEnvFloat("HEALTH_RATE_WARNING_PCT", th.RateWarningPct)
	th.BudgetCriticalPct = getEnvFloat("HEALTH_BUDGET_CRITICAL_PCT", th.BudgetCriticalPct)
	th.BudgetWarningPct = getEnvFloat("HEALTH_BUDGET_WARNING_PCT", th.BudgetWarningPct)
	th.StorageCriticalMB = getEnvFloat("HEALTH_STORAGE_CRITICAL_MB", th.StorageCriticalMB)
	th.StorageWarningMB = getEnvFloat("HEALTH_STORAGE_WARNING_MB", th.StorageWarningMB)
	th.QueueWarningDepth = getEnvInt64("HEALTH_QUEUE_WARNING_DEPTH", th.QueueWarningDepth)
	return nil
}
