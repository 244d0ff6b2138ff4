package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from the environment.
type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	HTTPListenAddr   string
	PublicBaseURL    string
	PublicBasePath   string
	MetricsNamespace string

	// Either DatabaseURL (Postgres) or SQLitePath must be set.
	DatabaseURL string
	SQLitePath  string

	WAHABaseURL string
	WAHAAPIKey  string
	WAHATimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	QueueConcurrency int
	JobMaxAttempts   int
	JobBackoffType   string
	JobBackoffDelay  time.Duration

	MutexLease       time.Duration
	MutexAcquireWait time.Duration

	MappingRetention time.Duration
	CleanupInterval  time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", ""),
		PublicBasePath:   getEnv("PUBLIC_BASE_PATH", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "waha_chatwoot"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		WAHABaseURL: getEnv("WAHA_BASE_URL", ""),
		WAHAAPIKey:  getEnv("WAHA_API_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		JobBackoffType: getEnv("JOB_BACKOFF_TYPE", "exponential"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RedisTLS, err = getEnvBool("REDIS_TLS", false); err != nil {
		return nil, err
	}
	if cfg.QueueConcurrency, err = getEnvInt("QUEUE_CONCURRENCY", 2); err != nil {
		return nil, err
	}
	if cfg.JobMaxAttempts, err = getEnvInt("JOB_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.JobBackoffDelay, err = getEnvDuration("JOB_BACKOFF_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MutexLease, err = getEnvDuration("MUTEX_LEASE", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MutexAcquireWait, err = getEnvDuration("MUTEX_ACQUIRE_WAIT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.MappingRetention, err = getEnvDuration("MAPPING_RETENTION", 90*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CleanupInterval, err = getEnvDuration("CLEANUP_INTERVAL", 12*time.Hour); err != nil {
		return nil, err
	}

	if cfg.WAHATimeout, err = getEnvDuration("WAHA_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.WAHABaseURL == "" {
		return nil, fmt.Errorf("WAHA_BASE_URL must be set")
	}
	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		return nil, fmt.Errorf("either DATABASE_URL or SQLITE_PATH must be set")
	}
	if cfg.JobBackoffType != "fixed" && cfg.JobBackoffType != "exponential" {
		return nil, fmt.Errorf("JOB_BACKOFF_TYPE must be 'fixed' or 'exponential', got %q", cfg.JobBackoffType)
	}
	if cfg.QueueConcurrency < 1 {
		return nil, fmt.Errorf("QUEUE_CONCURRENCY must be at least 1")
	}
	if cfg.JobMaxAttempts < 1 {
		return nil, fmt.Errorf("JOB_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}
