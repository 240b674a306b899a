package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ankurclub/clever-video-summarizer/internal/ratewindow"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string
	BaseURL  string

	// Optional. Without it usage counters and artifacts are kept in memory
	// and lost on restart.
	DatabaseUrl string

	// Calendar used for the monthly and daily usage periods
	QuotaTimezone *time.Location

	// Rate window
	RateStore         string // "memory" or "redis"
	RedisURL          string
	RateKeyPrefix     string
	Rate              ratewindow.Config
	RateBlockUnusual  bool
	RateSweepSchedule string

	// Processing engine
	EngineProvider          string // "remote" or "mock"
	EngineBaseURL           string
	EngineTranscribeTimeout time.Duration
	EngineTranslateTimeout  time.Duration
	EngineSummaryTimeout    time.Duration
	EngineCapacityTimeout   time.Duration
	CapacityCheckEnabled    bool

	// Export storage
	StorageProvider   string // "local" or "r2"
	LocalStoragePath  string
	LocalStorageURL   string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Identity
	GatewaySecret string
	AnonymousSalt string

	// Per-IP HTTP throttle
	APIRateLimit          int
	APIRateWindow         time.Duration
	ThrottleSweepSchedule string

	MaxUploadBytes int64

	// Metrics endpoint authentication. Also guards administrative routes.
	// If both are empty, the endpoints are unprotected.
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	rate := ratewindow.DefaultConfig()
	rate.CooldownDuration = getEnvDuration("RATE_COOLDOWN", rate.CooldownDuration)
	rate.PatternWindow = getEnvDuration("RATE_WINDOW", rate.PatternWindow)
	rate.MaxRequestsPerWindow = getEnvInt("RATE_MAX_PER_WINDOW", rate.MaxRequestsPerWindow)
	rate.BurstWindow = getEnvDuration("RATE_BURST_WINDOW", rate.BurstWindow)
	rate.BurstThreshold = getEnvInt("RATE_BURST_THRESHOLD", rate.BurstThreshold)
	rate.AlternationThreshold = getEnvInt("RATE_ALTERNATION_THRESHOLD", rate.AlternationThreshold)
	rate.AlternationMinRequests = getEnvInt("RATE_ALTERNATION_MIN_REQUESTS", rate.AlternationMinRequests)

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseUrl: os.Getenv("DATABASE_URL"),

		RateStore:         getEnv("RATE_STORE", "memory"),
		RedisURL:          getEnv("REDIS_URL", ""),
		RateKeyPrefix:     getEnv("RATE_KEY_PREFIX", "summarizer:rate:"),
		Rate:              rate,
		RateBlockUnusual:  getEnvBool("RATE_BLOCK_UNUSUAL", false),
		RateSweepSchedule: getEnv("RATE_SWEEP_SCHEDULE", "@every 5m"),

		EngineProvider:          getEnv("ENGINE_PROVIDER", "remote"),
		EngineBaseURL:           getEnv("ENGINE_BASE_URL", "http://localhost:5000"),
		EngineTranscribeTimeout: getEnvDuration("ENGINE_TRANSCRIBE_TIMEOUT", 10*time.Minute),
		EngineTranslateTimeout:  getEnvDuration("ENGINE_TRANSLATE_TIMEOUT", 3*time.Minute),
		EngineSummaryTimeout:    getEnvDuration("ENGINE_SUMMARY_TIMEOUT", 5*time.Minute),
		EngineCapacityTimeout:   getEnvDuration("ENGINE_CAPACITY_TIMEOUT", 10*time.Second),
		CapacityCheckEnabled:    getEnvBool("CAPACITY_CHECK_ENABLED", true),

		// Storage defaults to local filesystem for development
		StorageProvider:   getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath:  getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:   getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		GatewaySecret: getEnv("GATEWAY_SECRET", ""),
		AnonymousSalt: getEnv("ANONYMOUS_SALT", ""),

		APIRateLimit:          getEnvInt("API_RATE_LIMIT", 60),
		APIRateWindow:         getEnvDuration("API_RATE_WINDOW", time.Minute),
		ThrottleSweepSchedule: getEnv("THROTTLE_SWEEP_SCHEDULE", "@every 1m"),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 500*1024*1024),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	tz := getEnv("QUOTA_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("QUOTA_TIMEZONE %q: %w", tz, err)
	}
	cfg.QuotaTimezone = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.RateStore {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_STORE is 'redis'")
		}
	default:
		return fmt.Errorf("RATE_STORE must be either 'memory' or 'redis', got: %s", c.RateStore)
	}

	if err := c.Rate.Validate(); err != nil {
		return fmt.Errorf("rate window: %w", err)
	}

	if c.EngineProvider != "remote" && c.EngineProvider != "mock" {
		return fmt.Errorf("ENGINE_PROVIDER must be either 'remote' or 'mock', got: %s", c.EngineProvider)
	}

	if c.StorageProvider == "r2" {
		if c.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if c.StorageProvider != "local" {
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	if c.APIRateLimit < 1 || c.APIRateWindow <= 0 {
		return errors.New("API_RATE_LIMIT and API_RATE_WINDOW must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}

	if c.Env == "production" && c.AnonymousSalt == "" {
		return errors.New("ANONYMOUS_SALT is required in production")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
