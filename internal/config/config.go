package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabasePath string
	LogLevel     string

	// S3
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// OpenRouter; an empty key disables inference and every caller takes its deterministic path.
	OpenRouterAPIKey string
	OpenRouterModel  string
	OpenRouterURL    string
	InferenceTimeout time.Duration

	// Field cache; an empty address selects the in-process cache.
	RedisAddr     string
	FieldCacheTTL time.Duration

	// Upload limits
	MaxFileSize int64

	Tuning Tuning
}

func Load() (*Config, error) {
	// .env is optional; the process environment wins.
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabasePath:      getEnv("DATABASE_PATH", "data/loans.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "documents"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:   getEnv("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		OpenRouterURL:     getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1/chat/completions"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		MaxFileSize:       10 * 1024 * 1024,
		Tuning:            DefaultTuning(),
	}

	var err error
	if cfg.InferenceTimeout, err = getDuration("INFERENCE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.FieldCacheTTL, err = getDuration("FIELD_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	if path := os.Getenv("RISK_TUNING_FILE"); path != "" {
		tuning, err := LoadTuning(path)
		if err != nil {
			return nil, err
		}
		cfg.Tuning = tuning
	}

	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}

	return cfg, nil
}

// InferenceEnabled reports whether an inference backend is configured.
func (c *Config) InferenceEnabled() bool {
	return c.OpenRouterAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return time.Duration(secs) * time.Second, nil
}
