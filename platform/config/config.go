// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq task queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// ProviderConfig provides settings for the voice-AI calling provider API.
type ProviderConfig interface {
	GetProviderBaseURL() string
	GetProviderAPIKey() string
	GetProviderWebhookSecret() string
}

// AutoCallConfig provides settings for the auto-call engine.
type AutoCallConfig interface {
	GetAutoCallEnabled() bool
	GetAutoCallCheckInterval() time.Duration
	GetAutoCallMaxPerBatch() int
	GetAutoCallWarmupDelay() time.Duration
	GetAutoCallDispatchGap() time.Duration
	GetAutoCallAllowOverlap() bool
	GetDedupTTL() time.Duration
}

// PhoneConfig provides settings for phone number normalization.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	ProviderBaseURL       string
	ProviderAPIKey        string
	ProviderWebhookSecret string
	AutoCallEnabled       bool
	AutoCallCheckInterval time.Duration
	AutoCallMaxPerBatch   int
	AutoCallWarmupDelay   time.Duration
	AutoCallDispatchGap   time.Duration
	AutoCallAllowOverlap  bool
	DedupTTL              time.Duration
	DefaultPhoneRegion    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// ProviderConfig implementation
func (c *Config) GetProviderBaseURL() string       { return c.ProviderBaseURL }
func (c *Config) GetProviderAPIKey() string        { return c.ProviderAPIKey }
func (c *Config) GetProviderWebhookSecret() string { return c.ProviderWebhookSecret }

// AutoCallConfig implementation
func (c *Config) GetAutoCallEnabled() bool                 { return c.AutoCallEnabled }
func (c *Config) GetAutoCallCheckInterval() time.Duration  { return c.AutoCallCheckInterval }
func (c *Config) GetAutoCallMaxPerBatch() int              { return c.AutoCallMaxPerBatch }
func (c *Config) GetAutoCallWarmupDelay() time.Duration    { return c.AutoCallWarmupDelay }
func (c *Config) GetAutoCallDispatchGap() time.Duration    { return c.AutoCallDispatchGap }
func (c *Config) GetAutoCallAllowOverlap() bool            { return c.AutoCallAllowOverlap }
func (c *Config) GetDedupTTL() time.Duration               { return c.DedupTTL }

// PhoneConfig implementation
func (c *Config) GetDefaultPhoneRegion() string { return c.DefaultPhoneRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ProviderBaseURL:       getEnv("CALL_PROVIDER_BASE_URL", ""),
		ProviderAPIKey:        getEnv("CALL_PROVIDER_API_KEY", ""),
		ProviderWebhookSecret: getEnv("CALL_PROVIDER_WEBHOOK_SECRET", ""),
		AutoCallEnabled:       strings.EqualFold(getEnv("AUTO_CALL_ENABLED", "true"), "true"),
		AutoCallCheckInterval: mustDuration(getEnv("AUTO_CALL_CHECK_INTERVAL", "60s")),
		AutoCallMaxPerBatch:   mustInt(getEnv("AUTO_CALL_MAX_PER_BATCH", "10")),
		AutoCallWarmupDelay:   mustDuration(getEnv("AUTO_CALL_WARMUP_DELAY", "10s")),
		AutoCallDispatchGap:   mustDuration(getEnv("AUTO_CALL_DISPATCH_GAP", "2s")),
		AutoCallAllowOverlap:  strings.EqualFold(getEnv("AUTO_CALL_ALLOW_OVERLAP", "false"), "true"),
		DedupTTL:              mustDuration(getEnv("AUTO_CALL_DEDUP_TTL", "10m")),
		DefaultPhoneRegion:    getEnv("DEFAULT_PHONE_REGION", "US"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.ProviderBaseURL == "" || cfg.ProviderAPIKey == "" {
		return nil, fmt.Errorf("CALL_PROVIDER_BASE_URL and CALL_PROVIDER_API_KEY are required")
	}
	if cfg.AutoCallCheckInterval <= 0 {
		return nil, fmt.Errorf("AUTO_CALL_CHECK_INTERVAL must be a positive duration")
	}
	if cfg.AutoCallMaxPerBatch <= 0 {
		return nil, fmt.Errorf("AUTO_CALL_MAX_PER_BATCH must be positive")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
