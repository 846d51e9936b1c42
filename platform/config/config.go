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

// JWTConfig provides settings for validating identity-provider access tokens.
type JWTConfig interface {
	GetAuthJWTSecret() string
	GetAuthJWTAudience() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketKeywordUploads() string
	GetMinioBucketBrandLogos() string
	IsMinIOEnabled() bool
}

// LLMConfig provides settings for the OpenAI-compatible chat completion API.
type LLMConfig interface {
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMModel() string
	GetLLMFallbackModel() string
	GetLLMTimeout() time.Duration
	IsLLMEnabled() bool
}

// SchedulerConfig provides settings for the asynq-backed job dispatcher.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// JobConfig provides settings for background job execution and retention.
type JobConfig interface {
	GetJobTimeout() time.Duration
	GetJobCleanupInterval() time.Duration
	GetCompletedJobRetention() time.Duration
	GetFailedJobRetention() time.Duration
}

// TrackerConfig provides settings for the third-party task tracker.
type TrackerConfig interface {
	GetTrackerBaseURL() string
	GetTrackerAPIToken() string
	GetTrackerDefaultListID() string
	IsTrackerEnabled() bool
}

// EmailConfig provides settings for invite emails.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
	IsEmailEnabled() bool
}

// TelemetryConfig provides settings for OpenTelemetry exporters.
type TelemetryConfig interface {
	GetOTLPEndpoint() string
	GetOTLPInsecure() bool
	GetServiceName() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	AuthJWTSecret         string
	AuthJWTAudience       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	AppBaseURL            string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOMaxFileSize      int64
	MinioBucketKeywords   string
	MinioBucketBrandLogos string
	LLMAPIKey             string
	LLMBaseURL            string
	LLMModel              string
	LLMFallbackModel      string
	LLMTimeout            time.Duration
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	JobTimeout            time.Duration
	JobCleanupInterval    time.Duration
	CompletedJobRetention time.Duration
	FailedJobRetention    time.Duration
	TrackerBaseURL        string
	TrackerAPIToken       string
	TrackerDefaultListID  string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	OTLPEndpoint          string
	OTLPInsecure          bool
	ServiceName           string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetAuthJWTSecret() string   { return c.AuthJWTSecret }
func (c *Config) GetAuthJWTAudience() string { return c.AuthJWTAudience }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string             { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string            { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string            { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                 { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64           { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketKeywordUploads() string { return c.MinioBucketKeywords }
func (c *Config) GetMinioBucketBrandLogos() string     { return c.MinioBucketBrandLogos }
func (c *Config) IsMinIOEnabled() bool                 { return c.MinIOEndpoint != "" }

// LLMConfig implementation
func (c *Config) GetLLMAPIKey() string         { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string        { return c.LLMBaseURL }
func (c *Config) GetLLMModel() string          { return c.LLMModel }
func (c *Config) GetLLMFallbackModel() string  { return c.LLMFallbackModel }
func (c *Config) GetLLMTimeout() time.Duration { return c.LLMTimeout }
func (c *Config) IsLLMEnabled() bool           { return c.LLMAPIKey != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// JobConfig implementation
func (c *Config) GetJobTimeout() time.Duration            { return c.JobTimeout }
func (c *Config) GetJobCleanupInterval() time.Duration    { return c.JobCleanupInterval }
func (c *Config) GetCompletedJobRetention() time.Duration { return c.CompletedJobRetention }
func (c *Config) GetFailedJobRetention() time.Duration    { return c.FailedJobRetention }

// TrackerConfig implementation
func (c *Config) GetTrackerBaseURL() string       { return c.TrackerBaseURL }
func (c *Config) GetTrackerAPIToken() string      { return c.TrackerAPIToken }
func (c *Config) GetTrackerDefaultListID() string { return c.TrackerDefaultListID }
func (c *Config) IsTrackerEnabled() bool          { return c.TrackerAPIToken != "" }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// TelemetryConfig implementation
func (c *Config) GetOTLPEndpoint() string { return c.OTLPEndpoint }
func (c *Config) GetOTLPInsecure() bool   { return c.OTLPInsecure }
func (c *Config) GetServiceName() string  { return c.ServiceName }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		AuthJWTSecret:         getEnv("AUTH_JWT_SECRET", ""),
		AuthJWTAudience:       getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:      mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "20971520")),
		MinioBucketKeywords:   getEnv("MINIO_BUCKET_KEYWORD_UPLOADS", "keyword-uploads"),
		MinioBucketBrandLogos: getEnv("MINIO_BUCKET_BRAND_LOGOS", "brand-logos"),
		LLMAPIKey:             getEnv("LLM_API_KEY", ""),
		LLMBaseURL:            getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:              getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMFallbackModel:      getEnv("LLM_FALLBACK_MODEL", "gpt-4o"),
		LLMTimeout:            mustDuration(getEnv("LLM_TIMEOUT", "90s")),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		JobTimeout:            mustDuration(getEnv("JOB_TIMEOUT", "10m")),
		JobCleanupInterval:    mustDuration(getEnv("JOB_CLEANUP_INTERVAL", "1h")),
		CompletedJobRetention: mustDuration(getEnv("JOB_COMPLETED_RETENTION", "336h")),
		FailedJobRetention:    mustDuration(getEnv("JOB_FAILED_RETENTION", "720h")),
		TrackerBaseURL:        getEnv("TRACKER_BASE_URL", "https://api.clickup.com/api/v2"),
		TrackerAPIToken:       getEnv("TRACKER_API_TOKEN", ""),
		TrackerDefaultListID:  getEnv("TRACKER_DEFAULT_LIST_ID", ""),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Agency OS"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		OTLPEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:          strings.EqualFold(getEnv("OTEL_EXPORTER_OTLP_INSECURE", "false"), "true"),
		ServiceName:           getEnv("OTEL_SERVICE_NAME", "agency-os-api"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AuthJWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.LLMTimeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be a positive duration")
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

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
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
