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

// GeocodingConfig provides settings for the external address-search API.
type GeocodingConfig interface {
	GetGeocodeSearchURL() string
	GetGeocodeReverseURL() string
	GetGeocodeTimeout() time.Duration
}

// AddressSessionConfig provides settings for address resolution sessions.
type AddressSessionConfig interface {
	GetAddressDebounce() time.Duration
	GetAddressSessionTTL() time.Duration
	GetMapDefaultLat() float64
	GetMapDefaultLng() float64
	GetMapDefaultZoom() int
}

// RedisConfig provides redis connection settings for presence and scheduling.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the background task scheduler.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetTrashRetention() time.Duration
}

// PresenceConfig provides settings for online-user tracking.
type PresenceConfig interface {
	GetPresenceTTL() time.Duration
}

// EmailConfig provides settings for outbound SMTP email.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// MinIOConfig provides settings for MinIO S3-compatible document storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketChantierDocuments() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                          string
	HTTPAddr                     string
	DatabaseURL                  string
	JWTAccessSecret              string
	CORSAllowAll                 bool
	CORSOrigins                  []string
	CORSAllowCreds               bool
	AppBaseURL                   string
	GeocodeSearchURL             string
	GeocodeReverseURL            string
	GeocodeTimeout               time.Duration
	AddressDebounce              time.Duration
	AddressSessionTTL            time.Duration
	MapDefaultLat                float64
	MapDefaultLng                float64
	MapDefaultZoom               int
	RedisURL                     string
	RedisTLSInsecure             bool
	AsynqQueueName               string
	AsynqConcurrency             int
	TrashRetention               time.Duration
	PresenceTTL                  time.Duration
	EmailEnabled                 bool
	SMTPHost                     string
	SMTPPort                     int
	SMTPUsername                 string
	SMTPPassword                 string
	EmailFromName                string
	EmailFromAddress             string
	MinIOEndpoint                string
	MinIOAccessKey               string
	MinIOSecretKey               string
	MinIOUseSSL                  bool
	MinIOMaxFileSize             int64
	MinioBucketChantierDocuments string
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

// GeocodingConfig implementation
func (c *Config) GetGeocodeSearchURL() string        { return c.GeocodeSearchURL }
func (c *Config) GetGeocodeReverseURL() string       { return c.GeocodeReverseURL }
func (c *Config) GetGeocodeTimeout() time.Duration   { return c.GeocodeTimeout }

// AddressSessionConfig implementation
func (c *Config) GetAddressDebounce() time.Duration   { return c.AddressDebounce }
func (c *Config) GetAddressSessionTTL() time.Duration { return c.AddressSessionTTL }
func (c *Config) GetMapDefaultLat() float64           { return c.MapDefaultLat }
func (c *Config) GetMapDefaultLng() float64           { return c.MapDefaultLng }
func (c *Config) GetMapDefaultZoom() int              { return c.MapDefaultZoom }

// RedisConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string        { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int         { return c.AsynqConcurrency }
func (c *Config) GetTrashRetention() time.Duration { return c.TrashRetention }

// PresenceConfig implementation
func (c *Config) GetPresenceTTL() time.Duration { return c.PresenceTTL }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketChantierDocuments() string {
	return c.MinioBucketChantierDocuments
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:                          getEnv("APP_ENV", "development"),
		HTTPAddr:                     getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                  getEnv("DATABASE_URL", ""),
		JWTAccessSecret:              getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                 corsAllowAll,
		CORSOrigins:                  corsOrigins,
		CORSAllowCreds:               strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                   getEnv("APP_BASE_URL", "http://localhost:5173"),
		GeocodeSearchURL:             getEnv("GEOCODE_SEARCH_URL", "https://api-adresse.data.gouv.fr/search/"),
		GeocodeReverseURL:            getEnv("GEOCODE_REVERSE_URL", "https://api-adresse.data.gouv.fr/reverse/"),
		GeocodeTimeout:               mustDuration(getEnv("GEOCODE_TIMEOUT", "5s")),
		AddressDebounce:              mustDuration(getEnv("ADDRESS_DEBOUNCE", "300ms")),
		AddressSessionTTL:            mustDuration(getEnv("ADDRESS_SESSION_TTL", "30m")),
		MapDefaultLat:                mustFloat(getEnv("MAP_DEFAULT_LAT", "45.7640")),
		MapDefaultLng:                mustFloat(getEnv("MAP_DEFAULT_LNG", "4.8357")),
		MapDefaultZoom:               int(mustInt64(getEnv("MAP_DEFAULT_ZOOM", "13"))),
		RedisURL:                     getEnv("REDIS_URL", ""),
		RedisTLSInsecure:             strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:               getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:             int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		TrashRetention:               mustDuration(getEnv("TRASH_RETENTION", "720h")),
		PresenceTTL:                  mustDuration(getEnv("PRESENCE_TTL", "60s")),
		EmailEnabled:                 emailEnabled,
		SMTPHost:                     getEnv("SMTP_HOST", ""),
		SMTPPort:                     int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:                 getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                 getEnv("SMTP_PASSWORD", ""),
		EmailFromName:                getEnv("EMAIL_FROM_NAME", "Chantier Portal"),
		EmailFromAddress:             getEnv("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:                getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:               getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:               getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                  strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:             mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "52428800")),
		MinioBucketChantierDocuments: getEnv("MINIO_BUCKET_CHANTIER_DOCUMENTS", "chantier-documents"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if emailEnabled && (cfg.SMTPHost == "" || cfg.EmailFromAddress == "") {
		return nil, fmt.Errorf("SMTP_HOST and EMAIL_FROM_ADDRESS are required when EMAIL_ENABLED is true")
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

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
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
