package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string `envconfig:"APP_MODE" default:"dev"`
	Port     string `envconfig:"PORT" default:"3000"`
	Database DatabaseConfig
	JWT      JWTConfig
	Upload   UploadConfig
	Vision   VisionConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Admin    AdminConfig

	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS"`
}

// DatabaseConfig holds database configuration.
// URL takes precedence over the discrete fields when set.
type DatabaseConfig struct {
	URL      string `envconfig:"DATABASE_URL"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"3306"`
	User     string `envconfig:"DB_USER" default:"root"`
	Password string `envconfig:"DB_PASS"`
	DBName   string `envconfig:"DB_NAME" default:"dimos_fixit"`
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret           string `envconfig:"JWT_SECRET" default:"default_secret"`
	RefreshSecret    string `envconfig:"JWT_REFRESH_SECRET" default:"default_refresh_secret"`
	AccessTokenMins  int    `envconfig:"ACCESS_TOKEN_MINUTES" default:"60"`
	RefreshTokenDays int    `envconfig:"REFRESH_TOKEN_DAYS" default:"7"`
}

// UploadConfig holds photo upload and blob storage configuration
type UploadConfig struct {
	MaxUploadSize     int    `envconfig:"MAX_UPLOAD_SIZE" default:"10485760"`
	MaxPhotosPerIssue int    `envconfig:"MAX_PHOTOS_PER_ISSUE" default:"10"`
	MaxFilesPerUpload int    `envconfig:"MAX_FILES_PER_UPLOAD" default:"5"`
	Dir               string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	Driver            string `envconfig:"STORAGE_DRIVER" default:"disk"`
	S3Bucket          string `envconfig:"S3_BUCKET"`
}

// VisionConfig holds the external AI vision service settings
type VisionConfig struct {
	URL        string `envconfig:"AI_VISION_URL"`
	TimeoutSec int    `envconfig:"AI_VISION_TIMEOUT_SEC" default:"10"`
}

// RedisConfig enables the per-user issue creation quota when URL is set
type RedisConfig struct {
	URL                 string `envconfig:"REDIS_URL"`
	IssueCreateLimitDay int    `envconfig:"ISSUE_CREATE_LIMIT_PER_DAY" default:"20"`
}

// NATSConfig enables issue event publishing when URL is set
type NATSConfig struct {
	URL           string `envconfig:"NATS_URL"`
	SubjectPrefix string `envconfig:"NATS_SUBJECT_PREFIX" default:"fixit"`
}

// AdminConfig holds the bootstrap administrator account used by the seeder
type AdminConfig struct {
	Email    string `envconfig:"ADMIN_EMAIL" default:"admin@dimos.gr"`
	Password string `envconfig:"ADMIN_PASSWORD"`
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// .env is optional; production injects real environment variables
	_ = godotenv.Load()

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	// Trim spaces for Windows compatibility
	cfg.AppMode = strings.TrimSpace(cfg.AppMode)
	if cfg.AppMode != "dev" && cfg.AppMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", cfg.AppMode)
	}

	if cfg.IsProd() && cfg.JWT.Secret == "default_secret" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	if cfg.Upload.Driver != "disk" && cfg.Upload.Driver != "s3" {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: '%s' (must be 'disk' or 's3')", cfg.Upload.Driver)
	}
	if cfg.Upload.Driver == "s3" && cfg.Upload.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
	}

	if cfg.Upload.MaxPhotosPerIssue < 1 {
		cfg.Upload.MaxPhotosPerIssue = 10
	}
	if cfg.Upload.MaxFilesPerUpload < 1 {
		cfg.Upload.MaxFilesPerUpload = 5
	}

	return cfg, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	if c.AllowedOrigins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://fixit.dimos.gr"
	}
	return c.AllowedOrigins
}
