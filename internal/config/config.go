package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	// Driver selects the record store: "postgres" (default) or "memory".
	Driver             string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects where uploaded content lives.
type StorageConfig struct {
	// Driver is "minio" (default) or "filesystem".
	Driver string
	// Path is the root directory used by the filesystem driver.
	Path string
}

// AuthConfig holds the account session settings.
type AuthConfig struct {
	JWTSecret   string
	JWTTTLHours int
}

// ShareConfig holds the upload and short link settings.
type ShareConfig struct {
	BaseURL          string
	ShortLinkLength  int
	MaxAttempts      int
	MaxFileSize      int64
	AllowedFileTypes []string
}

// SweeperConfig holds the retention schedules. Schedules use standard 5-field cron syntax.
type SweeperConfig struct {
	Schedule          string
	ReconcileSchedule string
	BatchSize         int
	StorageRPS        float64
}

// RateLimitConfig controls the per-IP limiter applied to /api.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	LogLevel  string
	Timezone  string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Share     ShareConfig
	Sweeper   SweeperConfig
	RateLimit RateLimitConfig
}

// defaultAllowedFileTypes covers common media, office and text uploads.
var defaultAllowedFileTypes = []string{
	"image/*",
	"video/*",
	"audio/*",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/*",
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TZ_LOCATION", "UTC"),
		Database: DatabaseConfig{
			Driver:             getEnv("DB_DRIVER", "postgres"),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "minio"),
			Path:   getEnv("STORAGE_PATH", "./uploads"),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", ""),
			JWTTTLHours: getEnvInt("JWT_TTL_HOURS", 24*7),
		},
		Share: ShareConfig{
			BaseURL:          strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
			ShortLinkLength:  getEnvInt("SHORTLINK_LENGTH", 10),
			MaxAttempts:      getEnvInt("SHORTLINK_MAX_ATTEMPTS", 10),
			MaxFileSize:      getEnvInt64("MAX_FILE_SIZE", 100*1024*1024),
			AllowedFileTypes: getEnvList("ALLOWED_FILE_TYPES", defaultAllowedFileTypes),
		},
		Sweeper: SweeperConfig{
			Schedule:          getEnv("SWEEP_SCHEDULE", "0 2 * * *"),
			ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "30 3 * * 0"),
			BatchSize:         getEnvInt("SWEEP_BATCH_SIZE", 500),
			StorageRPS:        getEnvFloat("SWEEP_STORAGE_RPS", 50),
		},
		RateLimit: RateLimitConfig{
			Max:    getEnvInt("RATE_LIMIT_MAX", 100),
			Window: time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SEC", 900)) * time.Second,
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
