package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv          string
	Port             string
	JWTSecret        string
	AutosaveInterval time.Duration
	Database         DatabaseConfig
	GPS              GPSConfig
	Sync             SyncConfig
	Photos           PhotoConfig
	AI               AIConfig
}

// DatabaseConfig holds database configuration.
// Embedded mode is selected automatically when Host is localhost and
// Password is empty (zero-config field laptop deployments).
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
}

// GPSConfig holds GPS validation thresholds
type GPSConfig struct {
	AccuracyThresholdM  float64 // max acceptable reported accuracy
	MaxDistanceFromPole float64 // max drop-to-pole distance
	DuplicateToleranceM float64 // radius used for duplicate-location detection
}

// SyncConfig holds outbox drain configuration
type SyncConfig struct {
	Enabled       bool
	RemoteURL     string
	BatchSize     int
	BatchPause    time.Duration
	RetryDelay    time.Duration
	MaxRetries    int
	DrainInterval time.Duration
}

// PhotoConfig holds photo storage configuration
type PhotoConfig struct {
	MinioEndpoint  string // empty = local directory store
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	LocalDir       string
}

// AIConfig holds the optional Gemini feedback-writer configuration
type AIConfig struct {
	GeminiAPIKey string
	GeminiModel  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		NodeEnv:          getEnv("NODE_ENV", "development"),
		Port:             getEnv("PORT", "3300"),
		JWTSecret:        jwtSecret,
		AutosaveInterval: getEnvDuration("AUTOSAVE_INTERVAL", 30*time.Second),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "fibrefield"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
		},
		GPS: GPSConfig{
			AccuracyThresholdM:  getEnvFloat("GPS_ACCURACY_THRESHOLD_M", 20),
			MaxDistanceFromPole: getEnvFloat("GPS_MAX_DISTANCE_M", 500),
			DuplicateToleranceM: getEnvFloat("GPS_DUPLICATE_TOLERANCE_M", 10),
		},
		Sync: SyncConfig{
			Enabled:       getEnv("SYNC_ENABLED", "true") == "true",
			RemoteURL:     os.Getenv("SYNC_REMOTE_URL"),
			BatchSize:     getEnvInt("SYNC_BATCH_SIZE", 5),
			BatchPause:    getEnvDuration("SYNC_BATCH_PAUSE", time.Second),
			RetryDelay:    getEnvDuration("SYNC_RETRY_DELAY", 30*time.Second),
			MaxRetries:    getEnvInt("SYNC_MAX_RETRIES", 3),
			DrainInterval: getEnvDuration("SYNC_DRAIN_INTERVAL", 2*time.Minute),
		},
		Photos: PhotoConfig{
			MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			MinioBucket:    getEnv("MINIO_BUCKET", "fibrefield-photos"),
			MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
			LocalDir:       getEnv("PHOTO_DIR", "./photo_data"),
		},
		AI: AIConfig{
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
