package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageDriverS3         = "s3"
	StorageDriverFilesystem = "filesystem"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	RunwayAPIKey     string
	RunwayBaseURL    string
	RunwayAPIVersion string
	PollInterval     time.Duration
	PollTimeout      time.Duration

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	S3Bucket           string

	StorageDriver        string
	StoragePath          string
	StorageBaseURL       string
	StoragePublicBaseURL string
	MaxUploadBytes       int64

	DatabaseURL        string
	CORSAllowedOrigins []string

	HTTPClientTimeout time.Duration
	DownloadTimeout   time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 port,
		RunwayAPIKey:         strings.TrimSpace(os.Getenv("RUNWAYML_API_SECRET")),
		RunwayBaseURL:        getEnv("RUNWAYML_BASE_URL", "https://api.dev.runwayml.com"),
		RunwayAPIVersion:     getEnv("RUNWAYML_API_VERSION", "2024-11-06"),
		PollInterval:         getEnvDuration("POLL_INTERVAL", 5*time.Second),
		PollTimeout:          getEnvDuration("POLL_TIMEOUT", 10*time.Minute),
		AWSRegion:            strings.TrimSpace(os.Getenv("AWS_REGION")),
		AWSAccessKeyID:       strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID")),
		AWSSecretAccessKey:   strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY")),
		AWSSessionToken:      strings.TrimSpace(os.Getenv("AWS_SESSION_TOKEN")),
		S3Bucket:             strings.TrimSpace(os.Getenv("S3_BUCKET_NAME")),
		StorageDriver:        strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverS3)),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:       getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		StoragePublicBaseURL: strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_BASE_URL")),
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		DatabaseURL:          strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CORSAllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		HTTPClientTimeout:    getEnvDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
		DownloadTimeout:      getEnvDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 900)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.RunwayAPIKey == "" {
		return nil, fmt.Errorf("RUNWAYML_API_SECRET is required")
	}
	if cfg.AWSRegion == "" {
		return nil, fmt.Errorf("AWS_REGION is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if cfg.PollTimeout < cfg.PollInterval {
		return nil, fmt.Errorf("POLL_TIMEOUT must not be shorter than POLL_INTERVAL")
	}

	switch cfg.StorageDriver {
	case StorageDriverS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET_NAME is required")
		}
		if cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" {
			return nil, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required")
		}
	case StorageDriverFilesystem:
		if strings.TrimSpace(cfg.StoragePath) == "" {
			return nil, fmt.Errorf("STORAGE_PATH is required for the filesystem driver")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
