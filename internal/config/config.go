package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Image storage backends.
const (
	ImageBackendS3     = "s3"
	ImageBackendGridFS = "gridfs"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Postgres
	DatabaseURL string
	AutoMigrate bool

	// MongoDB (GridFS image backend)
	MongoURI     string
	MongoDbName  string
	GridFSBucket string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	ApiPort        string
	ServiceApiPort string
	PublicBaseURL  string
	AllowedOrigin  string

	// Images
	ImageBackend           string
	AwsAccessKeyID         string
	AwsSecretAccessKey     string
	AwsRegion              string
	AwsS3Bucket            string
	AwsS3Endpoint          string // S3 compatible providers
	ImageBaseS3URL         string
	ImageMaxSizeMB         int
	ImageMaxCount          int
	ImageThumbMaxDimension int

	// Browsing
	CountCacheTTL   time.Duration
	DefaultPageSize int
	MaxPageSize     int

	// Rate Limiting
	RateLimitBucketSize     int
	RateLimitRefillRate     int // tokens per second
	RateLimitPostBucketSize int
	RateLimitPostRefillRate int // tokens per second
}

// ImageMaxSizeBytes is the per image upload limit.
func (c *Config) ImageMaxSizeBytes() int64 {
	return int64(c.ImageMaxSizeMB) << 20
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	cfg.DatabaseURL, err = getRequiredEnv("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.AutoMigrate, err = strconv.ParseBool(getEnv("AUTO_MIGRATE", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_MIGRATE: %w", err)
	}

	cfg.ImageBackend = getEnv("IMAGE_BACKEND", ImageBackendS3)
	switch cfg.ImageBackend {
	case ImageBackendS3:
		cfg.MongoURI = getEnv("MONGO_URI", "")
	case ImageBackendGridFS:
		cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid IMAGE_BACKEND: %q", cfg.ImageBackend)
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "sopo")
	cfg.GridFSBucket = getEnv("GRIDFS_BUCKET", "images")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "http://localhost:"+cfg.ApiPort)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", "*")

	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AwsS3Bucket = getEnv("AWS_S3_BUCKET", "sopo-images")
	cfg.AwsS3Endpoint = getEnv("AWS_S3_ENDPOINT", "")
	cfg.ImageBaseS3URL = getEnv("IMAGE_BASE_S3_URL", "")

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxSizeMB, err = getInt("IMAGE_MAX_SIZE_MB", "8"); err != nil {
		return nil, err
	}
	if cfg.ImageMaxCount, err = getInt("IMAGE_MAX_COUNT", "8"); err != nil {
		return nil, err
	}
	if cfg.ImageThumbMaxDimension, err = getInt("IMAGE_THUMB_MAX_DIMENSION", "480"); err != nil {
		return nil, err
	}

	countCacheTTLSeconds, err := strconv.ParseInt(getEnv("COUNT_CACHE_TTL_SECONDS", "60"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid COUNT_CACHE_TTL_SECONDS: %w", err)
	}
	cfg.CountCacheTTL = time.Duration(countCacheTTLSeconds) * time.Second

	if cfg.DefaultPageSize, err = getInt("DEFAULT_PAGE_SIZE", "50"); err != nil {
		return nil, err
	}
	if cfg.MaxPageSize, err = getInt("MAX_PAGE_SIZE", "200"); err != nil {
		return nil, err
	}
	if cfg.DefaultPageSize <= 0 || cfg.MaxPageSize < cfg.DefaultPageSize {
		return nil, fmt.Errorf("invalid page sizes: default %d, max %d", cfg.DefaultPageSize, cfg.MaxPageSize)
	}

	// Rate Limiting
	if cfg.RateLimitBucketSize, err = getInt("RATE_LIMIT_BUCKET_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.RateLimitRefillRate, err = getInt("RATE_LIMIT_REFILL_RATE", "10"); err != nil {
		return nil, err
	}
	if cfg.RateLimitPostBucketSize, err = getInt("RATE_LIMIT_POST_BUCKET_SIZE", "3"); err != nil {
		return nil, err
	}
	if cfg.RateLimitPostRefillRate, err = getInt("RATE_LIMIT_POST_REFILL_RATE", "1"); err != nil {
		return nil, err
	}

	return cfg, nil
}
