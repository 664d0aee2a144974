package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Storage  StorageConfig
	S3       S3Config
	Redis    RedisConfig
	Upload   UploadConfig
	Admin    AdminSeedConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LoginPath   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
	CookieSecure      bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

// StorageConfig selects the blob store backend.
type StorageConfig struct {
	Driver        string // local, s3
	LocalDir      string
	PublicBaseURL string // prefix joined with image keys at the read boundary
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // S3-compatible services (MinIO, R2)
	UsePathStyle    bool
	BaseURL         string // CloudFront or S3 direct URL
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// UploadConfig carries the image policy shared by place and product uploads.
type UploadConfig struct {
	MaxImages              int
	MaxUploadBytesOnCreate int64
	MaxUploadBytesOnUpdate int64
	AllowedContentTypes    []string
	PlacePrefix            string
	ProductPrefix          string
}

type AdminSeedConfig struct {
	Name     string
	Email    string
	Password string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LoginPath:   getEnv("LOGIN_PATH", "/login"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "townmarket"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry: parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "12h")),
			CookieSecure:      parseBool(getEnv("JWT_COOKIE_SECURE", "false")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "local"),
			LocalDir:      getEnv("STORAGE_LOCAL_DIR", "./storage/app/public"),
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", "/storage"),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-southeast-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "townmarket-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
			UsePathStyle:    parseBool(getEnv("AWS_S3_USE_PATH_STYLE", "false")),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Upload: UploadConfig{
			MaxImages:              parseInt(getEnv("UPLOAD_MAX_IMAGES", "7"), 7),
			MaxUploadBytesOnCreate: int64(parseInt(getEnv("UPLOAD_MAX_BYTES_CREATE", "1048576"), 1<<20)),
			MaxUploadBytesOnUpdate: int64(parseInt(getEnv("UPLOAD_MAX_BYTES_UPDATE", "2097152"), 2<<20)),
			AllowedContentTypes:    parseSlice(getEnv("UPLOAD_ALLOWED_TYPES", "image/jpeg,image/png")),
			PlacePrefix:            getEnv("UPLOAD_PLACE_PREFIX", "uploads/places"),
			ProductPrefix:          getEnv("UPLOAD_PRODUCT_PREFIX", "uploads/products"),
		},
		Admin: AdminSeedConfig{
			Name:     getEnv("ADMIN_NAME", "Administrator"),
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultUploadConfig returns the image policy used when nothing is configured.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		MaxImages:              7,
		MaxUploadBytesOnCreate: 1 << 20,
		MaxUploadBytesOnUpdate: 2 << 20,
		AllowedContentTypes:    []string{"image/jpeg", "image/png"},
		PlacePrefix:            "uploads/places",
		ProductPrefix:          "uploads/products",
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Upload.MaxImages <= 0 {
		return fmt.Errorf("UPLOAD_MAX_IMAGES must be positive")
	}
	if c.Upload.MaxUploadBytesOnCreate <= 0 || c.Upload.MaxUploadBytesOnUpdate <= 0 {
		return fmt.Errorf("upload size limits must be positive")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 12h", s)
		return 12 * time.Hour
	}
	return duration
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return v
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return v
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
