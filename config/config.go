package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Uploads       UploadConfig
	AWS           AWSConfig
	Payment       PaymentConfig
	Email         EmailConfig
	PasswordReset PasswordResetConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	BaseURL            string // public frontend URL used in emailed links
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32 // 0 keeps the pgx default
	MinConns int32
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
// Secret has no default: an empty secret is reported as a server misconfiguration.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// UploadConfig holds local image storage settings (used when no S3 bucket is configured).
type UploadConfig struct {
	Dir       string
	URLPrefix string
}

// AWSConfig holds AWS credentials and the candidate images bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ImagesBucket    string
}

// PaymentConfig holds the payment gateway keys and plan prices.
type PaymentConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
	// PlanPrices maps a plan duration in months to a price in minor units, e.g. "1:49900,12:499900".
	PlanPrices map[int]int64
}

// EmailConfig for SMTP delivery.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// PasswordResetConfig controls reset token lifetime.
type PasswordResetConfig struct {
	TTLMinutes int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// AllowedOrigins splits CORSAllowedOrigins into its entries.
func (c ServerConfig) AllowedOrigins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

// UseS3 reports whether candidate images should go to S3 instead of the local upload dir.
func (c AWSConfig) UseS3() bool {
	return c.Region != "" && c.ImagesBucket != ""
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	prices, err := parsePlanPrices(getEnv("PLAN_PRICES", "1:49900,6:249900,12:449900"))
	if err != nil {
		return nil, fmt.Errorf("PLAN_PRICES: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			BaseURL:            strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "eventvote"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 0)),
			MinConns: int32(getEnvInt("DB_MIN_CONNS", 0)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      os.Getenv("JWT_SECRET"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Uploads: UploadConfig{
			Dir:       getEnv("UPLOAD_DIR", "./uploads"),
			URLPrefix: getEnv("UPLOAD_URL_PREFIX", "/uploads"),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ImagesBucket:    getEnv("AWS_S3_IMAGES_BUCKET", ""),
		},
		Payment: PaymentConfig{
			KeyID:      getEnv("PAYMENT_KEY_ID", ""),
			KeySecret:  getEnv("PAYMENT_KEY_SECRET", ""),
			Currency:   getEnv("PAYMENT_CURRENCY", "INR"),
			PlanPrices: prices,
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Event Vote"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		PasswordReset: PasswordResetConfig{
			TTLMinutes: getEnvInt("PASSWORD_RESET_TTL_MIN", 30),
		},
	}
	return cfg, nil
}

func parsePlanPrices(s string) (map[int]int64, error) {
	out := make(map[int]int64)
	for _, pair := range splitTrim(s, ",") {
		months, price, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q", pair)
		}
		m, err := strconv.Atoi(strings.TrimSpace(months))
		if err != nil || m <= 0 {
			return nil, fmt.Errorf("invalid months in %q", pair)
		}
		p, err := strconv.ParseInt(strings.TrimSpace(price), 10, 64)
		if err != nil || p <= 0 {
			return nil, fmt.Errorf("invalid price in %q", pair)
		}
		out[m] = p
	}
	return out, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
