package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	ArchivedPolicySticky  = "sticky"
	ArchivedPolicyRelease = "release"
)

// Config holds every runtime setting read from the environment.
type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBLogLevel string

	Port        string
	BaseURL     string
	UploadDir   string
	CORSOrigins []string
	JWTSecret   []byte
	Release     bool

	LowStockThreshold int
	ArchivedPolicy    string
	DefaultVATRate    decimal.Decimal
}

// Load reads configs/.env (when present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg := &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "postgres"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		Port:       getEnv("PORT", "8080"),
		UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),
		Release:    os.Getenv("GIN_MODE") == "release",
	}
	cfg.BaseURL = getEnv("BASE_URL", "http://localhost:"+cfg.Port)

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if cfg.Release {
			return nil, errMissing("JWT_SECRET")
		}
		secret = "default_super_secret_key" // development fallback only
	}
	cfg.JWTSecret = []byte(secret)

	threshold, err := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10"))
	if err != nil || threshold < 1 {
		return nil, errInvalid("LOW_STOCK_THRESHOLD")
	}
	cfg.LowStockThreshold = threshold

	cfg.ArchivedPolicy = strings.ToLower(getEnv("ARCHIVED_POLICY", ArchivedPolicySticky))
	if cfg.ArchivedPolicy != ArchivedPolicySticky && cfg.ArchivedPolicy != ArchivedPolicyRelease {
		return nil, errInvalid("ARCHIVED_POLICY")
	}

	vat, err := decimal.NewFromString(getEnv("DEFAULT_VAT_RATE", "20"))
	if err != nil || vat.IsNegative() || vat.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errInvalid("DEFAULT_VAT_RATE")
	}
	cfg.DefaultVATRate = vat

	return cfg, nil
}

// DSN builds the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type configError struct {
	key    string
	reason string
}

func (e *configError) Error() string {
	return "config: " + e.key + " " + e.reason
}

func errMissing(key string) error { return &configError{key: key, reason: "is required in release mode"} }
func errInvalid(key string) error { return &configError{key: key, reason: "has an invalid value"} }
