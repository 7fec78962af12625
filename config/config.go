package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// LoadEnv loads .env into the process environment. A missing file is not an
// error; existing variables are never overwritten.
func LoadEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func GetEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

type Config struct {
	Port     string
	LogLevel string
	LogJSON  bool

	RedisURI      string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	JWTSecret       string
	TokenTTL        time.Duration
	DevLoginEnabled bool
	AdminEmails     []string

	MinTeamMembers   int
	LedgerMaxRetries uint64
	EntryCacheSize   int

	BlobBackend    string // local, gcs or s3
	BlobLocalDir   string
	BlobPublicURL  string
	BlobBucket     string
	BlobEndpoint   string
	MaxUploadBytes int64
}

func Default() Config {
	return Config{
		Port:             "8080",
		LogLevel:         "info",
		RedisURI:         "localhost:6379",
		KeyPrefix:        "krathong",
		TokenTTL:         24 * time.Hour,
		MinTeamMembers:   5,
		LedgerMaxRetries: 8,
		EntryCacheSize:   512,
		BlobBackend:      "local",
		BlobLocalDir:     "./uploads",
		BlobPublicURL:    "/uploads",
		MaxUploadBytes:   10 << 20,
	}
}

// Load reads the configuration from the environment on top of Default.
// Malformed numeric values are ignored and keep their defaults.
func Load() Config {
	cfg := Default()
	cfg.Port = GetEnv("PORT", cfg.Port)
	cfg.LogLevel = GetEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogJSON = parseBool(os.Getenv("LOG_JSON"), cfg.LogJSON)

	cfg.RedisURI = GetEnv("REDIS_URI", cfg.RedisURI)
	cfg.RedisPassword = GetEnv("REDIS_PASSWORD", "")
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	cfg.KeyPrefix = GetEnv("KEY_PREFIX", cfg.KeyPrefix)

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value > 0 {
			cfg.TokenTTL = value
		}
	}
	cfg.DevLoginEnabled = parseBool(os.Getenv("AUTH_DEV_LOGIN"), false)
	cfg.AdminEmails = ParseEmailList(os.Getenv("ADMIN_EMAILS"))

	if raw := os.Getenv("MIN_TEAM_MEMBERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MinTeamMembers = value
		}
	}
	if raw := os.Getenv("LEDGER_MAX_RETRIES"); raw != "" {
		if value, err := strconv.ParseUint(raw, 10, 64); err == nil && value > 0 {
			cfg.LedgerMaxRetries = value
		}
	}
	if raw := os.Getenv("ENTRY_CACHE_SIZE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.EntryCacheSize = value
		}
	}

	cfg.BlobBackend = strings.ToLower(GetEnv("BLOB_BACKEND", cfg.BlobBackend))
	cfg.BlobLocalDir = GetEnv("BLOB_LOCAL_DIR", cfg.BlobLocalDir)
	cfg.BlobPublicURL = GetEnv("BLOB_PUBLIC_URL", cfg.BlobPublicURL)
	cfg.BlobBucket = os.Getenv("BLOB_BUCKET")
	cfg.BlobEndpoint = os.Getenv("BLOB_ENDPOINT")
	if raw := os.Getenv("MAX_UPLOAD_BYTES"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil && value > 0 {
			cfg.MaxUploadBytes = value
		}
	}
	return cfg
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.JWTSecret == "" {
		result = multierror.Append(result, errors.New("JWT_SECRET is required"))
	}
	if len(c.AdminEmails) == 0 {
		result = multierror.Append(result, errors.New("ADMIN_EMAILS must list at least one address"))
	}
	switch c.BlobBackend {
	case "local":
		if c.BlobLocalDir == "" {
			result = multierror.Append(result, errors.New("BLOB_LOCAL_DIR is required for the local backend"))
		}
	case "gcs", "s3":
		if c.BlobBucket == "" {
			result = multierror.Append(result, fmt.Errorf("BLOB_BUCKET is required for the %s backend", c.BlobBackend))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend))
	}
	return result.ErrorOrNil()
}

// IsAdmin reports whether email is on the admin allow-list, ignoring case.
func (c Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

// ParseEmailList splits a comma separated list into normalized addresses.
func ParseEmailList(raw string) []string {
	var emails []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			emails = append(emails, part)
		}
	}
	return emails
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}
