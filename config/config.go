package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds watcher configuration.
type Config struct {
	BaseURL         string
	BrowsePath      string
	MaxPages        int
	Timeout         time.Duration
	UserAgent       string
	DBPath          string
	DatabaseURL     string // when set, Postgres is used instead of SQLite
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPass        string
	EmailFrom       string
	EmailTo         string
	OutputFile      string
	OutputFormat    string // csv, jsonl, or dual
	DedupeCacheSize int
	MetricsAddr     string
	DryRun          bool
	Verbose         bool
}

// DefaultConfig returns the defaults used when neither environment nor flags
// override a value. BaseURL and the SMTP credentials have no default and must
// be supplied.
func DefaultConfig() *Config {
	return &Config{
		BrowsePath:      "/Browse",
		MaxPages:        20,
		Timeout:         20 * time.Second,
		UserAgent:       "auctioneye/1.0 (+personal watcher; contact owner of this account)",
		DBPath:          "/data/seen_items.db",
		SMTPHost:        "smtp.gmail.com",
		SMTPPort:        587,
		OutputFormat:    "csv",
		DedupeCacheSize: 65536,
	}
}

// FromEnv builds a Config from the environment, loading a .env file first
// when one is present. Unset variables keep their defaults; Validate reports
// anything still missing. EMAIL_FROM and EMAIL_TO fall back to SMTP_USER.
func FromEnv() *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	cfg.BaseURL = EnvString("BASE_URL", cfg.BaseURL)
	cfg.BrowsePath = EnvString("BROWSE_PATH", cfg.BrowsePath)
	cfg.MaxPages = EnvInt("MAX_PAGES", cfg.MaxPages)
	cfg.Timeout = EnvDuration("REQUEST_TIMEOUT", cfg.Timeout)
	cfg.UserAgent = EnvString("USER_AGENT", cfg.UserAgent)
	cfg.DBPath = EnvString("DB_PATH", cfg.DBPath)
	cfg.DatabaseURL = EnvString("DATABASE_URL", cfg.DatabaseURL)
	cfg.SMTPHost = EnvString("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = EnvInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUser = EnvString("SMTP_USER", cfg.SMTPUser)
	cfg.SMTPPass = EnvString("SMTP_PASS", cfg.SMTPPass)
	cfg.EmailFrom = EnvString("EMAIL_FROM", cfg.SMTPUser)
	cfg.EmailTo = EnvString("EMAIL_TO", cfg.SMTPUser)
	cfg.OutputFile = EnvString("OUT_FILE", cfg.OutputFile)
	cfg.OutputFormat = EnvString("OUT_FORMAT", cfg.OutputFormat)
	cfg.DedupeCacheSize = EnvInt("DEDUPE_CACHE_SIZE", cfg.DedupeCacheSize)
	cfg.MetricsAddr = EnvString("METRICS_ADDR", cfg.MetricsAddr)
	return cfg
}

// BrowseURL returns the listing URL: the browse path resolved against the
// base URL, carrying the fixed query that selects the flat active-only list
// view the parser expects.
func (c *Config) BrowseURL() (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(c.BrowsePath)
	if err != nil {
		return "", fmt.Errorf("parse browse path: %w", err)
	}
	u := base.ResolveReference(ref)
	q := u.Query()
	q.Set("ViewStyle", "list")
	q.Set("StatusFilter", "active_only")
	q.Set("SortFilterOptions", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.BrowsePath == "" {
		return fmt.Errorf("browse path cannot be empty")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DedupeCacheSize <= 0 {
		return fmt.Errorf("dedupe cache size must be positive")
	}
	if c.DatabaseURL == "" && c.DBPath == "" {
		return fmt.Errorf("db path cannot be empty without a database URL")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("smtp port must be between 1 and 65535")
	}
	if !c.DryRun {
		if c.SMTPUser == "" {
			return fmt.Errorf("smtp user cannot be empty")
		}
		if c.SMTPPass == "" {
			return fmt.Errorf("smtp password cannot be empty")
		}
		if c.EmailFrom == "" {
			return fmt.Errorf("email from address cannot be empty")
		}
		if c.EmailTo == "" {
			return fmt.Errorf("email to address cannot be empty")
		}
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "jsonl" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, jsonl, or dual")
	}

	return nil
}

// EnvString returns the named environment variable or fallback when unset
// or empty.
func EnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvInt returns the named environment variable parsed as an int, or
// fallback when unset or unparseable.
func EnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// EnvBool returns the named environment variable parsed as a bool, or
// fallback when unset or unparseable.
func EnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// EnvDuration returns the named environment variable parsed as a Go duration
// string, accepting a bare number as seconds, or fallback when unset or
// unparseable.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
