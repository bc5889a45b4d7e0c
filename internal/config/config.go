package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries all runtime settings. Values come from the environment;
// malformed or missing required values are a startup failure, never a
// per-request condition.
type Config struct {
	HTTPAddr    string
	PostgresDSN string
	RedisAddr   string

	// Token settings.
	AuthSecret        string
	Issuer            string
	Audiences         []string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	RememberMeTTL     time.Duration
	RoleCacheTTL      time.Duration

	// Database pool.
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  time.Duration

	RequestTimeout time.Duration

	// FilesDir is where uploaded media lands on disk.
	FilesDir string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:        getEnv("WARD27_HTTP_ADDR", ":8080"),
		PostgresDSN:     getEnv("WARD27_PG_DSN", ""),
		RedisAddr:       getEnv("WARD27_REDIS_ADDR", ""),
		AuthSecret:      getEnv("WARD27_AUTH_SECRET", ""),
		Issuer:          getEnv("WARD27_AUTH_ISSUER", "ward27.org"),
		Audiences:       splitList(getEnv("WARD27_AUTH_AUDIENCES", "ward27.org")),
		AccessTokenTTL:  getDuration("WARD27_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getDuration("WARD27_REFRESH_TOKEN_TTL", 14*24*time.Hour),
		RememberMeTTL:   getDuration("WARD27_REMEMBER_ME_TTL", 60*24*time.Hour),
		RoleCacheTTL:    getDuration("WARD27_ROLE_CACHE_TTL", 5*time.Minute),
		DBMaxOpenConns:  getInt("WARD27_DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:  getInt("WARD27_DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLife:   getDuration("WARD27_DB_CONN_MAX_LIFE", 30*time.Minute),
		RequestTimeout:  getDuration("WARD27_REQUEST_TIMEOUT", 10*time.Second),
		FilesDir:        getEnv("WARD27_FILES_DIR", "data/uploads"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PostgresDSN == "" {
		return errors.New("config: WARD27_PG_DSN is required")
	}
	if len(c.AuthSecret) < 32 {
		return errors.New("config: WARD27_AUTH_SECRET is required and must be at least 32 characters")
	}
	if strings.TrimSpace(c.Issuer) == "" {
		return errors.New("config: WARD27_AUTH_ISSUER must not be empty")
	}
	if len(c.Audiences) == 0 {
		return errors.New("config: WARD27_AUTH_AUDIENCES must name at least one audience")
	}
	if c.RememberMeTTL < c.RefreshTokenTTL {
		return fmt.Errorf("config: remember-me TTL %s must not be shorter than the default refresh TTL %s",
			c.RememberMeTTL, c.RefreshTokenTTL)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
