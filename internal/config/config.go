package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL        string
	ListenAddr         string
	FrontendURL        string
	JWTSecret          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	EncryptionKey      string // age X25519 identity; generated at startup when empty
	CredentialsFile    string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	MetaAppID          string
	MetaAppSecret      string
	MetaRedirectURL    string
	LogLevel           string
	LogFormat          string
	RateLimitPerMinute int
	OAuthStateTTL      time.Duration
	StateSweepInterval time.Duration
	HTTPClientTimeout  time.Duration
	ShutdownTimeout    time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY is required")
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		ListenAddr:         getEnv("LISTEN_ADDR", ":5000"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:          jwtSecret,
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		CredentialsFile:    getEnv("CREDENTIALS_FILE", "credentials.json"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:5000/api/integrations/google/callback"),
		MetaAppID:          os.Getenv("META_APP_ID"),
		MetaAppSecret:      os.Getenv("META_APP_SECRET"),
		MetaRedirectURL:    getEnv("META_REDIRECT_URL", "http://localhost:5000/api/integrations/meta/callback"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OAuthStateTTL, err = getDuration("OAUTH_STATE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.StateSweepInterval, err = getDuration("STATE_SWEEP_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HTTPClientTimeout, err = getDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Warnings lists optional settings that are missing. The server still starts,
// but the affected integration will not work.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
		warnings = append(warnings, "GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set, Google Analytics will not work")
	}
	if c.MetaAppID == "" || c.MetaAppSecret == "" {
		warnings = append(warnings, "META_APP_ID or META_APP_SECRET not set, Meta Ads will not work")
	}
	if c.EncryptionKey == "" {
		warnings = append(warnings, "ENCRYPTION_KEY not set, a new key will be generated and stored credentials will be unreadable after restart")
	}
	return warnings
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
