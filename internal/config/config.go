package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	Env         string

	SessionSecret string
	SecureCookies bool

	// ProviderTimeout bounds every call to the identity provider.
	ProviderTimeout  time.Duration
	RecentItemsLimit int

	Google struct {
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:       getenv("SERVER_PORT", "8080"),
		Env:              getenv("APP_ENV", "production"),
		ProviderTimeout:  10 * time.Second,
		RecentItemsLimit: 10,
	}

	var err error

	cfg.DatabaseURL, err = required("DATABASE_URL", err)
	cfg.SessionSecret, err = required("SESSION_SECRET", err)
	cfg.Google.ClientID, err = required("GOOGLE_CLIENT_ID", err)
	cfg.Google.ClientSecret, err = required("GOOGLE_CLIENT_SECRET", err)
	cfg.Google.RedirectURL = getenv("GOOGLE_REDIRECT_URL", "postmessage")

	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil || d <= 0 {
			err = multierr.Append(err, fmt.Errorf("PROVIDER_TIMEOUT must be a positive duration, got %q", v))
		} else {
			cfg.ProviderTimeout = d
		}
	}

	if v := os.Getenv("RECENT_ITEMS_LIMIT"); v != "" {
		n, perr := strconv.Atoi(v)
		if perr != nil || n <= 0 {
			err = multierr.Append(err, fmt.Errorf("RECENT_ITEMS_LIMIT must be a positive integer, got %q", v))
		} else {
			cfg.RecentItemsLimit = n
		}
	}

	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			err = multierr.Append(err, fmt.Errorf("SECURE_COOKIES must be a boolean, got %q", v))
		} else {
			cfg.SecureCookies = b
		}
	}

	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabaseURL is used by tooling that only talks to the database.
func LoadDatabaseURL() (string, error) {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL must be set")
	}

	return databaseURL, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func required(key string, errs error) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s must be set", key))
	}
	return v, errs
}
