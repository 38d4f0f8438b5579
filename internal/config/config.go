package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven configuration.
type Config struct {
	Clio struct {
		ClientID     string
		ClientSecret string
		RedirectURL  string
		AccessToken  string // optional pre-supplied token, bypasses the login flow
		BaseURL      string // default: https://app.clio.com
		Sandbox      bool   // serve placeholder responses instead of calling the API
	}
	MySQL struct {
		DSN string // e.g., user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
	}
	Sync struct {
		Timezone string // e.g., UTC (default), Europe/Berlin
	}
}

// Load reads configuration from environment variables. A .env file in the
// working directory is merged in first, without overriding the real
// environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	cfg.Clio.ClientID = os.Getenv("CLIO_CLIENT_ID")
	cfg.Clio.ClientSecret = os.Getenv("CLIO_CLIENT_SECRET")
	cfg.Clio.RedirectURL = os.Getenv("CLIO_REDIRECT_URL")
	cfg.Clio.AccessToken = os.Getenv("CLIO_ACCESS_TOKEN")
	cfg.Clio.BaseURL = os.Getenv("CLIO_BASE_URL")
	if cfg.Clio.BaseURL == "" {
		cfg.Clio.BaseURL = "https://app.clio.com"
	}
	if sb := os.Getenv("CLIO_SANDBOX"); sb != "" {
		v, err := strconv.ParseBool(sb)
		if err != nil {
			return cfg, errors.New("CLIO_SANDBOX must be a boolean")
		}
		cfg.Clio.Sandbox = v
	}

	// Sandbox mode needs no credentials. Real mode needs either a
	// pre-supplied token or a client ID/secret pair for the login flow.
	if !cfg.Clio.Sandbox && cfg.Clio.AccessToken == "" {
		if cfg.Clio.ClientID == "" || cfg.Clio.ClientSecret == "" {
			return cfg, errors.New("CLIO_ACCESS_TOKEN or CLIO_CLIENT_ID/CLIO_CLIENT_SECRET is required")
		}
	}

	cfg.MySQL.DSN = os.Getenv("MYSQL_DSN")
	if cfg.MySQL.DSN == "" {
		return cfg, errors.New("MYSQL_DSN is required")
	}

	cfg.Sync.Timezone = os.Getenv("SYNC_TZ")
	if cfg.Sync.Timezone == "" {
		cfg.Sync.Timezone = "UTC"
	}

	return cfg, nil
}
