package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load reads an optional .env file into the process environment and parses
// the configuration from it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found (ok in prod)")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" && cfg.Environment.IsDevelopment() {
		cfg.Auth.JWTSecret = DevJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// DevJWTSecret signs tokens in development when AUTH_JWT_SECRET is unset.
// It is refused in every other environment.
const DevJWTSecret = "dev-secret-change-me"

// Currencies whose minor unit is not a hundredth. Amounts are exchanged with
// providers in cents, so the store cannot sell in these.
var nonCentCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true,
	"JPY": true, "KMF": true, "KRW": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true, "BHD": true, "IQD": true, "JOD": true, "KWD": true,
	"LYD": true, "OMR": true, "TND": true,
}

var (
	ErrWeakJWTSecret        = errors.New("AUTH_JWT_SECRET must be set outside development")
	ErrMissingWebhookSecret = errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	ErrUnsupportedCurrency  = errors.New("STORE_CURRENCY must be a three-letter currency with two decimal places")
)

func (c *Config) Validate() error {
	if !c.Environment.IsDevelopment() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret) {
		return ErrWeakJWTSecret
	}
	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return ErrMissingWebhookSecret
	}
	currency := strings.ToUpper(c.Currency)
	if len(currency) != 3 || strings.Trim(currency, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" || nonCentCurrencies[currency] {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, c.Currency)
	}
	return nil
}

// NewLogger builds the process logger from the Log section.
func NewLogger(l Log) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(l.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
