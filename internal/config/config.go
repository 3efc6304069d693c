package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	HoldTTL           time.Duration
	HoldReapInterval  time.Duration
	PaymentAPIBase    string
	PaymentAPIKey     string
	AMQPURL           string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for validating caller identity tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", "15m")
	if err != nil {
		return nil, err
	}

	// Slot hold TTL: how long an in-flight booking attempt may keep a slot
	// reserved before it is treated as abandoned.
	cfg.HoldTTL, err = getEnvAsDuration("HOLD_TTL", "10m")
	if err != nil {
		return nil, err
	}

	// How often the background sweep deletes expired holds.
	cfg.HoldReapInterval, err = getEnvAsDuration("HOLD_REAP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}

	// Payment processor API credentials are required: no checkout without them.
	cfg.PaymentAPIBase = getEnv("PAYMENT_API_BASE", "https://api.payments.example.com")
	cfg.PaymentAPIKey = os.Getenv("PAYMENT_API_KEY")
	if cfg.PaymentAPIKey == "" {
		return nil, fmt.Errorf("PAYMENT_API_KEY is required")
	}

	// Broker URL for audit events (optional: falls back to log-only emitter).
	cfg.AMQPURL = getEnv("AMQP_URL", "")

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a time.Duration.
// It returns an error if the variable is set but does not parse.
func getEnvAsDuration(key, defaultValue string) (time.Duration, error) {
	valStr := getEnv(key, defaultValue)
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return d, nil
}
