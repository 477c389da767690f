package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Redis (event transport)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Stripe
	StripeAPIKey        string
	StripeWebhookSecret string

	// Airtable
	AirtableAPIKey  string
	AirtableBaseID  string
	AirtableTimeout time.Duration

	// Receipt page capture
	ReceiptFetchTimeout time.Duration

	// Object storage (attachment publisher)
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKeyID   string
	S3SecretKey     string
	S3PublicBaseURL string
	S3Timeout       time.Duration

	// Renderer assets
	TicketBackgroundPath string
	TicketFontPath       string

	// Poller
	PollInterval time.Duration
	PollEnabled  bool
}

// Load reads .env when present and falls back to process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		StripeAPIKey:        getEnv("STRIPE_API_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		AirtableAPIKey:  getEnv("AIRTABLE_API_KEY", ""),
		AirtableBaseID:  getEnv("AIRTABLE_BASE_ID", ""),
		AirtableTimeout: getEnvAsDuration("AIRTABLE_TIMEOUT", "30s"),

		ReceiptFetchTimeout: getEnvAsDuration("RECEIPT_FETCH_TIMEOUT", "10s"),

		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        getEnv("S3_REGION", "eu-central-1"),
		S3Bucket:        getEnv("S3_BUCKET", "event-tickets"),
		S3AccessKeyID:   getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:     getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		S3Timeout:       getEnvAsDuration("S3_TIMEOUT", "30s"),

		TicketBackgroundPath: getEnv("TICKET_BACKGROUND_PATH", "assets/ticket_background.png"),
		TicketFontPath:       getEnv("TICKET_FONT_PATH", ""),

		PollInterval: getEnvAsDuration("STRIPE_POLL_INTERVAL", "10m"),
		PollEnabled:  getEnvAsBool("STRIPE_POLL_ENABLED", false),
	}

	if cfg.AirtableAPIKey == "" {
		return nil, fmt.Errorf("AIRTABLE_API_KEY is required")
	}
	if cfg.AirtableBaseID == "" {
		return nil, fmt.Errorf("AIRTABLE_BASE_ID is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key, fallback string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		value = fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		parsed, _ = time.ParseDuration(fallback)
	}
	return parsed
}
