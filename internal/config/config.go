package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client (outbound: Supabase + webhooks)
	HTTPTimeout time.Duration

	// Supabase (remote persistence for client records)
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Session tokens (minted by Supabase Auth, validated here)
	JWTSecret string

	// Per-owner client mirror eviction
	StoreTTL time.Duration

	// Settings blob
	SQLitePath string

	// Integration webhooks
	WebhookMaxRetries     int
	WebhookInitialBackoff time.Duration
	WebhookMaxConcurrency int
	WebhookTimeout        time.Duration

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),

		StoreTTL: getEnvDuration("STORE_TTL", 30*time.Minute),

		SQLitePath: getEnv("SQLITE_PATH", "crm_settings.db"),

		WebhookMaxRetries:     getEnvInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookInitialBackoff: getEnvDuration("WEBHOOK_INITIAL_BACKOFF", 200*time.Millisecond),
		WebhookMaxConcurrency: getEnvInt("WEBHOOK_MAX_CONCURRENCY", 8),
		WebhookTimeout:        getEnvDuration("WEBHOOK_TIMEOUT", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
