package config

import (
	"fmt"
	"os"
)

type Config struct {
	// Critvue marketplace API
	CritvueAPIBaseURL string
	CritvueAPIKey     string

	// Payment provider
	PaymentAPIBaseURL   string
	PaymentAPIKey       string
	PaymentWebhookToken string

	// Supabase
	SupabaseURL            string
	SupabasePublishableKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database (wizard funnel events)
	DatabaseURL string

	// Session store
	RedisURL string

	// Wizard flow variant: classic7, condensed5, revised7
	WizardFlow string

	// Server
	Port        string
	Environment string
	BaseURL     string
}

func Load() (*Config, error) {
	cfg := &Config{
		CritvueAPIBaseURL: getEnv("CRITVUE_API_BASE_URL", ""),
		CritvueAPIKey:     getEnv("CRITVUE_API_KEY", ""),

		PaymentAPIBaseURL:   getEnv("PAYMENT_API_BASE_URL", ""),
		PaymentAPIKey:       getEnv("PAYMENT_API_KEY", ""),
		PaymentWebhookToken: getEnv("PAYMENT_WEBHOOK_TOKEN", ""),

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabasePublishableKey: getEnv("SUPABASE_PUBLISHABLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "review-attachments"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		WizardFlow: getEnv("WIZARD_FLOW", "classic7"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CritvueAPIBaseURL == "" {
		return fmt.Errorf("CRITVUE_API_BASE_URL is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabasePublishableKey == "" {
		return fmt.Errorf("SUPABASE_PUBLISHABLE_KEY is required")
	}
	if c.SupabaseJWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	switch c.WizardFlow {
	case "classic7", "condensed5", "revised7":
	default:
		return fmt.Errorf("WIZARD_FLOW must be one of classic7, condensed5, revised7, got %q", c.WizardFlow)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
