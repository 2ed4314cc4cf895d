package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Package is one entry in the coaching package catalog. The outcome
// detection stage matches discussed or purchased offers against this list.
type Package struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

type Config struct {
	Port            int
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string

	// Completion client tuning.
	LLMMaxAttempts int
	LLMTimeout     time.Duration

	// Batch driver tuning.
	BatchSize  int
	BatchPause time.Duration
	ExportDir  string

	// Optional integrations.
	NatsURL       string
	NatsToken     string
	SlackBotToken string
	SlackChannel  string

	Catalog []Package
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present, never overriding real env vars.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:            envInt("CALIPER_PORT", 8760),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("CALIPER_MODEL", "claude-sonnet-4-20250514"),
		LLMMaxAttempts:  envInt("LLM_MAX_ATTEMPTS", 3),
		LLMTimeout:      time.Duration(envInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		BatchSize:       envInt("CALIPER_BATCH_SIZE", 5),
		BatchPause:      time.Duration(envInt("CALIPER_BATCH_PAUSE_SECONDS", 2)) * time.Second,
		ExportDir:       envStr("CALIPER_EXPORT_DIR", "exports"),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_COACHING_CHANNEL", ""),
		Catalog:         loadCatalog(envStr("CALIPER_CATALOG_FILE", "")),
	}
}

// DefaultCatalog is the built-in package catalog, used when no catalog file
// is configured or the configured file cannot be read.
func DefaultCatalog() []Package {
	return []Package{
		{Name: "Foundations Reset", Price: 2500, Description: "8-week guided program rebuilding communication basics"},
		{Name: "Marriage Intensive", Price: 5800, Description: "12-week one-on-one coaching with weekly calls"},
		{Name: "Private Transformation", Price: 9500, Description: "6-month private coaching with on-demand support"},
	}
}

func loadCatalog(path string) []Package {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultCatalog()
	}
	var pkgs []Package
	if err := json.Unmarshal(data, &pkgs); err != nil || len(pkgs) == 0 {
		return DefaultCatalog()
	}
	return pkgs
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
