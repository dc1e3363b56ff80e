package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Flip admin API
	BaseURL     string
	RefreshPath string

	// Credential refresh
	RefreshToken    string
	AppPlatform     string
	WebVersion      string
	DeviceFP        string
	FlipinatorTools string
	TokenFile       string

	// HTTP
	HTTPTimeout time.Duration

	// Pagination
	PageSize int

	// Acceptance pipeline
	BatchSize    int
	BatchDelay   time.Duration
	AcceptTarget int
	SubmitScope  string // "run" or "brand"

	// Eligibility
	PolicyProfile      string // "inventory", "completeness" or "hybrid"
	MinInventory       int
	InventoryInclusive bool

	// Brand selection
	BrandPresets                []string
	RequireIntegrationCompleted bool

	// Variant listing endpoint shape
	VariantsEndpoint string // "paged" or "detailed"

	// Run summary store (disabled when empty)
	RunsDBPath string

	// Environment
	Env      string
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file if present
	godotenv.Load()

	cfg := &Config{
		BaseURL:                     getEnv("BASE_URL", ""),
		RefreshPath:                 getEnv("REFRESH_TOKEN_PATH", "/shop/auth/token/refresh/v1"),
		RefreshToken:                getEnv("REFRESH_TOKEN", ""),
		AppPlatform:                 getEnv("APP_PLATFORM", "web"),
		WebVersion:                  getEnv("WEB_VERSION", ""),
		DeviceFP:                    getEnv("DEVICE_FP", ""),
		FlipinatorTools:             getEnv("FLIPINATOR_TOOLS_TOKEN", ""),
		TokenFile:                   getEnv("ACCESS_TOKEN_FILE", "token.json"),
		HTTPTimeout:                 getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),
		PageSize:                    getEnvAsInt("PAGE_SIZE", 50),
		BatchSize:                   getEnvAsInt("BATCH_SIZE", 30),
		BatchDelay:                  getEnvAsDuration("BATCH_DELAY", time.Second),
		AcceptTarget:                getEnvAsInt("ACCEPT_TARGET", 0),
		SubmitScope:                 getEnv("SUBMIT_SCOPE", "run"),
		PolicyProfile:               getEnv("POLICY_PROFILE", "hybrid"),
		MinInventory:                getEnvAsInt("MIN_INVENTORY", 6),
		InventoryInclusive:          getEnvAsBool("MIN_INVENTORY_INCLUSIVE", false),
		BrandPresets:                getEnvAsList("BRAND_PRESETS", "shopify"),
		RequireIntegrationCompleted: getEnvAsBool("REQUIRE_INTEGRATION_COMPLETED", false),
		VariantsEndpoint:            getEnv("VARIANTS_ENDPOINT", "paged"),
		RunsDBPath:                  getEnv("RUNS_DB_PATH", ""),
		Env:                         getEnv("ENV", "development"),
		LogLevel:                    getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if c.RefreshToken == "" {
		return fmt.Errorf("REFRESH_TOKEN is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	switch c.SubmitScope {
	case "run", "brand":
	default:
		return fmt.Errorf("SUBMIT_SCOPE must be \"run\" or \"brand\", got %q", c.SubmitScope)
	}
	switch c.PolicyProfile {
	case "inventory", "completeness", "hybrid":
	default:
		return fmt.Errorf("POLICY_PROFILE must be \"inventory\", \"completeness\" or \"hybrid\", got %q", c.PolicyProfile)
	}
	switch c.VariantsEndpoint {
	case "paged", "detailed":
	default:
		return fmt.Errorf("VARIANTS_ENDPOINT must be \"paged\" or \"detailed\", got %q", c.VariantsEndpoint)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
