package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the auth service
type Config struct {
	AppMode string
	Port    string
	Shards  []ShardSpec
	JWT     JWTConfig
	Cookie  CookieConfig
	Audit   AuditConfig
}

// ShardSpec describes one region-scoped database partition
type ShardSpec struct {
	ID      string
	Name    string
	DSN     string
	Regions []string
}

// JWTConfig holds signing secrets per token family. Each family has its own
// secret so compromise of one does not compromise the others.
type JWTConfig struct {
	Issuer                  string
	AccessSecret            string
	EmailVerificationSecret string
	PasswordResetSecret     string
}

// CookieConfig holds refresh cookie configuration
type CookieConfig struct {
	Secure bool
	Domain string
	Path   string
}

// AuditConfig holds login history retention settings
type AuditConfig struct {
	RetentionDays int
}

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	retentionDays, _ := strconv.Atoi(getEnv("LOGIN_HISTORY_RETENTION_DAYS", "90"))

	config := &Config{
		AppMode: appMode,
		Port:    getEnv("PORT", "3001"),
		Shards:  loadShardConfig(),
		JWT:     loadJWTConfig(appMode),
		Cookie:  loadCookieConfig(appMode),
		Audit:   AuditConfig{RetentionDays: retentionDays},
	}

	log.Printf("✅ Configuration loaded successfully [MODE: %s, SHARDS: %d]", appMode, len(config.Shards))
	return config, nil
}

// loadShardConfig loads the region partition map. The first shard is the
// fallback for unknown regions.
func loadShardConfig() []ShardSpec {
	return []ShardSpec{
		{
			ID:      "SHARD_A",
			Name:    "US-West & Canada",
			DSN:     getEnv("SHARD_A_DSN", "root:@tcp(localhost:3306)/instanteats_shard_a?charset=utf8mb4&parseTime=True&loc=Local"),
			Regions: splitCSV(getEnv("SHARD_A_REGIONS", "us-west,ca,california,washington,oregon,nevada,arizona,utah,colorado")),
		},
		{
			ID:      "SHARD_B",
			Name:    "US-East & Central",
			DSN:     getEnv("SHARD_B_DSN", "root:@tcp(localhost:3307)/instanteats_shard_b?charset=utf8mb4&parseTime=True&loc=Local"),
			Regions: splitCSV(getEnv("SHARD_B_REGIONS", "us-east,us-central,ny,texas,florida,illinois,ohio,pennsylvania,michigan")),
		},
		{
			ID:      "SHARD_C",
			Name:    "US-South & Mexico",
			DSN:     getEnv("SHARD_C_DSN", "root:@tcp(localhost:3308)/instanteats_shard_c?charset=utf8mb4&parseTime=True&loc=Local"),
			Regions: splitCSV(getEnv("SHARD_C_REGIONS", "us-south,mx,georgia,north-carolina,south-carolina,louisiana,mexico,caribbean")),
		},
	}
}

// loadJWTConfig loads per-family signing secrets based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return JWTConfig{
		Issuer:                  getEnv("JWT_ISSUER", "instant-eats"),
		AccessSecret:            getEnv(prefix+"JWT_ACCESS_SECRET", "access-secret-key-change-in-production-min-32-chars"),
		EmailVerificationSecret: getEnv(prefix+"JWT_EMAIL_SECRET", "email-secret-key-change-in-production"),
		PasswordResetSecret:     getEnv(prefix+"JWT_PASSWORD_RESET_SECRET", "password-reset-secret-change-in-production"),
	}
}

// loadCookieConfig loads refresh cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure: secure,
		Domain: getEnv("COOKIE_DOMAIN", ""),
		Path:   getEnv("COOKIE_PATH", "/api/v1/auth"),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://instant-eats.com"
	}
	return origins
}
