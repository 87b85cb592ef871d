package config

import (
	"os"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Location metadata surfaced by /health and /services.
	LocationName string

	// Meevo upstream configuration. Credentials are per-tenant and
	// process-wide; the service targets a single location.
	MeevoAuthURL      string
	MeevoAPIURL       string
	MeevoClientID     string
	MeevoClientSecret string
	MeevoTenantID     string
	MeevoLocationID   string
	MeevoGenderCode   string
	MeevoHTTPTimeout  time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "3000"),
		Env:       getEnv("ENV", "production"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		LocationName: getEnv("LOCATION_NAME", "Phoenix Encanto"),

		MeevoAuthURL:      getEnv("MEEVO_AUTH_URL", "https://marketplace.meevo.com/oauth2/token"),
		MeevoAPIURL:       getEnv("MEEVO_API_URL", "https://na1pub.meevo.com/publicapi/v1"),
		MeevoClientID:     getEnv("MEEVO_CLIENT_ID", ""),
		MeevoClientSecret: getEnv("MEEVO_CLIENT_SECRET", ""),
		MeevoTenantID:     getEnv("MEEVO_TENANT_ID", "200507"),
		MeevoLocationID:   getEnv("MEEVO_LOCATION_ID", "201664"),
		MeevoGenderCode:   getEnv("MEEVO_GENDER_CODE", "2035"),
		MeevoHTTPTimeout:  getEnvAsDuration("MEEVO_HTTP_TIMEOUT", 15*time.Second),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated environment variable, dropping
// empty entries.
func getEnvAsSlice(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
