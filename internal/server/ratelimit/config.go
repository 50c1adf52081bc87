package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig builds the limiter configuration. enabled and generatePerHour
// come from the process config; the default tier, cleanup interval and the
// allow/deny lists are read from RATE_LIMIT_* environment variables.
func LoadConfig(enabled bool, generatePerHour int) *Config {
	if !enabled {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(generatePerHour),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific tiers. A non-positive
// generatePerHour leaves report generation unlimited.
func DefaultEndpointConfigs(generatePerHour int) []EndpointConfig {
	write := func(path, method string) EndpointConfig {
		return EndpointConfig{Path: path, Method: method, Limit: 100, Window: time.Minute, Burst: 10}
	}
	return []EndpointConfig{
		// Tier 1: starting a briefing run
		{Path: "/api/reports/generate", Method: "POST", Limit: generatePerHour, Window: time.Hour, Burst: 2},

		// Tier 2: writes
		write("/api/sources", "POST"),
		write("/api/sources/", "DELETE"),
		write("/api/settings", "POST"),
		write("/api/schedules", "POST"),
		write("/api/schedules/", "PUT"),
		write("/api/schedules/", "DELETE"),
		write("/api/reports/", "DELETE"),

		// Tier 3: reads use the default limit
		// Tier 4: health and the status stream are unlimited, see MatchEndpoint
	}
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
