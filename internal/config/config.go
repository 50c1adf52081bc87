// Package config provides configuration loading and validation for the service and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when neither the environment nor a config file sets a value.
const (
	DefaultPort             = 8000
	DefaultTimezone         = "Australia/Sydney"
	DefaultLLMProvider      = "openai"
	DefaultLocalLLMURL      = "http://host.docker.internal:8080/v1"
	DefaultSearchProvider   = "duckduckgo"
	DefaultFetchTimeout     = 60 * time.Second
	DefaultSearchTimeout    = 15 * time.Second
	DefaultExpansionTimeout = 5 * time.Minute
	DefaultRedisStatusKey   = "luxprima:status"
	DefaultKafkaTopic       = "luxprima.reports"
	DefaultGeneratePerHour  = 10
)

// Config holds the service configuration. Values come from the environment and
// may be overridden field by field from a JSON file.
type Config struct {
	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// HTTP
	Port                int  `json:"port,omitempty"`
	RateLimitEnabled    bool `json:"rate_limit_enabled,omitempty"`
	GenerateLimitPerHr  int  `json:"generate_limit_per_hour,omitempty"`
	RequireAuthForWrite bool `json:"require_auth,omitempty"` // Enforced only when JWT_SECRET is set

	// Time
	Timezone string `json:"timezone,omitempty"` // IANA zone for schedules and report titles

	// Generation backend
	LLMProvider  string `json:"llm_provider,omitempty"` // openai | gemini | local
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	LocalLLMURL  string `json:"local_llm_url,omitempty"`

	// Research
	SearchProvider     string        `json:"search_provider,omitempty"` // duckduckgo | google
	GoogleSearchAPIKey string        `json:"google_search_api_key,omitempty"`
	GoogleSearchCX     string        `json:"google_search_cx,omitempty"`
	UseBrowser         bool          `json:"use_browser,omitempty"` // Headless browser fallback for script-rendered pages
	FetchTimeout       time.Duration `json:"-"`
	SearchTimeout      time.Duration `json:"-"`
	ExpansionTimeout   time.Duration `json:"-"`

	// Status mirror and report events; empty disables them
	RedisAddr      string   `json:"redis_addr,omitempty"`
	RedisStatusKey string   `json:"redis_status_key,omitempty"`
	KafkaBrokers   []string `json:"kafka_brokers,omitempty"`
	KafkaTopic     string   `json:"kafka_topic,omitempty"`
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Timezone:            envOr("APP_TIMEZONE", DefaultTimezone),
		LLMProvider:         strings.ToLower(envOr("LLM_PROVIDER", DefaultLLMProvider)),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		LocalLLMURL:         envOr("LOCAL_LLM_URL", DefaultLocalLLMURL),
		SearchProvider:      strings.ToLower(envOr("SEARCH_PROVIDER", DefaultSearchProvider)),
		GoogleSearchAPIKey:  os.Getenv("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchCX:      os.Getenv("GOOGLE_SEARCH_CX"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisStatusKey:      envOr("REDIS_STATUS_KEY", DefaultRedisStatusKey),
		KafkaTopic:          envOr("KAFKA_TOPIC", DefaultKafkaTopic),
		RequireAuthForWrite: os.Getenv("JWT_SECRET") != "",
	}

	var err error
	if cfg.Port, err = envInt("PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.GenerateLimitPerHr, err = envInt("RATE_LIMIT_GENERATE_PER_HOUR", DefaultGeneratePerHour); err != nil {
		return nil, err
	}
	if cfg.UseBrowser, err = envBool("USE_BROWSER", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitEnabled, err = envBool("RATE_LIMIT_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", DefaultFetchTimeout); err != nil {
		return nil, err
	}
	if cfg.SearchTimeout, err = envDuration("SEARCH_TIMEOUT", DefaultSearchTimeout); err != nil {
		return nil, err
	}
	if cfg.ExpansionTimeout, err = envDuration("EXPANSION_TIMEOUT", DefaultExpansionTimeout); err != nil {
		return nil, err
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.GenerateLimitPerHr < 0 {
		return fmt.Errorf("config error: 'generate_limit_per_hour' must be non-negative")
	}

	switch c.LLMProvider {
	case "openai", "gemini", "local":
	default:
		return fmt.Errorf("config error: unknown llm_provider %q", c.LLMProvider)
	}

	switch c.SearchProvider {
	case "duckduckgo":
	case "google":
		if c.GoogleSearchAPIKey == "" || c.GoogleSearchCX == "" {
			return fmt.Errorf("config error: google search requires GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX")
		}
	default:
		return fmt.Errorf("config error: unknown search_provider %q", c.SearchProvider)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config error: invalid timezone %q: %w", c.Timezone, err)
	}

	return nil
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// A config file loaded with LoadConfig is merged over the environment this way.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.GenerateLimitPerHr == 0 {
		result.GenerateLimitPerHr = defaults.GenerateLimitPerHr
	}
	if result.Timezone == "" {
		result.Timezone = defaults.Timezone
	}
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.LocalLLMURL == "" {
		result.LocalLLMURL = defaults.LocalLLMURL
	}
	if result.SearchProvider == "" {
		result.SearchProvider = defaults.SearchProvider
	}
	if result.GoogleSearchAPIKey == "" {
		result.GoogleSearchAPIKey = defaults.GoogleSearchAPIKey
	}
	if result.GoogleSearchCX == "" {
		result.GoogleSearchCX = defaults.GoogleSearchCX
	}
	if result.RedisAddr == "" {
		result.RedisAddr = defaults.RedisAddr
	}
	if result.RedisStatusKey == "" {
		result.RedisStatusKey = defaults.RedisStatusKey
	}
	if len(result.KafkaBrokers) == 0 {
		result.KafkaBrokers = defaults.KafkaBrokers
	}
	if result.KafkaTopic == "" {
		result.KafkaTopic = defaults.KafkaTopic
	}

	// Durations are env-only
	result.FetchTimeout = defaults.FetchTimeout
	result.SearchTimeout = defaults.SearchTimeout
	result.ExpansionTimeout = defaults.ExpansionTimeout

	// Bool fields: cannot distinguish unset from false, so true on either side wins
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.RateLimitEnabled = result.RateLimitEnabled || defaults.RateLimitEnabled
	result.RequireAuthForWrite = result.RequireAuthForWrite || defaults.RequireAuthForWrite

	return result
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %v", key, err)
	}
	return b, nil
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
