package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Backend API
	APIBaseURL  string
	HTTPTimeout time.Duration

	// Persisted client state (tokens, active workspace, theme)
	StateDBPath string

	// Login flow
	LoginCallbackPort string

	// Asset cache proxy
	ProxyPort       string
	AssetOrigin     string
	CacheVersion    int
	HotCacheSize    int
	HotCacheTTL     time.Duration
	RevalidateRPS   int
	UpstreamTimeout time.Duration
}

func Load() *Config {
	cfg := &Config{
		APIBaseURL:  getEnv("FINTRACK_API_URL", "http://localhost:8000"),
		HTTPTimeout: getEnvDuration("FINTRACK_HTTP_TIMEOUT", 30*time.Second),

		StateDBPath: getEnv("FINTRACK_STATE_DB", "./data/fintrack.db"),

		LoginCallbackPort: getEnv("FINTRACK_LOGIN_CALLBACK_PORT", "8085"),

		ProxyPort:       getEnv("PROXY_PORT", "8090"),
		AssetOrigin:     getEnv("ASSET_ORIGIN", "http://localhost:5173"),
		CacheVersion:    getEnvInt("CACHE_VERSION", 1),
		HotCacheSize:    getEnvInt("HOT_CACHE_SIZE", 256),
		HotCacheTTL:     getEnvDuration("HOT_CACHE_TTL", 5*time.Minute),
		RevalidateRPS:   getEnvInt("REVALIDATE_RPS", 5),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	for name, raw := range map[string]string{
		"API URL":      c.APIBaseURL,
		"asset origin": c.AssetOrigin,
	} {
		parsed, err := url.Parse(raw)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", name, raw, err))
			continue
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, parsed.Scheme))
		}
		if parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': missing host", name, raw))
		}
	}

	for name, raw := range map[string]string{
		"proxy port":          c.ProxyPort,
		"login callback port": c.LoginCallbackPort,
	} {
		if port, err := strconv.Atoi(raw); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be a number", name, raw))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, port))
		}
	}

	if c.StateDBPath == "" {
		errors = append(errors, "state database path cannot be empty")
	}

	if c.CacheVersion < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache version %d: must be at least 1", c.CacheVersion))
	}

	if c.HotCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid hot cache size %d: must be at least 1", c.HotCacheSize))
	} else if c.HotCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid hot cache size %d: must be at most 100000", c.HotCacheSize))
	}

	if c.HotCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid hot cache TTL %v: must be at least 1 second", c.HotCacheTTL))
	}

	if c.RevalidateRPS < 1 {
		errors = append(errors, fmt.Sprintf("invalid revalidate rate %d: must be at least 1 per second", c.RevalidateRPS))
	}

	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	}
	if c.UpstreamTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid upstream timeout %v: must be at least 1 second", c.UpstreamTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// CacheName returns the versioned asset cache name for this configuration.
func (c *Config) CacheName() string {
	return fmt.Sprintf("static-v%d", c.CacheVersion)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
