package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		APIBaseURL:        "http://localhost:8000",
		HTTPTimeout:       30 * time.Second,
		StateDBPath:       filepath.Join(t.TempDir(), "fintrack.db"),
		LoginCallbackPort: "8085",
		ProxyPort:         "8090",
		AssetOrigin:       "http://localhost:5173",
		CacheVersion:      1,
		HotCacheSize:      256,
		HotCacheTTL:       5 * time.Minute,
		RevalidateRPS:     5,
		UpstreamTimeout:   15 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "invalid API URL scheme",
			mutate:      func(c *Config) { c.APIBaseURL = "ftp://localhost:8000" },
			wantErr:     true,
			errorString: "invalid API URL scheme 'ftp': must be 'http' or 'https'",
		},
		{
			name:        "API URL missing host",
			mutate:      func(c *Config) { c.APIBaseURL = "http://" },
			wantErr:     true,
			errorString: "missing host",
		},
		{
			name:        "invalid proxy port - non-numeric",
			mutate:      func(c *Config) { c.ProxyPort = "abc" },
			wantErr:     true,
			errorString: "invalid proxy port 'abc': must be a number",
		},
		{
			name:        "invalid proxy port - out of range",
			mutate:      func(c *Config) { c.ProxyPort = "70000" },
			wantErr:     true,
			errorString: "invalid proxy port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid login callback port",
			mutate:      func(c *Config) { c.LoginCallbackPort = "0" },
			wantErr:     true,
			errorString: "invalid login callback port 0: must be between 1 and 65535",
		},
		{
			name:        "empty state db path",
			mutate:      func(c *Config) { c.StateDBPath = "" },
			wantErr:     true,
			errorString: "state database path cannot be empty",
		},
		{
			name:        "invalid cache version",
			mutate:      func(c *Config) { c.CacheVersion = 0 },
			wantErr:     true,
			errorString: "invalid cache version 0: must be at least 1",
		},
		{
			name:        "hot cache size too small",
			mutate:      func(c *Config) { c.HotCacheSize = 0 },
			wantErr:     true,
			errorString: "invalid hot cache size 0: must be at least 1",
		},
		{
			name:        "hot cache size too large",
			mutate:      func(c *Config) { c.HotCacheSize = 200000 },
			wantErr:     true,
			errorString: "invalid hot cache size 200000: must be at most 100000",
		},
		{
			name:        "hot cache TTL too small",
			mutate:      func(c *Config) { c.HotCacheTTL = 100 * time.Millisecond },
			wantErr:     true,
			errorString: "must be at least 1 second",
		},
		{
			name:        "revalidate rate too small",
			mutate:      func(c *Config) { c.RevalidateRPS = 0 },
			wantErr:     true,
			errorString: "invalid revalidate rate 0: must be at least 1 per second",
		},
		{
			name:        "HTTP timeout too small",
			mutate:      func(c *Config) { c.HTTPTimeout = 0 },
			wantErr:     true,
			errorString: "invalid HTTP timeout",
		},
		{
			name:        "upstream timeout too small",
			mutate:      func(c *Config) { c.UpstreamTimeout = 0 },
			wantErr:     true,
			errorString: "invalid upstream timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error=%v, wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr && tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error=%q, want it to contain %q", err.Error(), tt.errorString)
			}
		})
	}
}

// Validate only inspects values; creating the state directory is the store's
// job when it opens the database.
func TestConfig_ValidateDoesNotTouchFilesystem(t *testing.T) {
	cfg := validConfig(t)
	cfg.StateDBPath = filepath.Join(t.TempDir(), "nested", "state", "fintrack.db")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error=%v", err)
	}
	if _, err := os.Stat(filepath.Dir(cfg.StateDBPath)); !os.IsNotExist(err) {
		t.Fatalf("Validate() created the state directory")
	}
}

func TestConfig_ValidateAccumulatesErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.ProxyPort = "abc"
	cfg.CacheVersion = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"invalid proxy port", "invalid cache version"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestConfig_CacheName(t *testing.T) {
	cfg := Config{CacheVersion: 3}
	if got := cfg.CacheName(); got != "static-v3" {
		t.Errorf("CacheName()=%q, want static-v3", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.APIBaseURL == "" || cfg.AssetOrigin == "" {
		t.Fatalf("Load() returned empty endpoints: %+v", cfg)
	}
	if cfg.CacheVersion < 1 {
		t.Fatalf("Load() cache version=%d", cfg.CacheVersion)
	}
}
