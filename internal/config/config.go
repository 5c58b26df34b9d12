// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseURL is the service address used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// Config holds the resolved configuration.
type Config struct {
	// Service settings
	BaseURL string `json:"base_url"`

	// Credentials (env or keyring only, never persisted to file)
	APIKeyA string `json:"-"`
	APIKeyB string `json:"-"`

	// Fixture settings
	ScratchDir string `json:"scratch_dir"`

	// Output settings
	Format string `json:"format"`

	// Behavior settings
	NoKeyring bool `json:"-"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	BaseURL    string
	ScratchDir string
	Format     string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		BaseURL:    DefaultBaseURL,
		ScratchDir: ".apicheck",
		Format:     "auto",
		Sources:    make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > global > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, globalConfigPath(), SourceGlobal)
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	if v, ok := fileCfg["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(source)
	}
	if v, ok := fileCfg["scratch_dir"].(string); ok && v != "" {
		cfg.ScratchDir = v
		cfg.Sources["scratch_dir"] = string(source)
	}
	if v, ok := fileCfg["format"].(string); ok && v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(source)
	}
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("APICHECK_BASE_URL"); v != "" {
		cfg.BaseURL = v
		cfg.Sources["base_url"] = string(SourceEnv)
	}
	if v := os.Getenv("APICHECK_API_KEY_A"); v != "" {
		cfg.APIKeyA = v
		cfg.Sources["api_key_a"] = string(SourceEnv)
	}
	if v := os.Getenv("APICHECK_API_KEY_B"); v != "" {
		cfg.APIKeyB = v
		cfg.Sources["api_key_b"] = string(SourceEnv)
	}
	if v := os.Getenv("APICHECK_SCRATCH_DIR"); v != "" {
		cfg.ScratchDir = v
		cfg.Sources["scratch_dir"] = string(SourceEnv)
	}
	if v := os.Getenv("APICHECK_NO_KEYRING"); v != "" {
		cfg.NoKeyring = true
		cfg.Sources["no_keyring"] = string(SourceEnv)
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
		cfg.Sources["base_url"] = string(SourceFlag)
	}
	if o.ScratchDir != "" {
		cfg.ScratchDir = o.ScratchDir
		cfg.Sources["scratch_dir"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "apicheck")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
