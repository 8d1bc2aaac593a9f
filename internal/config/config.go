package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all lunarmonkeys configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	UI      UIConfig      `yaml:"ui"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BackendConfig configures the Remote Data Service (Manifest).
type BackendConfig struct {
	URL            string `yaml:"url"`
	RequestTimeout string `yaml:"request_timeout"` // empty = no timeout

	AuthEntity          string `yaml:"auth_entity"`
	PrimateCollection   string `yaml:"primate_collection"`
	DiscoveryCollection string `yaml:"discovery_collection"`
}

// SessionConfig configures where the session token is kept between runs.
type SessionConfig struct {
	TokenPath string `yaml:"token_path"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:                 "http://localhost:1111",
			AuthEntity:          "users",
			PrimateCollection:   "astro-primates",
			DiscoveryCollection: "discoveries",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme: ThemeAuto,
		},
	}
}

// Dir returns the per-user configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lunarmonkeys"
	}
	return filepath.Join(home, ".lunarmonkeys")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load loads configuration from a YAML file.
// A missing file yields defaults (with env overrides applied).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if u := os.Getenv("LUNAR_BACKEND_URL"); u != "" {
		c.Backend.URL = u
	}
	if p := os.Getenv("LUNAR_TOKEN_PATH"); p != "" {
		c.Session.TokenPath = p
	}
	if addr := os.Getenv("LUNAR_METRICS_ADDR"); addr != "" {
		c.Metrics.ListenAddr = addr
	}
	if os.Getenv("LUNAR_DARK_MODE") == "1" {
		c.UI.Theme = ThemeDark
	}
	if os.Getenv("LUNAR_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend.url: missing host")
	}
	if c.Backend.RequestTimeout != "" {
		if _, err := time.ParseDuration(c.Backend.RequestTimeout); err != nil {
			return fmt.Errorf("backend.request_timeout: %w", err)
		}
	}
	switch c.UI.Theme {
	case "", ThemeAuto, ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("ui.theme: unknown theme %q", c.UI.Theme)
	}
	return nil
}

// BackendURL returns the backend base URL without a trailing slash.
func (c *Config) BackendURL() string {
	return strings.TrimRight(c.Backend.URL, "/")
}

// AdminURL returns the Manifest admin panel URL.
func (c *Config) AdminURL() string {
	return c.BackendURL() + "/admin"
}

// GetRequestTimeout returns the per-request timeout; zero means none.
func (c *Config) GetRequestTimeout() time.Duration {
	if c.Backend.RequestTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Backend.RequestTimeout)
	if err != nil {
		return 0
	}
	return d
}

// GetTokenPath returns the session token file path.
func (c *Config) GetTokenPath() string {
	if c.Session.TokenPath != "" {
		return c.Session.TokenPath
	}
	return filepath.Join(Dir(), "session.json")
}

// GetLogsDir returns the directory for category log files.
func (c *Config) GetLogsDir() string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	return filepath.Join(Dir(), "logs")
}
