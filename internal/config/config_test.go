package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LUNAR_BACKEND_URL", "LUNAR_TOKEN_PATH", "LUNAR_METRICS_ADDR", "LUNAR_DARK_MODE", "LUNAR_DEBUG"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:1111", cfg.Backend.URL)
	assert.Equal(t, "users", cfg.Backend.AuthEntity)
	assert.Equal(t, "astro-primates", cfg.Backend.PrimateCollection)
	assert.Equal(t, "discoveries", cfg.Backend.DiscoveryCollection)
	assert.Equal(t, ThemeAuto, cfg.UI.Theme)
	assert.False(t, cfg.Logging.DebugMode)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend.URL = "https://moon.example.com"
	cfg.Backend.RequestTimeout = "15s"
	cfg.UI.Theme = ThemeDark
	cfg.Logging.Categories = map[string]bool{"api": false}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://moon.example.com", loaded.Backend.URL)
	assert.Equal(t, 15*time.Second, loaded.GetRequestTimeout())
	assert.Equal(t, ThemeDark, loaded.UI.Theme)
	assert.Equal(t, map[string]bool{"api": false}, loaded.Logging.Categories)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  url: http://10.0.0.5:1111\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:1111", cfg.Backend.URL)
	assert.Equal(t, "astro-primates", cfg.Backend.PrimateCollection)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("backend url", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LUNAR_BACKEND_URL", "http://env:9000")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "http://env:9000", cfg.Backend.URL)
	})

	t.Run("dark mode and debug", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LUNAR_DARK_MODE", "1")
		t.Setenv("LUNAR_DEBUG", "1")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, ThemeDark, cfg.UI.Theme)
		assert.True(t, cfg.Logging.DebugMode)
	})

	t.Run("env wins over file", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("metrics:\n  listen_addr: \":9100\"\n"), 0644))
		t.Setenv("LUNAR_METRICS_ADDR", ":9200")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9200", cfg.Metrics.ListenAddr)
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.Backend.URL = "" }},
		{"bad scheme", func(c *Config) { c.Backend.URL = "ftp://moon" }},
		{"missing host", func(c *Config) { c.Backend.URL = "http://" }},
		{"bad timeout", func(c *Config) { c.Backend.RequestTimeout = "soon" }},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestURLHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.URL = "http://localhost:1111/"
	assert.Equal(t, "http://localhost:1111", cfg.BackendURL())
	assert.Equal(t, "http://localhost:1111/admin", cfg.AdminURL())
}

func TestPathsDefaults(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(Dir(), "session.json"), cfg.GetTokenPath())
	assert.Equal(t, filepath.Join(Dir(), "logs"), cfg.GetLogsDir())
	assert.Zero(t, cfg.GetRequestTimeout())

	cfg.Session.TokenPath = "/tmp/token.json"
	assert.Equal(t, "/tmp/token.json", cfg.GetTokenPath())
}

func TestLoggingSettings(t *testing.T) {
	lc := LoggingConfig{Level: "debug", DebugMode: true, JSONFormat: true, Categories: map[string]bool{"ui": true}}
	s := lc.Settings()
	assert.True(t, s.DebugMode)
	assert.True(t, s.JSONFormat)
	assert.Equal(t, "debug", s.Level)
	assert.Equal(t, map[string]bool{"ui": true}, s.Categories)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(c *Config) { changed <- c }, nil))

	cfg := DefaultConfig()
	cfg.Logging.DebugMode = true
	require.NoError(t, cfg.Save(path))

	// A truncating write can surface an intermediate empty file first.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-changed:
			if got.Logging.DebugMode {
				return
			}
		case <-deadline:
			t.Fatal("expected reload after write")
		}
	}
}
