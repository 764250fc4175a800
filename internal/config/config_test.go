package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig pins the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	assert.Equal(t, "https://pokeapi.co/api/v2/", cfg.BaseURL)
	assert.Equal(t, "CMCC-API-Assignment/1.0", cfg.UserAgent)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
	assert.Equal(t, 150, cfg.Limit)
	assert.Equal(t, 0, cfg.Offset)
	assert.Equal(t, 200*time.Millisecond, cfg.RequestInterval)
	assert.Equal(t, "pokemon_api_data.csv", cfg.Output)
	assert.Equal(t, 15, cfg.PreviewRows)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.RedisAddr)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"defaults are valid", func(*Config) {}, nil},
		{"zero limit", func(c *Config) { c.Limit = 0 }, ErrInvalidLimit},
		{"negative offset", func(c *Config) { c.Offset = -1 }, ErrInvalidOffset},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative interval", func(c *Config) { c.RequestInterval = -time.Second }, ErrInvalidInterval},
		{"zero interval disables pacing", func(c *Config) { c.RequestInterval = 0 }, nil},
		{"negative preview", func(c *Config) { c.PreviewRows = -1 }, ErrInvalidPreview},
		{"zero preview", func(c *Config) { c.PreviewRows = 0 }, nil},
		{"negative cache ttl", func(c *Config) { c.CacheTTL = -time.Hour }, ErrInvalidCacheTTL},
		{"empty output", func(c *Config) { c.Output = " " }, ErrEmptyOutput},
		{"empty user agent", func(c *Config) { c.UserAgent = "" }, ErrEmptyUserAgent},
		{"relative base url", func(c *Config) { c.BaseURL = "api/v2/" }, ErrInvalidBaseURL},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://pokeapi.co/" }, ErrInvalidBaseURL},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListingURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		baseURL string
		want    string
	}{
		{"https://pokeapi.co/api/v2/", "https://pokeapi.co/api/v2/pokemon/"},
		{"https://pokeapi.co/api/v2", "https://pokeapi.co/api/v2/pokemon/"},
		{"http://127.0.0.1:8080/", "http://127.0.0.1:8080/pokemon/"},
	}

	for _, tt := range tests {
		cfg := NewConfig()
		cfg.BaseURL = tt.baseURL

		got, err := cfg.ListingURL()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "base %q", tt.baseURL)
	}

	cfg := NewConfig()
	cfg.BaseURL = "::bad"
	_, err := cfg.ListingURL()
	assert.ErrorIs(t, err, ErrInvalidBaseURL)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("all keys", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, `
base_url: http://localhost:8000/api/v2/
user_agent: Test/2.0
timeout: 5s
limit: 20
offset: 40
interval: 500ms
output: out/pokemon.csv
preview: 5
redis_addr: localhost:6379
cache_ttl: 1h
log_level: debug
log_pretty: true
metrics_file: metrics.prom
report_file: report.md
`)

		f, err := LoadConfigFile(path)
		require.NoError(t, err)

		cfg := NewConfig()
		f.Apply(cfg)

		assert.Equal(t, &Config{
			BaseURL:         "http://localhost:8000/api/v2/",
			UserAgent:       "Test/2.0",
			Timeout:         5 * time.Second,
			Limit:           20,
			Offset:          40,
			RequestInterval: 500 * time.Millisecond,
			Output:          "out/pokemon.csv",
			PreviewRows:     5,
			RedisAddr:       "localhost:6379",
			CacheTTL:        time.Hour,
			LogLevel:        "debug",
			LogPretty:       true,
			MetricsFile:     "metrics.prom",
			ReportFile:      "report.md",
		}, cfg)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "limit: 10\n")

		f, err := LoadConfigFile(path)
		require.NoError(t, err)

		cfg := NewConfig()
		f.Apply(cfg)
		assert.Equal(t, 10, cfg.Limit)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
		assert.Equal(t, DefaultOutput, cfg.Output)
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "")

		f, err := LoadConfigFile(path)
		require.NoError(t, err)

		cfg := NewConfig()
		f.Apply(cfg)
		assert.Equal(t, NewConfig(), cfg)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "limt: 10\n")

		_, err := LoadConfigFile(path)
		assert.ErrorIs(t, err, ErrInvalidConfigFile)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "timeout: soon\n")

		_, err := LoadConfigFile(path)
		assert.ErrorIs(t, err, ErrInvalidConfigFile)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"POKEAPI_BASE_URL":   "http://mirror.test/api/v2/",
		"POKEAPI_LIMIT":      "25",
		"POKEAPI_OFFSET":     "5",
		"POKEAPI_TIMEOUT":    "3s",
		"POKEAPI_INTERVAL":   "0s",
		"POKEAPI_LOG_PRETTY": "true",
		"POKEAPI_REDIS_ADDR": "cache:6379",
		"UNRELATED":          "ignored",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	require.NoError(t, ApplyEnv(cfg, lookup))

	assert.Equal(t, "http://mirror.test/api/v2/", cfg.BaseURL)
	assert.Equal(t, 25, cfg.Limit)
	assert.Equal(t, 5, cfg.Offset)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, time.Duration(0), cfg.RequestInterval)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"POKEAPI_LIMIT":      "many",
		"POKEAPI_TIMEOUT":    "20",
		"POKEAPI_LOG_PRETTY": "sure",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Parallel()

			lookup := func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			}

			err := ApplyEnv(NewConfig(), lookup)
			assert.ErrorIs(t, err, ErrInvalidEnv)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		writeFile(t, configPath, "limit: 1\n")

		assert.Equal(t, configPath, FindConfigFile(configPath))
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		assert.Empty(t, FindConfigFile("/nonexistent/path/config.yaml"))
	})

	t.Run("working directory before xdg", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		useXDGConfigHome(t, t.TempDir())

		writeFile(t, filepath.Join(XDGConfigDir(), XDGConfigFile), "limit: 2\n")
		writeFile(t, filepath.Join(dir, DefaultConfigFile), "limit: 1\n")

		got := FindConfigFile("")
		assert.Equal(t, DefaultConfigFile, filepath.Base(got))
	})

	t.Run("falls back to xdg", func(t *testing.T) {
		t.Chdir(t.TempDir())
		useXDGConfigHome(t, t.TempDir())

		xdgPath := filepath.Join(XDGConfigDir(), XDGConfigFile)
		writeFile(t, xdgPath, "limit: 2\n")

		assert.Equal(t, xdgPath, FindConfigFile(""))
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Chdir(t.TempDir())
		useXDGConfigHome(t, t.TempDir())

		assert.Empty(t, FindConfigFile(""))
	})
}

func useXDGConfigHome(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

func TestLoad(t *testing.T) {
	t.Run("file then env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "limit: 10\noffset: 3\n")
		t.Setenv("POKEAPI_LIMIT", "7")

		cfg, used, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, path, used)
		assert.Equal(t, 7, cfg.Limit, "environment overrides the file")
		assert.Equal(t, 3, cfg.Offset)
	})

	t.Run("explicit missing file", func(t *testing.T) {
		_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.True(t, errors.Is(err, ErrConfigNotFound))
	})

	t.Run("no file uses defaults", func(t *testing.T) {
		t.Chdir(t.TempDir())
		useXDGConfigHome(t, t.TempDir())

		cfg, used, err := Load("")
		require.NoError(t, err)
		assert.Empty(t, used)
		assert.Equal(t, DefaultLimit, cfg.Limit)
	})
}

func TestXDGConfigDir(t *testing.T) {
	t.Parallel()
	assert.Equal(t, AppName, filepath.Base(XDGConfigDir()))
}
