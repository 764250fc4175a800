package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the configuration file looked up in the working directory.
	DefaultConfigFile = ".pokeapi-ingest.yaml"

	// XDGConfigFile is the file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"

	// EnvPrefix prefixes every environment variable read by ApplyEnv.
	EnvPrefix = "POKEAPI_"
)

// File is the YAML configuration file. Unset keys leave the current value.
type File struct {
	BaseURL     *string        `yaml:"base_url"`
	UserAgent   *string        `yaml:"user_agent"`
	Timeout     *time.Duration `yaml:"timeout"`
	Limit       *int           `yaml:"limit"`
	Offset      *int           `yaml:"offset"`
	Interval    *time.Duration `yaml:"interval"`
	Output      *string        `yaml:"output"`
	PreviewRows *int           `yaml:"preview"`
	RedisAddr   *string        `yaml:"redis_addr"`
	CacheTTL    *time.Duration `yaml:"cache_ttl"`
	LogLevel    *string        `yaml:"log_level"`
	LogPretty   *bool          `yaml:"log_pretty"`
	MetricsFile *string        `yaml:"metrics_file"`
	ReportFile  *string        `yaml:"report_file"`
}

// LoadConfigFile parses a YAML configuration file. Unknown keys are rejected.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfigFile, path, err)
	}

	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .pokeapi-ingest.yaml in the current directory
// 3. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), XDGConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Apply copies every key set in the file onto c.
func (f *File) Apply(c *Config) {
	setString(&c.BaseURL, f.BaseURL)
	setString(&c.UserAgent, f.UserAgent)
	setDuration(&c.Timeout, f.Timeout)
	setInt(&c.Limit, f.Limit)
	setInt(&c.Offset, f.Offset)
	setDuration(&c.RequestInterval, f.Interval)
	setString(&c.Output, f.Output)
	setInt(&c.PreviewRows, f.PreviewRows)
	setString(&c.RedisAddr, f.RedisAddr)
	setDuration(&c.CacheTTL, f.CacheTTL)
	setString(&c.LogLevel, f.LogLevel)
	if f.LogPretty != nil {
		c.LogPretty = *f.LogPretty
	}
	setString(&c.MetricsFile, f.MetricsFile)
	setString(&c.ReportFile, f.ReportFile)
}

// ApplyEnv overrides c from POKEAPI_* variables found by lookup.
func ApplyEnv(c *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"BASE_URL":     &c.BaseURL,
		"USER_AGENT":   &c.UserAgent,
		"OUTPUT":       &c.Output,
		"REDIS_ADDR":   &c.RedisAddr,
		"LOG_LEVEL":    &c.LogLevel,
		"METRICS_FILE": &c.MetricsFile,
		"REPORT_FILE":  &c.ReportFile,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LIMIT":   &c.Limit,
		"OFFSET":  &c.Offset,
		"PREVIEW": &c.PreviewRows,
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, name, v)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"TIMEOUT":   &c.Timeout,
		"INTERVAL":  &c.RequestInterval,
		"CACHE_TTL": &c.CacheTTL,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, name, v)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "LOG_PRETTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sLOG_PRETTY=%q", ErrInvalidEnv, EnvPrefix, v)
		}
		c.LogPretty = b
	}

	return nil
}

// Load builds a Config from defaults, the configuration file and the
// environment. It returns the file used, empty when none was found.
// An explicit configPath that does not exist is an error.
func Load(configPath string) (*Config, string, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	if path != "" {
		f, err := LoadConfigFile(path)
		if err != nil {
			return nil, "", err
		}
		f.Apply(cfg)
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, "", err
	}

	return cfg, path, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
