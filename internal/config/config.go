package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/pokeapi-ingest/pkg/logging"
	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pokeapi-ingest"

	DefaultBaseURL   = "https://pokeapi.co/api/v2/"
	DefaultUserAgent = "CMCC-API-Assignment/1.0"
	DefaultTimeout   = 20 * time.Second

	// DefaultLimit is the listing page size.
	DefaultLimit = 150

	// DefaultInterval is the minimum spacing between detail requests.
	DefaultInterval = 200 * time.Millisecond

	DefaultOutput      = "pokemon_api_data.csv"
	DefaultPreviewRows = 15
	DefaultCacheTTL    = 24 * time.Hour
	DefaultLogLevel    = "info"

	// ListingPath is the listing endpoint, relative to the base URL.
	ListingPath = "pokemon/"
)

// Config holds all options of one ingestion run.
type Config struct {
	// BaseURL is the API root every relative URL resolves against.
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	Limit  int
	Offset int

	// RequestInterval spaces detail requests. Zero disables pacing.
	RequestInterval time.Duration

	Output      string
	PreviewRows int

	// RedisAddr enables the response cache when set ("host:port").
	RedisAddr string
	CacheTTL  time.Duration

	LogLevel  string
	LogPretty bool

	// MetricsFile receives a Prometheus textfile dump at the end of a run.
	MetricsFile string

	// ReportFile receives a Markdown run report.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		UserAgent:       DefaultUserAgent,
		Timeout:         DefaultTimeout,
		Limit:           DefaultLimit,
		RequestInterval: DefaultInterval,
		Output:          DefaultOutput,
		PreviewRows:     DefaultPreviewRows,
		CacheTTL:        DefaultCacheTTL,
		LogLevel:        DefaultLogLevel,
	}
}

// XDGConfigDir returns the XDG config directory for pokeapi-ingest.
// On Linux: ~/.config/pokeapi-ingest
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Limit < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidLimit, c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidOffset, c.Offset)
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestInterval < 0 {
		return ErrInvalidInterval
	}
	if c.PreviewRows < 0 {
		return ErrInvalidPreview
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	if strings.TrimSpace(c.Output) == "" {
		return ErrEmptyOutput
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return ErrEmptyUserAgent
	}
	if _, err := c.baseURL(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

func (c *Config) baseURL() (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w (got %q)", ErrInvalidBaseURL, c.BaseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

// ListingURL returns the absolute URL of the listing endpoint.
func (c *Config) ListingURL() (string, error) {
	base, err := c.baseURL()
	if err != nil {
		return "", err
	}
	return base.ResolveReference(&url.URL{Path: ListingPath}).String(), nil
}
