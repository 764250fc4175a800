// Package client provides the PokéAPI JSON fetch capability with optional
// response caching and error classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pokeapi-ingest/pkg/cache"
	"github.com/Sternrassler/pokeapi-ingest/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for PokéAPI client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_requests_total",
		Help: "Total PokéAPI requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokeapi_request_duration_seconds",
		Help:    "PokéAPI request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokeapi_errors_total",
		Help: "Total PokéAPI fetch failures by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public PokéAPI v2 root.
	DefaultBaseURL = "https://pokeapi.co/api/v2/"

	// DefaultUserAgent identifies the client to PokéAPI.
	DefaultUserAgent = "CMCC-API-Assignment/1.0"

	// DefaultTimeout bounds each request.
	DefaultTimeout = 20 * time.Second
)

// Client fetches and decodes JSON documents from PokéAPI.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root that relative references resolve against.
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single request including reading the body.
	Timeout time.Duration

	// Redis enables the response cache when non-nil.
	Redis *redis.Client

	// CacheTTL is the freshness used when a response carries no cache headers.
	CacheTTL time.Duration
}

// DefaultConfig returns a safe default configuration without caching.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Timeout:   DefaultTimeout,
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a new PokéAPI client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) URL (got %q)", cfg.BaseURL)
	}
	// A base without a trailing slash would lose its last segment on resolve.
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = cache.DefaultTTL
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logging.NewLogger("pokeapi-client"),
	}

	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL resolves ref against the base URL. Absolute URLs pass through.
func (c *Client) ResolveURL(ref string) (string, error) {
	u, err := c.resolve(ref)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (c *Client) resolve(ref string) (*url.URL, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(refURL), nil
}

// FetchJSON performs one GET against rawURL with params merged into its
// query and decodes the JSON body into v. Every failure is a *FetchError.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, params url.Values, v any) error {
	target, err := c.resolve(rawURL)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassRequest)).Inc()
		return &FetchError{URL: rawURL, Class: ErrorClassRequest, Err: err}
	}

	if len(params) > 0 {
		query := target.Query()
		for key, values := range params {
			query.Del(key)
			for _, value := range values {
				query.Add(key, value)
			}
		}
		target.RawQuery = query.Encode()
	}

	body, err := c.get(ctx, target)
	if err != nil {
		return err
	}

	if err := decodeJSON(body, v); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		c.logger.Warn().
			Err(err).
			Str(logging.FieldURL, target.String()).
			Str(logging.FieldErrorClass, string(ErrorClassDecode)).
			Msg("Response body is not valid JSON")
		return &FetchError{URL: target.String(), StatusCode: http.StatusOK, Class: ErrorClassDecode, Err: err}
	}

	return nil
}

// ErrTrailingData reports bytes after the first JSON value of a body.
var ErrTrailingData = errors.New("trailing data after JSON value")

// decodeJSON decodes exactly one JSON value from body into v. Integers are
// kept as json.Number.
func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

// get returns the body of a successful response, serving from and
// refreshing the cache when one is configured.
func (c *Client) get(ctx context.Context, target *url.URL) ([]byte, error) {
	endpoint := endpointLabel(target.Path)
	rawURL := target.String()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var cacheKey cache.Key
	var cachedEntry *cache.Entry
	if c.cache != nil {
		cacheKey = cache.KeyFromURL(target)
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil && !entry.IsExpired():
			c.logger.Debug().Str(logging.FieldCacheKey, cacheKey.String()).Msg("Served from cache")
			requestsTotal.WithLabelValues(endpoint, "cache").Inc()
			return entry.Data, nil
		case err == nil:
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str(logging.FieldCacheKey, cacheKey.String()).Msg("Cache get error")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassRequest)).Inc()
		return nil, &FetchError{URL: rawURL, Class: ErrorClassRequest, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str(logging.FieldEndpoint, endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	c.logger.Debug().
		Str(logging.FieldURL, rawURL).
		Str(logging.FieldEndpoint, endpoint).
		Msg("Executing PokéAPI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().
			Err(err).
			Str(logging.FieldURL, rawURL).
			Str(logging.FieldErrorClass, string(ErrorClassNetwork)).
			Msg("HTTP request failed")
		return nil, &FetchError{URL: rawURL, Class: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		cache.NotModifiedResponses.Inc()
		newExpires := cache.ExpiresAt(resp.Header, c.config.CacheTTL)
		if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		c.logger.Debug().Str(logging.FieldEndpoint, endpoint).Msg("304 Not Modified - using cache")
		return cachedEntry.Data, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str(logging.FieldURL, rawURL).
			Int(logging.FieldStatus, resp.StatusCode).
			Str(logging.FieldErrorClass, string(class)).
			Msg("PokéAPI request error")
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Class:      class,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		c.logger.Warn().
			Err(err).
			Str(logging.FieldURL, rawURL).
			Str(logging.FieldErrorClass, string(ErrorClassNetwork)).
			Msg("Reading response body failed")
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		c.store(ctx, cacheKey, resp, body)
	}

	return body, nil
}

func (c *Client) store(ctx context.Context, key cache.Key, resp *http.Response, body []byte) {
	resp.Body = io.NopCloser(bytes.NewReader(body))
	entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
	if errors.Is(err, cache.ErrNotCacheable) {
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}

	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}

	c.logger.Debug().
		Str(logging.FieldCacheKey, key.String()).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// endpointLabel collapses numeric path segments so metric cardinality stays
// bounded: /api/v2/pokemon/25/ becomes /api/v2/pokemon/:id/.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.Atoi(seg); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil when caching is disabled.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
