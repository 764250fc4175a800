package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is the fallback freshness when the response carries neither
// Cache-Control max-age nor Expires. PokéAPI data is effectively static.
const DefaultTTL = 24 * time.Hour

// ErrNotCacheable is returned for responses marked Cache-Control: no-store.
var ErrNotCacheable = errors.New("response is not cacheable")

// ResponseToEntry converts an HTTP response to an Entry.
// It derives freshness from the response headers and reads the body.
// The response body is restored after reading.
func ResponseToEntry(resp *http.Response, fallbackTTL time.Duration) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if hasDirective(resp.Header, "no-store") {
		return nil, ErrNotCacheable
	}

	now := time.Now()
	entry := &Entry{
		Data:        body,
		ETag:        resp.Header.Get("ETag"),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		CachedAt:    now,
		Expires:     parseExpiry(resp.Header, now, fallbackTTL),
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// ExpiresAt returns when a response with the given headers stops being fresh.
// It is used to refresh a cached entry after a 304 Not Modified.
func ExpiresAt(headers http.Header, fallbackTTL time.Duration) time.Time {
	return parseExpiry(headers, time.Now(), fallbackTTL)
}

// parseExpiry returns when a response stops being fresh.
// Precedence: Cache-Control no-cache, max-age, Expires, fallbackTTL.
func parseExpiry(headers http.Header, now time.Time, fallbackTTL time.Duration) time.Time {
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultTTL
	}

	if hasDirective(headers, "no-cache") {
		return now
	}

	if maxAge, ok := maxAgeSeconds(headers); ok {
		age, _ := strconv.Atoi(headers.Get("Age"))
		remaining := maxAge - age
		if remaining < 0 {
			remaining = 0
		}
		return now.Add(time.Duration(remaining) * time.Second)
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(fallbackTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(fallbackTTL)
	}

	// Already expired - keep the entry only for revalidation
	if expires.Before(now) {
		return now
	}

	return expires
}

func cacheControl(headers http.Header) []string {
	var directives []string
	for _, v := range headers.Values("Cache-Control") {
		for _, d := range strings.Split(v, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				directives = append(directives, d)
			}
		}
	}
	return directives
}

func hasDirective(headers http.Header, name string) bool {
	for _, d := range cacheControl(headers) {
		if d == name {
			return true
		}
	}
	return false
}

func maxAgeSeconds(headers http.Header) (int, bool) {
	for _, d := range cacheControl(headers) {
		v, ok := strings.CutPrefix(d, "max-age=")
		if !ok {
			continue
		}
		seconds, err := strconv.Atoi(strings.Trim(v, `"`))
		if err != nil || seconds < 0 {
			return 0, false
		}
		return seconds, true
	}
	return 0, false
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the entry.
func ShouldMakeConditionalRequest(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.HasValidator()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the entry supports conditional requests.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	// Prefer ETag over Last-Modified (more accurate)
	if entry.ETag != "" {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
