package cache

import (
	"time"
)

// Entry represents a cached API response.
type Entry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// Expires is when the entry stops being fresh
	Expires time.Time `json:"expires"`

	// LastModified is when the data was last modified (If-Modified-Since)
	LastModified time.Time `json:"last_modified"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type header of the cached response
	ContentType string `json:"content_type"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry is no longer fresh.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness lifetime.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// HasValidator reports whether the entry can be revalidated with a
// conditional request.
func (e *Entry) HasValidator() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
