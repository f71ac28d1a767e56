package cache

import (
	"net/http"
	"time"
)

// CacheEntry represents a cached Redmine response.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// Expires is when the entry is dropped from Redis
	Expires time.Time `json:"expires"`

	// LastModified from the Last-Modified header, if any
	LastModified time.Time `json:"last_modified"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired reports whether Redis should already have dropped the entry.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// CanRevalidate reports whether the server can answer a conditional
// request for the entry with 304.
func (e *CacheEntry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// TTL is the remaining lifetime, never negative.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
