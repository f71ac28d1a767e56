package cache

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is used when the response carries neither a usable
	// max-age nor an Expires header. Redmine normally sends
	// "max-age=0, must-revalidate", so entries live this long and are
	// revalidated on every use.
	DefaultTTL = 5 * time.Minute
)

// NewEntry builds a CacheEntry from a response status, headers and the
// already-read body.
func NewEntry(statusCode int, header http.Header, body []byte) (*CacheEntry, error) {
	if header == nil {
		return nil, fmt.Errorf("response header cannot be nil")
	}

	entry := &CacheEntry{
		Data:       body,
		ETag:       header.Get("ETag"),
		StatusCode: statusCode,
		Headers:    header.Clone(),
		CachedAt:   time.Now(),
		Expires:    parseExpires(header),
	}

	if lastModStr := header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// parseExpires derives the entry lifetime. A positive Cache-Control
// max-age wins, then a future Expires header, then DefaultTTL.
func parseExpires(headers http.Header) time.Time {
	now := time.Now()

	if maxAge, ok := parseMaxAge(headers.Get("Cache-Control")); ok && maxAge > 0 {
		return now.Add(maxAge)
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil || expires.Before(now) {
		return now.Add(DefaultTTL)
	}

	return expires
}

// parseMaxAge extracts max-age from a Cache-Control header value.
func parseMaxAge(cacheControl string) (time.Duration, bool) {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		value, found := strings.CutPrefix(directive, "max-age=")
		if !found {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}

// ShouldMakeConditionalRequest determines if we should add conditional
// request headers (If-None-Match or If-Modified-Since) based on the cache entry.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	return entry != nil && entry.CanRevalidate()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since headers
// to the request if the cache entry supports conditional requests.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
}
