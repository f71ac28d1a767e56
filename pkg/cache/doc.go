// Package cache provides a Redis-backed response cache for Redmine GET
// requests.
//
// Redmine answers GET requests with an ETag (and usually Last-Modified).
// The cache stores the last successful body per request and lets the client
// revalidate it with a conditional request:
//
//   - Entries are keyed by request path, sorted query and principal
//     (API key fingerprint and impersonated login), so users never see
//     each other's responses
//   - Cached entries with ETag or Last-Modified produce If-None-Match /
//     If-Modified-Since headers; a 304 answer serves the cached body
//   - Writes through the client invalidate every cached variant of the
//     written path
//   - Prometheus metrics for observability
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Path:        "/issues/42.json",
//		QueryParams: url.Values{"include": []string{"journals"}},
//		Principal:   cache.Fingerprint(apiKey, ""),
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from Redmine
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - redmine_cache_hits_total{layer="redis"} - Cache hits
//   - redmine_cache_misses_total - Cache misses
//   - redmine_cache_size_bytes{layer="redis"} - Cache size
//   - redmine_304_responses_total - Conditional request successes
//   - redmine_conditional_requests_total - Conditional requests sent
//   - redmine_cache_errors_total{operation} - Cache operation errors
package cache
