package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// keyPrefix starts every Redis key written by this package.
const keyPrefix = "redmine"

// CacheKey represents a unique identifier for a cached Redmine response.
type CacheKey struct {
	// Path is the request path including format extension, e.g. "/issues/42.json"
	Path string

	// QueryParams are the query parameters (e.g., {"include": "journals"})
	QueryParams url.Values

	// Principal identifies who made the request, see Fingerprint
	Principal string
}

// Fingerprint derives a principal from the API key and the impersonated
// login. The API key itself never reaches Redis.
func Fingerprint(apiKey, switchUser string) string {
	if apiKey == "" && switchUser == "" {
		return "anonymous"
	}
	sum := xxhash.Sum64String(apiKey + "\x00" + switchUser)
	return strconv.FormatUint(sum, 16)
}

// String generates a deterministic cache key string.
// Format: redmine:principal:path:query1=val1:query2=val2
//
// Example:
//
//	redmine:anonymous:/issues/42.json:include=journals
func (k CacheKey) String() string {
	principal := k.Principal
	if principal == "" {
		principal = "anonymous"
	}
	parts := []string{keyPrefix, principal, k.Path}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(values, ",")))
		}
	}

	return strings.Join(parts, ":")
}

// pathPattern matches every principal and query variant of path.
func pathPattern(path string) string {
	return fmt.Sprintf("%s:*:%s*", keyPrefix, escapeGlob(path))
}

// escapeGlob escapes Redis MATCH metacharacters.
func escapeGlob(s string) string {
	var builder strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			builder.WriteByte('\\')
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
