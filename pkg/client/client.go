// Package client provides the Redmine HTTP transport: one request/response
// exchange with authentication headers, conditional-GET caching and
// classification of every failure into a closed error taxonomy.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/redmine-client/pkg/cache"
	"github.com/Sternrassler/redmine-client/pkg/format"
	"github.com/Sternrassler/redmine-client/pkg/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Redmine client operations.
var (
	factory = promauto.With(metrics.Registry)

	requestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "requests_total",
		Help:      "Total Redmine requests by method and status",
	}, []string{"method", "status"})

	requestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Name:      "request_duration_seconds",
		Help:      "Redmine request duration in seconds by method",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "errors_total",
		Help:      "Total Redmine errors by kind",
	}, []string{"kind"})
)

// Redmine request headers.
const (
	HeaderAPIKey     = "X-Redmine-API-Key"
	HeaderSwitchUser = "X-Redmine-Switch-User"
)

// Client is the Redmine transport.
type Client struct {
	httpClient *http.Client
	baseURL    string
	format     format.Format
	cache      *cache.Manager
	principal  string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the Redmine installation, e.g. "https://redmine.example.com"
	BaseURL string `validate:"required,url"`

	// APIKey is sent as X-Redmine-API-Key. Empty means anonymous access.
	APIKey string

	// SwitchUser impersonates the given login (admin API keys only).
	SwitchUser string

	// UserAgent header
	UserAgent string `validate:"required"`

	// Format selects the wire format, "json" or "xml"
	Format string `validate:"oneof=json xml"`

	// Timeout bounds every single HTTP exchange
	Timeout time.Duration `validate:"gte=0"`

	// Redis enables the conditional-GET response cache when set
	Redis *redis.Client `validate:"-"`
}

// DefaultConfig returns a default configuration for the given server.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		UserAgent: "redmine-client/0.1.0",
		Format:    "json",
		Timeout:   30 * time.Second,
	}
}

// New creates a new Redmine client.
func New(cfg Config) (*Client, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	f, err := format.ByName(cfg.Format)
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "redmine-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		format:    f,
		cache:     cacheManager,
		principal: cache.Fingerprint(cfg.APIKey, cfg.SwitchUser),
		config:    cfg,
		logger:    logger,
	}, nil
}

// Request is a single Redmine API call.
type Request struct {
	// Method is the HTTP verb
	Method string

	// Path is relative to the base URL and includes the format extension,
	// e.g. "/issues.json"
	Path string

	// Query parameters
	Query url.Values

	// Body is the encoded payload for POST and PUT
	Body []byte
}

// Response is a successful Redmine response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do performs one HTTP exchange. Status codes >= 400 and transport failures
// are returned as *APIError. No retries are attempted.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &APIError{Kind: KindGeneric, Message: "create request", Err: err}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", c.format.ContentType())
	if r.Body != nil {
		req.Header.Set("Content-Type", c.format.ContentType())
	}
	if c.config.APIKey != "" {
		req.Header.Set(HeaderAPIKey, c.config.APIKey)
	}
	if c.config.SwitchUser != "" {
		req.Header.Set(HeaderSwitchUser, c.config.SwitchUser)
	}

	// Conditional request from cache
	cacheKey := cache.CacheKey{Path: r.Path, QueryParams: r.Query, Principal: c.principal}
	var cachedEntry *cache.CacheEntry
	if c.cache != nil && method == http.MethodGet {
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("path", r.Path).Msg("Cache get error")
		}
		if cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("path", r.Path).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", r.Path).
		Msg("Executing Redmine request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := classifyTransportError(err, c.logger)
		c.record(method, "network_error", apiErr)
		return nil, apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr := classifyTransportError(err, c.logger)
		c.record(method, "read_error", apiErr)
		return nil, apiErr
	}

	status := strconv.Itoa(resp.StatusCode)

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("path", r.Path).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()
		c.record(method, status, nil)

		if entry, err := cache.NewEntry(cachedEntry.StatusCode, resp.Header, cachedEntry.Data); err == nil {
			if err := c.cache.Renew(ctx, cacheKey, cachedEntry, entry.Expires); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
				c.logger.Warn().Err(err).Msg("Failed to renew cache entry")
			}
		}

		return &Response{
			StatusCode: cachedEntry.StatusCode,
			Header:     cachedEntry.Headers,
			Body:       cachedEntry.Data,
		}, nil
	}

	if resp.StatusCode >= 400 {
		apiErr := classifyStatus(resp.StatusCode, resp.Status, data, c.format, c.logger)
		c.record(method, status, apiErr)

		c.logger.Warn().
			Str("method", method).
			Str("path", r.Path).
			Int("status", resp.StatusCode).
			Str("kind", string(apiErr.Kind)).
			Msg("Redmine request error")

		return nil, apiErr
	}

	c.record(method, status, nil)

	if c.cache != nil {
		c.updateCache(ctx, method, r.Path, cacheKey, resp, data)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// updateCache stores successful GET bodies and drops cached variants of a
// path after a write to it.
func (c *Client) updateCache(ctx context.Context, method, path string, key cache.CacheKey, resp *http.Response, data []byte) {
	switch method {
	case http.MethodGet:
		if resp.StatusCode != http.StatusOK {
			return
		}
		entry, err := cache.NewEntry(resp.StatusCode, resp.Header, data)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
			return
		}
		if err := c.cache.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
			return
		}
		c.logger.Debug().Str("path", path).Dur("ttl", entry.TTL()).Msg("Cached response")
	case http.MethodPut, http.MethodDelete, http.MethodPatch:
		removed, err := c.cache.InvalidatePath(ctx, path)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("Failed to invalidate cache")
			return
		}
		if removed > 0 {
			c.logger.Debug().Str("path", path).Int("removed", removed).Msg("Invalidated cached responses")
		}
	}
}

// record updates request metrics.
func (c *Client) record(method, status string, apiErr *APIError) {
	requestsTotal.WithLabelValues(method, status).Inc()
	if apiErr != nil {
		errorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()
	}
}

// Format returns the wire format the client speaks.
func (c *Client) Format() format.Format {
	return c.format
}

// Close releases idle connections. The Redis client is owned by the caller.
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
