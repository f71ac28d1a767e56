package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sequential fetches collection pages one after another.
type Sequential[T any] struct {
	fetcher   PageFetcher[T]
	paginated bool
	config    Config
	logger    zerolog.Logger
}

// NewSequential creates a sequential driver. paginated is the collection's
// pagination capability: when false the endpoint is requested once without
// offset and limit.
func NewSequential[T any](fetcher PageFetcher[T], paginated bool, config Config) *Sequential[T] {
	return &Sequential[T]{
		fetcher:   fetcher,
		paginated: paginated,
		config:    config.withDefaults(),
		logger:    log.With().Str("component", "pagination").Str("strategy", strategySequential).Logger(),
	}
}

// FetchAll returns the complete collection within w in ascending offset
// order. The result is never nil on success.
func (s *Sequential[T]) FetchAll(ctx context.Context, w Window) ([]T, error) {
	start := time.Now()
	defer func() {
		fetchAllDuration.WithLabelValues(strategySequential).Observe(time.Since(start).Seconds())
	}()

	if !s.paginated {
		page, err := fetchPage(ctx, s.fetcher, PageRequest{}, s.config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("fetch unpaged collection: %w", err)
		}
		pagesFetched.WithLabelValues(strategySequential).Inc()
		return page.Items, nil
	}

	req := firstRequest(w, s.config)
	first, err := fetchPage(ctx, s.fetcher, req, s.config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", req.Offset, err)
	}
	pagesFetched.WithLabelValues(strategySequential).Inc()

	pageSize, end := bounds(w, req.Limit, first)
	plan, err := remaining(req.Offset, end, pageSize)
	if err != nil {
		s.logger.Warn().Err(err).Int("total", first.TotalItems).Msg("Refusing implausible total")
		return nil, err
	}

	s.logger.Debug().
		Int("total", first.TotalItems).
		Int("page_size", pageSize).
		Int("pages", len(plan)+1).
		Msg("Starting sequential fetch")

	items := append(make([]T, 0, len(first.Items)), first.Items...)

	for _, next := range plan {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch cancelled at offset %d: %w", next.Offset, err)
		}

		page, err := fetchPage(ctx, s.fetcher, next, s.config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", next.Offset, err)
		}
		pagesFetched.WithLabelValues(strategySequential).Inc()
		items = append(items, page.Items...)
	}

	s.logger.Info().
		Int("items", len(items)).
		Int("pages", len(plan)+1).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}
