package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Outcome is the result of an asynchronous fetch-all.
type Outcome[T any] struct {
	Items []T
	Err   error
}

// BatchFetcher fetches the pages after the first one concurrently, bounded
// by Config.MaxConcurrency.
type BatchFetcher[T any] struct {
	fetcher   PageFetcher[T]
	paginated bool
	config    Config
	logger    zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher[T any](fetcher PageFetcher[T], paginated bool, config Config) *BatchFetcher[T] {
	return &BatchFetcher[T]{
		fetcher:   fetcher,
		paginated: paginated,
		config:    config.withDefaults(),
		logger:    log.With().Str("component", "pagination").Str("strategy", strategyConcurrent).Logger(),
	}
}

// Start runs the fetch on its own goroutine. The channel receives exactly
// one Outcome and is then closed.
func (bf *BatchFetcher[T]) Start(ctx context.Context, w Window) <-chan Outcome[T] {
	out := make(chan Outcome[T], 1)
	go func() {
		defer close(out)
		items, err := bf.fetchAll(ctx, w)
		out <- Outcome[T]{Items: items, Err: err}
	}()
	return out
}

// FetchAll blocks until the complete collection within w is fetched. Items
// are in ascending offset order regardless of completion order. Any page
// failure fails the whole call and no items are returned.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, w Window) ([]T, error) {
	outcome := <-bf.Start(ctx, w)
	return outcome.Items, outcome.Err
}

func (bf *BatchFetcher[T]) fetchAll(ctx context.Context, w Window) ([]T, error) {
	start := time.Now()
	defer func() {
		fetchAllDuration.WithLabelValues(strategyConcurrent).Observe(time.Since(start).Seconds())
	}()

	if !bf.paginated {
		page, err := fetchPage(ctx, bf.fetcher, PageRequest{}, bf.config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("fetch unpaged collection: %w", err)
		}
		pagesFetched.WithLabelValues(strategyConcurrent).Inc()
		return page.Items, nil
	}

	req := firstRequest(w, bf.config)
	first, err := fetchPage(ctx, bf.fetcher, req, bf.config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", req.Offset, err)
	}
	pagesFetched.WithLabelValues(strategyConcurrent).Inc()

	pageSize, end := bounds(w, req.Limit, first)
	plan, err := remaining(req.Offset, end, pageSize)
	if err != nil {
		bf.logger.Warn().Err(err).Int("total", first.TotalItems).Msg("Refusing implausible total")
		return nil, err
	}

	if len(plan) == 0 {
		bf.logger.Debug().
			Int("items", len(first.Items)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Items, nil
	}

	bf.logger.Debug().
		Int("total", first.TotalItems).
		Int("page_size", pageSize).
		Int("pages", len(plan)+1).
		Int("max_concurrency", bf.config.MaxConcurrency).
		Msg("Starting concurrent fetch")

	pages, err := bf.fetchRemaining(ctx, plan)
	if err != nil {
		return nil, err
	}

	size := len(first.Items)
	for _, items := range pages {
		size += len(items)
	}
	items := make([]T, 0, size)
	items = append(items, first.Items...)
	for _, page := range pages {
		items = append(items, page...)
	}

	bf.logger.Info().
		Int("items", len(items)).
		Int("pages", len(plan)+1).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

// fetchRemaining fetches plan with at most MaxConcurrency pages in flight.
// Results are indexed by plan position.
func (bf *BatchFetcher[T]) fetchRemaining(ctx context.Context, plan []PageRequest) ([][]T, error) {
	sem := semaphore.NewWeighted(int64(bf.config.MaxConcurrency))
	g, gctx := errgroup.WithContext(ctx)
	results := make([][]T, len(plan))

	var scheduleErr error
	for i, req := range plan {
		i, req := i, req
		if err := sem.Acquire(gctx, 1); err != nil {
			scheduleErr = fmt.Errorf("schedule page at offset %d: %w", req.Offset, err)
			break
		}

		g.Go(func() error {
			defer sem.Release(1)

			pagesInFlight.Inc()
			defer pagesInFlight.Dec()

			page, err := fetchPage(gctx, bf.fetcher, req, bf.config.Timeout)
			if err != nil {
				bf.logger.Warn().
					Err(err).
					Int("offset", req.Offset).
					Msg("Page fetch failed")
				return fmt.Errorf("fetch page at offset %d: %w", req.Offset, err)
			}
			pagesFetched.WithLabelValues(strategyConcurrent).Inc()
			results[i] = page.Items
			return nil
		})
	}

	// A page failure cancels gctx, so the failure is preferred over the
	// resulting acquire error.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if scheduleErr != nil {
		return nil, scheduleErr
	}
	return results, nil
}
