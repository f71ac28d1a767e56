package pagination

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PageRequest addresses one page of a collection. A zero Limit requests the
// endpoint without offset and limit parameters.
type PageRequest struct {
	Offset int
	Limit  int
}

// Unpaged reports whether the request carries no pagination parameters.
func (r PageRequest) Unpaged() bool {
	return r.Limit <= 0
}

// PageResult is one decoded collection page.
type PageResult[T any] struct {
	Items      []T
	TotalItems int
	Offset     int
	Limit      int
}

// Window is the caller's explicit offset and limit for a fetch-all call.
// A zero Limit means the server's total count bounds the fetch.
type Window struct {
	Offset int
	Limit  int
}

// PageFetcher fetches a single page.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, req PageRequest) (PageResult[T], error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, req PageRequest) (PageResult[T], error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, req PageRequest) (PageResult[T], error) {
	return f(ctx, req)
}

// Config holds fetch configuration shared by both drivers.
type Config struct {
	// PageSize is used when the caller sets no explicit limit.
	// Redmine defaults to 25 and caps at 100.
	PageSize int

	// MaxConcurrency bounds simultaneous page fetches of the batch fetcher
	MaxConcurrency int

	// Timeout per page fetch, 0 disables it
	Timeout time.Duration
}

// DefaultConfig returns the default configuration for Redmine.
func DefaultConfig() Config {
	return Config{
		PageSize:       25,
		MaxConcurrency: 3,
		Timeout:        30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 25
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 3
	}
	return c
}

// MaxPages bounds the number of page requests one fetch-all call plans.
// A total_count needing more pages is refused with ErrTooManyPages.
const MaxPages = 1 << 20

// ErrTooManyPages is returned when the server reports a total that would
// need more than MaxPages requests.
var ErrTooManyPages = errors.New("total count needs too many pages")

// PageCount returns the number of pages covering [start, end).
func PageCount(start, end, pageSize int) int {
	start = max(start, 0)
	if pageSize <= 0 || start >= end {
		return 0
	}
	span := end - start
	n := span / pageSize
	if span%pageSize != 0 {
		n++
	}
	return n
}

// Plan returns the page requests covering [start, end) in pages of
// pageSize. The last page is shortened to the remainder. Callers bound
// the range with PageCount first.
func Plan(start, end, pageSize int) []PageRequest {
	start = max(start, 0)
	n := PageCount(start, end, pageSize)
	if n == 0 {
		return nil
	}

	plan := make([]PageRequest, n)
	for i := range plan {
		offset := start + i*pageSize
		plan[i] = PageRequest{Offset: offset, Limit: min(pageSize, end-offset)}
	}
	return plan
}

// bounds derives the effective page size and the exclusive end offset of a
// fetch from the caller's window and the first page.
//
// An explicit limit sets both the page size and the number of items to
// fetch. A server that echoes a smaller limit than requested (Redmine caps
// at 100) shrinks the page size to match.
func bounds[T any](w Window, requested int, first PageResult[T]) (pageSize, end int) {
	pageSize = requested
	if first.Limit > 0 && first.Limit < pageSize {
		pageSize = first.Limit
	}

	end = max(first.TotalItems, 0)
	offset := max(w.Offset, 0)
	if w.Limit > 0 && w.Limit < end-offset {
		end = offset + w.Limit
	}
	return pageSize, end
}

// firstRequest returns the first page request of a paged fetch.
func firstRequest(w Window, cfg Config) PageRequest {
	size := cfg.PageSize
	if w.Limit > 0 {
		size = w.Limit
	}
	return PageRequest{Offset: max(w.Offset, 0), Limit: size}
}

// fetchPage runs one page fetch with the per-page timeout.
func fetchPage[T any](ctx context.Context, fetcher PageFetcher[T], req PageRequest, timeout time.Duration) (PageResult[T], error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	page, err := fetcher.FetchPage(ctx, req)
	if err != nil {
		return PageResult[T]{}, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// remaining returns the plan after the first page, or ErrTooManyPages
// when the range is implausibly large.
func remaining(start, end, pageSize int) ([]PageRequest, error) {
	n := PageCount(start, end, pageSize)
	if n > MaxPages {
		return nil, fmt.Errorf("%w: %d pages of %d for items [%d, %d)", ErrTooManyPages, n, pageSize, start, end)
	}
	if n <= 1 {
		return nil, nil
	}
	return Plan(start, end, pageSize)[1:], nil
}
