package pagination

import (
	"context"
	"fmt"
)

// Count returns the number of items in a collection without materializing
// it: one page with limit 1 for paginated collections, else the length of
// the single unpaged response. config.Timeout bounds the request.
func Count[T any](ctx context.Context, fetcher PageFetcher[T], paginated bool, config Config) (int, error) {
	if !paginated {
		page, err := fetchPage(ctx, fetcher, PageRequest{}, config.Timeout)
		if err != nil {
			return 0, fmt.Errorf("count unpaged collection: %w", err)
		}
		return len(page.Items), nil
	}

	page, err := fetchPage(ctx, fetcher, PageRequest{Offset: 0, Limit: 1}, config.Timeout)
	if err != nil {
		return 0, fmt.Errorf("count collection: %w", err)
	}
	return max(page.TotalItems, 0), nil
}
