package pagination

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		paginated bool
		wantCalls []PageRequest
	}{
		{name: "paginated", total: 137, paginated: true, wantCalls: []PageRequest{{0, 1}}},
		{name: "paginated empty", total: 0, paginated: true, wantCalls: []PageRequest{{0, 1}}},
		{name: "unpaged", total: 12, paginated: false, wantCalls: []PageRequest{{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newMemoryFetcher(tt.total)

			count, err := Count[int](context.Background(), fetcher, tt.paginated, DefaultConfig())
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != tt.total {
				t.Errorf("Count() = %d, want %d", count, tt.total)
			}

			calls := fetcher.calls()
			if len(calls) != 1 || calls[0] != tt.wantCalls[0] {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}
		})
	}
}

func TestCount_Error(t *testing.T) {
	fetcher := newMemoryFetcher(10)
	fetcher.failAt[0] = true

	if _, err := Count[int](context.Background(), fetcher, true, DefaultConfig()); !errors.Is(err, errPageFailed) {
		t.Errorf("Count() error = %v, want %v", err, errPageFailed)
	}
}

func TestCount_PerPageTimeout(t *testing.T) {
	for _, paginated := range []bool{true, false} {
		fetcher := newMemoryFetcher(10)
		fetcher.delay = time.Second

		_, err := Count[int](context.Background(), fetcher, paginated, Config{Timeout: 20 * time.Millisecond})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Count(paginated=%v) error = %v, want %v", paginated, err, context.DeadlineExceeded)
		}
	}
}
