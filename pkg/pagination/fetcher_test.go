package pagination

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var errPageFailed = errors.New("page failed")

// memoryFetcher serves pages of the integers [0, total).
type memoryFetcher struct {
	total    int
	maxLimit int
	delay    time.Duration
	failAt   map[int]bool

	mu       sync.Mutex
	requests []PageRequest
	inFlight int
	peak     int
}

func newMemoryFetcher(total int) *memoryFetcher {
	return &memoryFetcher{total: total, failAt: map[int]bool{}}
}

func (f *memoryFetcher) FetchPage(ctx context.Context, req PageRequest) (PageResult[int], error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return PageResult[int]{}, ctx.Err()
		}
	}

	if f.failAt[req.Offset] {
		return PageResult[int]{}, errPageFailed
	}

	offset, limit := req.Offset, req.Limit
	if req.Unpaged() {
		offset, limit = 0, f.total
	}
	if f.maxLimit > 0 && limit > f.maxLimit {
		limit = f.maxLimit
	}

	var items []int
	for i := offset; i < offset+limit && i < f.total; i++ {
		items = append(items, i)
	}

	return PageResult[int]{Items: items, TotalItems: f.total, Offset: offset, Limit: limit}, nil
}

func (f *memoryFetcher) calls() []PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := append([]PageRequest(nil), f.requests...)
	sort.Slice(calls, func(i, j int) bool { return calls[i].Offset < calls[j].Offset })
	return calls
}

func (f *memoryFetcher) peakInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

func sequence(from, to int) []int {
	s := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		s = append(s, i)
	}
	return s
}
