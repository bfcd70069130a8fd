package dashboard

import (
	"context"
	"sync"
)

// scrollThreshold is the fraction of document height past which the next page
// loads: within the last 20%.
const scrollThreshold = 0.8

// PageFetcher fetches one 1-indexed page of items.
type PageFetcher[T any] func(ctx context.Context, page int) ([]T, Pagination, error)

// InfiniteLoader accumulates paginated results in memory. New pages are
// appended, never replacing the existing slice wholesale, and incoming items
// already present (by key) are dropped so scroll positions never see
// duplicates.
type InfiniteLoader[T any] struct {
	mu    sync.Mutex
	fetch PageFetcher[T]
	keyOf func(T) string

	items       []T
	seen        map[string]bool
	currentPage int
	totalPages  int
	hasMore     bool
	loadingMore bool
}

func NewInfiniteLoader[T any](fetch PageFetcher[T], keyOf func(T) string) *InfiniteLoader[T] {
	return &InfiniteLoader[T]{
		fetch:   fetch,
		keyOf:   keyOf,
		seen:    make(map[string]bool),
		hasMore: true,
	}
}

// LoadInitial resets the loader and fetches page 1.
func (l *InfiniteLoader[T]) LoadInitial(ctx context.Context) error {
	l.mu.Lock()
	l.items = nil
	l.seen = make(map[string]bool)
	l.currentPage = 0
	l.totalPages = 0
	l.hasMore = true
	l.loadingMore = false
	l.mu.Unlock()

	_, err := l.loadNext(ctx)
	return err
}

// OnScroll reports a scroll position as a fraction of document height and
// loads the next page when it crosses the threshold. Returns whether a fetch
// actually ran. Gated on hasMore, no fetch already running, and pages
// remaining; the gate and the claim happen under one lock so two concurrent
// calls never both report a fetch for the same page.
func (l *InfiniteLoader[T]) OnScroll(ctx context.Context, fraction float64) (bool, error) {
	if fraction < scrollThreshold {
		return false, nil
	}
	return l.loadNext(ctx)
}

func (l *InfiniteLoader[T]) loadNext(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if !l.hasMore || l.loadingMore || (l.totalPages > 0 && l.currentPage >= l.totalPages) {
		l.mu.Unlock()
		return false, nil
	}
	l.loadingMore = true
	page := l.currentPage + 1
	l.mu.Unlock()

	items, meta, err := l.fetch(ctx, page)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadingMore = false
	if err != nil {
		return true, err
	}

	for _, item := range items {
		key := l.keyOf(item)
		if l.seen[key] {
			continue
		}
		l.seen[key] = true
		l.items = append(l.items, item)
	}

	l.currentPage = meta.CurrentPage
	l.totalPages = meta.TotalPages
	l.hasMore = meta.HasNext
	return true, nil
}

// Items returns a copy of the accumulated items.
func (l *InfiniteLoader[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// HasMore reports whether more pages remain.
func (l *InfiniteLoader[T]) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasMore
}

// CurrentPage returns the last loaded 1-indexed page, 0 before any load.
func (l *InfiniteLoader[T]) CurrentPage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentPage
}
