package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedFetcher serves fixed pages and counts calls.
func pagedFetcher(pages [][]Brand, calls *int) PageFetcher[Brand] {
	return func(ctx context.Context, page int) ([]Brand, Pagination, error) {
		*calls++
		if page < 1 || page > len(pages) {
			return nil, Pagination{}, fmt.Errorf("no such page %d", page)
		}
		return pages[page-1], Pagination{
			CurrentPage: page,
			TotalPages:  len(pages),
			HasNext:     page < len(pages),
		}, nil
	}
}

func brands(ids ...string) []Brand {
	out := make([]Brand, 0, len(ids))
	for _, id := range ids {
		out = append(out, Brand{ID: id, Name: "Brand " + id})
	}
	return out
}

func TestInfiniteLoader_Accumulates(t *testing.T) {
	calls := 0
	loader := NewInfiniteLoader(pagedFetcher([][]Brand{
		brands("a", "b"),
		brands("c", "d"),
		brands("e"),
	}, &calls), func(b Brand) string { return b.ID })

	require.NoError(t, loader.LoadInitial(context.Background()))
	assert.Len(t, loader.Items(), 2)
	assert.Equal(t, 1, loader.CurrentPage())
	assert.True(t, loader.HasMore())

	t.Run("scrolling below the threshold does nothing", func(t *testing.T) {
		fetched, err := loader.OnScroll(context.Background(), 0.5)
		require.NoError(t, err)
		assert.False(t, fetched)
		assert.Equal(t, 1, calls)
	})

	t.Run("crossing the threshold appends the next page", func(t *testing.T) {
		fetched, err := loader.OnScroll(context.Background(), 0.85)
		require.NoError(t, err)
		assert.True(t, fetched)
		assert.Len(t, loader.Items(), 4)
		assert.Equal(t, 2, loader.CurrentPage())
	})

	t.Run("earlier items stay in place", func(t *testing.T) {
		items := loader.Items()
		assert.Equal(t, "a", items[0].ID)
		assert.Equal(t, "b", items[1].ID)
		assert.Equal(t, "c", items[2].ID)
	})

	t.Run("the last page turns off further loads", func(t *testing.T) {
		fetched, err := loader.OnScroll(context.Background(), 1.0)
		require.NoError(t, err)
		assert.True(t, fetched)
		assert.False(t, loader.HasMore())

		fetched, err = loader.OnScroll(context.Background(), 1.0)
		require.NoError(t, err)
		assert.False(t, fetched)
		assert.Equal(t, 3, calls)
	})
}

func TestInfiniteLoader_Deduplicates(t *testing.T) {
	// Page 2 overlaps page 1, which happens when rows are inserted while the
	// user scrolls.
	calls := 0
	loader := NewInfiniteLoader(pagedFetcher([][]Brand{
		brands("a", "b", "c"),
		brands("c", "d", "e"),
	}, &calls), func(b Brand) string { return b.ID })

	require.NoError(t, loader.LoadInitial(context.Background()))
	_, err := loader.OnScroll(context.Background(), 0.9)
	require.NoError(t, err)

	items := loader.Items()
	require.Len(t, items, 5)
	seen := map[string]bool{}
	for _, b := range items {
		assert.False(t, seen[b.ID], "duplicate id %s", b.ID)
		seen[b.ID] = true
	}
}

func TestInfiniteLoader_Reset(t *testing.T) {
	calls := 0
	loader := NewInfiniteLoader(pagedFetcher([][]Brand{
		brands("a"),
		brands("b"),
	}, &calls), func(b Brand) string { return b.ID })

	require.NoError(t, loader.LoadInitial(context.Background()))
	_, err := loader.OnScroll(context.Background(), 0.9)
	require.NoError(t, err)
	require.Len(t, loader.Items(), 2)

	// A reset must drop the dedup memory too, or reloaded rows vanish.
	require.NoError(t, loader.LoadInitial(context.Background()))
	assert.Len(t, loader.Items(), 1)
	assert.Equal(t, 1, loader.CurrentPage())
	assert.True(t, loader.HasMore())
}

// Concurrent scroll events must agree with reality: exactly one caller may
// report that it triggered the fetch, and only one fetch runs.
func TestInfiniteLoader_ConcurrentScrollReportsOneFetch(t *testing.T) {
	var fetches int32
	release := make(chan struct{})
	loader := NewInfiniteLoader(func(ctx context.Context, page int) ([]Brand, Pagination, error) {
		if page > 1 {
			<-release
		}
		atomic.AddInt32(&fetches, 1)
		return brands(fmt.Sprintf("p%d", page)), Pagination{
			CurrentPage: page,
			TotalPages:  3,
			HasNext:     true,
		}, nil
	}, func(b Brand) string { return b.ID })

	require.NoError(t, loader.LoadInitial(context.Background()))

	const callers = 8
	var reported, returned int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetched, err := loader.OnScroll(context.Background(), 0.9)
			assert.NoError(t, err)
			if fetched {
				atomic.AddInt32(&reported, 1)
			}
			atomic.AddInt32(&returned, 1)
		}()
	}

	// Let every loser observe the in-flight fetch and return before the
	// winner's fetch is released.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&returned) == callers-1
	}, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 2, atomic.LoadInt32(&fetches)) // initial load + one scroll fetch
	assert.EqualValues(t, 1, atomic.LoadInt32(&reported))
}

func TestInfiniteLoader_FetchError(t *testing.T) {
	boom := errors.New("boom")
	attempts := 0
	loader := NewInfiniteLoader(func(ctx context.Context, page int) ([]Brand, Pagination, error) {
		attempts++
		if attempts == 1 {
			return nil, Pagination{}, boom
		}
		return brands("a"), Pagination{CurrentPage: 1, TotalPages: 1}, nil
	}, func(b Brand) string { return b.ID })

	require.ErrorIs(t, loader.LoadInitial(context.Background()), boom)

	// The failed load leaves the loader usable.
	require.NoError(t, loader.LoadInitial(context.Background()))
	assert.Len(t, loader.Items(), 1)
}
