package dashboard

import (
	"sync"
	"time"
)

// responseCache deduplicates concurrent GETs for the same path and serves
// fresh responses from memory for a short TTL. Cached bytes are the
// envelope's data payload.
type responseCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  map[string]cacheEntry
	inflight map[string]*inflightCall
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

type inflightCall struct {
	done chan struct{}
	data []byte
	err  error
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:      ttl,
		entries:  make(map[string]cacheEntry),
		inflight: make(map[string]*inflightCall),
	}
}

// getOrFetch returns the cached payload for key, or runs fetch exactly once
// even when multiple goroutines ask concurrently. Errors are not cached.
func (c *responseCache) getOrFetch(key string, fetch func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && time.Now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.data, nil
	}
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-call.done
		return call.data, call.err
	}

	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	call.data, call.err = fetch()
	close(call.done)

	c.mu.Lock()
	delete(c.inflight, key)
	if call.err == nil {
		c.entries[key] = cacheEntry{data: call.data, expiresAt: time.Now().Add(c.ttl)}
	}
	c.mu.Unlock()

	return call.data, call.err
}

// Clear drops everything.
func (c *responseCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
