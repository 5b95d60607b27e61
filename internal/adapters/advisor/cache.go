package advisor

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/ports"
)

const defaultCacheEntries = 64

// CachedAdvisor memoizes forecasts keyed by a content hash of the history
// window, with explicit invalidation. Identical windows (common when the UI
// polls faster than the sensor cadence) skip the inner advisor entirely.
type CachedAdvisor struct {
	inner ports.Advisor

	mu      sync.Mutex
	max     int
	entries map[uint64]domain.ForecastResult
	order   []uint64
}

func NewCachedAdvisor(inner ports.Advisor, maxEntries int) *CachedAdvisor {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	return &CachedAdvisor{
		inner:   inner,
		max:     maxEntries,
		entries: make(map[uint64]domain.ForecastResult, maxEntries),
	}
}

func (c *CachedAdvisor) Forecast(ctx context.Context, window []domain.Reading) (domain.ForecastResult, error) {
	key := hashWindow(window)

	c.mu.Lock()
	if cached, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	result, err := c.inner.Forecast(ctx, window)
	if err != nil {
		return domain.ForecastResult{}, err
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[key] = result
		c.order = append(c.order, key)
	}
	c.mu.Unlock()
	return result, nil
}

// Invalidate drops all memoized forecasts, e.g. after thresholds change.
func (c *CachedAdvisor) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]domain.ForecastResult, c.max)
	c.order = c.order[:0]
}

// Len reports the number of memoized entries.
func (c *CachedAdvisor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func hashWindow(window []domain.Reading) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, r := range window {
		binary.BigEndian.PutUint64(buf[:], uint64(r.Timestamp.UnixNano()))
		_, _ = h.Write(buf[:])
		for _, m := range domain.Metrics {
			binary.BigEndian.PutUint64(buf[:], math.Float64bits(r.Value(m)))
			_, _ = h.Write(buf[:])
		}
	}
	return h.Sum64()
}

var _ ports.Advisor = (*CachedAdvisor)(nil)
