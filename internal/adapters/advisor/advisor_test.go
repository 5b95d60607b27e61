package advisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
)

func risingWindow(n int, start, step float64) []domain.Reading {
	base := time.Unix(1700000000, 0)
	out := make([]domain.Reading, n)
	for i := range out {
		v := start + step*float64(i)
		out[i] = domain.Reading{
			Timestamp:       base.Add(time.Duration(i) * time.Second),
			Voltage:         v,
			Current:         30,
			Temperature:     60,
			CapacitorCharge: 0.7,
		}
	}
	return out
}

func TestTrendExtrapolatesRisingVoltage(t *testing.T) {
	a := NewTrendAdvisor(50, 10)

	window := risingWindow(50, 800, 5)
	f, err := a.Forecast(context.Background(), window)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if !f.Usable(0.5) {
		t.Fatalf("noise-free ramp should be highly confident, got %g", f.Confidence)
	}

	traj := f.Trajectories[domain.MetricVoltage]
	if len(traj) != 10 {
		t.Fatalf("expected horizon 10, got %d", len(traj))
	}
	// Last observed value is 800+5*49; the first forecast step continues the ramp.
	if traj[0] < 1045 || traj[0] > 1055 {
		t.Fatalf("expected first step near 1050, got %g", traj[0])
	}
	if traj[9] <= traj[0] {
		t.Fatalf("rising trend should keep rising: %g then %g", traj[0], traj[9])
	}
}

func TestTrendShortWindowHasNoConfidence(t *testing.T) {
	a := NewTrendAdvisor(50, 10)

	f, err := a.Forecast(context.Background(), risingWindow(3, 800, 5))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.Usable(0.01) {
		t.Fatalf("three points must not produce a usable forecast, confidence %g", f.Confidence)
	}
}

type countingAdvisor struct {
	calls atomic.Int64
	inner *TrendAdvisor
}

func (c *countingAdvisor) Forecast(ctx context.Context, w []domain.Reading) (domain.ForecastResult, error) {
	c.calls.Add(1)
	return c.inner.Forecast(ctx, w)
}

func TestCacheMemoizesIdenticalWindows(t *testing.T) {
	inner := &countingAdvisor{inner: NewTrendAdvisor(50, 10)}
	cached := NewCachedAdvisor(inner, 8)

	window := risingWindow(50, 800, 5)
	first, err := cached.Forecast(context.Background(), window)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	second, err := cached.Forecast(context.Background(), window)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Fatalf("expected one inner call, got %d", inner.calls.Load())
	}
	if first.Confidence != second.Confidence {
		t.Fatalf("cached result differs from original")
	}

	// A different window misses.
	if _, err := cached.Forecast(context.Background(), risingWindow(50, 810, 5)); err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if inner.calls.Load() != 2 {
		t.Fatalf("expected cache miss on new window, got %d calls", inner.calls.Load())
	}
}

func TestCacheInvalidate(t *testing.T) {
	inner := &countingAdvisor{inner: NewTrendAdvisor(50, 10)}
	cached := NewCachedAdvisor(inner, 8)

	window := risingWindow(50, 800, 5)
	_, _ = cached.Forecast(context.Background(), window)
	cached.Invalidate()
	if cached.Len() != 0 {
		t.Fatalf("expected empty cache after invalidate, got %d", cached.Len())
	}
	_, _ = cached.Forecast(context.Background(), window)
	if inner.calls.Load() != 2 {
		t.Fatalf("expected recomputation after invalidate, got %d calls", inner.calls.Load())
	}
}

func TestCacheEvictsOldestEntries(t *testing.T) {
	inner := &countingAdvisor{inner: NewTrendAdvisor(50, 10)}
	cached := NewCachedAdvisor(inner, 2)

	_, _ = cached.Forecast(context.Background(), risingWindow(50, 800, 5))
	_, _ = cached.Forecast(context.Background(), risingWindow(50, 801, 5))
	_, _ = cached.Forecast(context.Background(), risingWindow(50, 802, 5))
	if cached.Len() != 2 {
		t.Fatalf("expected cache bounded at 2 entries, got %d", cached.Len())
	}

	// The first window was evicted, so it recomputes.
	_, _ = cached.Forecast(context.Background(), risingWindow(50, 800, 5))
	if inner.calls.Load() != 4 {
		t.Fatalf("expected 4 inner calls after eviction, got %d", inner.calls.Load())
	}
}

type hangingAdvisor struct{}

func (hangingAdvisor) Forecast(ctx context.Context, _ []domain.Reading) (domain.ForecastResult, error) {
	<-ctx.Done()
	return domain.ForecastResult{}, ctx.Err()
}

func TestGuardTimesOutHungAdvisor(t *testing.T) {
	g := NewGuardedAdvisor(hangingAdvisor{}, 10*time.Millisecond)

	start := time.Now()
	_, err := g.Forecast(context.Background(), risingWindow(50, 800, 5))
	if err == nil {
		t.Fatalf("expected deadline error from hung advisor")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("guard failed to bound the wait: %s", elapsed)
	}
}

func TestGuardPassesThroughFastAdvisor(t *testing.T) {
	g := NewGuardedAdvisor(NewTrendAdvisor(50, 10), time.Second)

	f, err := g.Forecast(context.Background(), risingWindow(50, 800, 5))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if !f.Usable(0.5) {
		t.Fatalf("expected usable forecast through the guard")
	}
}
