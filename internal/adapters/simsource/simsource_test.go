package simsource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
)

func fixedClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestSameSeedSameSequence(t *testing.T) {
	start := time.Unix(1700000000, 0)

	a, err := New(Config{Seed: 42})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := New(Config{Seed: 42})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a.now = fixedClock(start, time.Second)
	b.now = fixedClock(start, time.Second)

	for i := 0; i < 100; i++ {
		ra, _ := a.Sample(context.Background())
		rb, _ := b.Sample(context.Background())
		if ra != rb {
			t.Fatalf("sequences diverge at sample %d: %+v vs %+v", i, ra, rb)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a, _ := New(Config{Seed: 1})
	b, _ := New(Config{Seed: 2})

	ra, _ := a.Sample(context.Background())
	rb, _ := b.Sample(context.Background())
	if ra.Voltage == rb.Voltage && ra.Current == rb.Current {
		t.Fatalf("expected different seeds to produce different readings")
	}
}

func TestTimestampsMonotonic(t *testing.T) {
	s, _ := New(Config{Seed: 7})

	// A clock stuck in place must still yield strictly advancing timestamps.
	frozen := time.Unix(1700000000, 0)
	s.now = func() time.Time { return frozen }

	var last time.Time
	for i := 0; i < 10; i++ {
		r, err := s.Sample(context.Background())
		if err != nil {
			t.Fatalf("sample: %v", err)
		}
		if !r.Timestamp.After(last) {
			t.Fatalf("timestamp regressed: %v then %v", last, r.Timestamp)
		}
		last = r.Timestamp
	}
}

func TestReadingsClampNonNegative(t *testing.T) {
	s, _ := New(Config{Seed: 3})
	if err := s.SetBaseline(domain.MetricCurrent, 0); err != nil {
		t.Fatalf("set baseline: %v", err)
	}

	for i := 0; i < 200; i++ {
		r, _ := s.Sample(context.Background())
		if r.Current < 0 {
			t.Fatalf("current went negative: %g", r.Current)
		}
		if r.CapacitorCharge < 0 || r.CapacitorCharge > 1 {
			t.Fatalf("capacitor charge outside [0,1]: %g", r.CapacitorCharge)
		}
		if err := r.Valid(); err != nil {
			t.Fatalf("simulated reading invalid: %v", err)
		}
	}
}

func TestSetBaselineSteersReadings(t *testing.T) {
	s, _ := New(Config{Seed: 11})
	if err := s.SetBaseline(domain.MetricVoltage, 1200); err != nil {
		t.Fatalf("set baseline: %v", err)
	}

	r, _ := s.Sample(context.Background())
	if r.Voltage < 1000 {
		t.Fatalf("expected voltage near the new 1200 baseline, got %g", r.Voltage)
	}
}

func TestSetBaselineUnknownMetric(t *testing.T) {
	s, _ := New(Config{Seed: 11})
	if err := s.SetBaseline("discharge_rate", 1); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestConfigRejectsUnknownBaseline(t *testing.T) {
	_, err := New(Config{Seed: 1, Baselines: map[string]float64{"pressure": 10}})
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}
