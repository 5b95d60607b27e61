// Package simsource generates synthetic rig telemetry: gaussian noise and a
// slow random-walk drift layered on a per-metric baseline. Given the same seed
// and baselines it produces an identical sequence of readings, which the test
// suite depends on.
package simsource

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/ports"
)

// Config seeds the generator and overrides per-metric baselines.
type Config struct {
	Seed      int64              `yaml:"seed"`
	Baselines map[string]float64 `yaml:"baselines"`
}

// Baselines of a healthy rig: comfortably below the default thresholds.
var defaultBaselines = map[domain.Metric]float64{
	domain.MetricVoltage:         800,
	domain.MetricCurrent:         30,
	domain.MetricTemperature:     60,
	domain.MetricCapacitorCharge: 0.7,
}

// Per-metric gaussian noise sigma.
var noiseSigma = map[domain.Metric]float64{
	domain.MetricVoltage:         20,
	domain.MetricCurrent:         2,
	domain.MetricTemperature:     1.5,
	domain.MetricCapacitorCharge: 0.03,
}

// Per-metric random-walk step sigma, an order of magnitude below the noise.
var driftSigma = map[domain.Metric]float64{
	domain.MetricVoltage:         2,
	domain.MetricCurrent:         0.2,
	domain.MetricTemperature:     0.15,
	domain.MetricCapacitorCharge: 0.003,
}

func (c *Config) ApplyDefaults() {
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
}

func (c *Config) Validate() error {
	for name := range c.Baselines {
		if _, ok := defaultBaselines[domain.Metric(name)]; !ok {
			return fmt.Errorf("%w: unknown baseline metric %q", domain.ErrInvalidConfiguration, name)
		}
	}
	return nil
}

// Source is a deterministic simulated sensor source.
type Source struct {
	mu        sync.Mutex
	rng       *rand.Rand
	baselines map[domain.Metric]float64
	drift     map[domain.Metric]float64
	last      time.Time
	now       func() time.Time
}

func New(cfg Config) (*Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baselines := make(map[domain.Metric]float64, len(defaultBaselines))
	for m, v := range defaultBaselines {
		baselines[m] = v
	}
	for name, v := range cfg.Baselines {
		baselines[domain.Metric(name)] = v
	}

	return &Source{
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		baselines: baselines,
		drift:     make(map[domain.Metric]float64, len(defaultBaselines)),
		now:       time.Now,
	}, nil
}

// Sample produces the next synthetic reading. Timestamps never decrease even
// if the wall clock does.
func (s *Source) Sample(_ context.Context) (domain.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Millisecond)
	}
	s.last = ts

	r := domain.Reading{Timestamp: ts}
	// Fixed metric order keeps the rng draw sequence reproducible.
	for _, m := range domain.Metrics {
		s.drift[m] += s.rng.NormFloat64() * driftSigma[m]
		v := s.baselines[m] + s.drift[m] + s.rng.NormFloat64()*noiseSigma[m]
		if v < 0 {
			v = 0
		}
		if m == domain.MetricCapacitorCharge && v > 1 {
			v = 1
		}
		switch m {
		case domain.MetricVoltage:
			r.Voltage = v
		case domain.MetricCurrent:
			r.Current = v
		case domain.MetricTemperature:
			r.Temperature = v
		case domain.MetricCapacitorCharge:
			r.CapacitorCharge = v
		}
	}
	return r, nil
}

// SetBaseline overrides one metric's baseline, used to steer test scenarios
// toward warning or emergency conditions.
func (s *Source) SetBaseline(metric domain.Metric, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.baselines[metric]; !ok {
		return fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfiguration, metric)
	}
	s.baselines[metric] = value
	s.drift[metric] = 0
	return nil
}

func (s *Source) Close() error { return nil }

var _ ports.SensorSource = (*Source)(nil)
