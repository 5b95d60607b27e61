// Package monitor classifies rig readings against configurable thresholds and
// keeps a bounded history of safety events. Detection is decoupled from
// action: the monitor only reports levels, it never stops the rig.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/ports"
)

const (
	defaultWarnFraction    = 0.8
	defaultDangerFraction  = 0.95
	defaultHistoryCapacity = 1000
)

// Config carries the threshold set and breakpoint policy for one monitoring
// session.
type Config struct {
	Thresholds      domain.Thresholds
	WarnFraction    float64
	DangerFraction  float64
	HistoryCapacity int
}

func (c *Config) applyDefaults() {
	if c.WarnFraction == 0 {
		c.WarnFraction = defaultWarnFraction
	}
	if c.DangerFraction == 0 {
		c.DangerFraction = defaultDangerFraction
	}
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = defaultHistoryCapacity
	}
}

func (c *Config) validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.WarnFraction <= 0 || c.DangerFraction <= c.WarnFraction || c.DangerFraction >= 1 {
		return fmt.Errorf("%w: breakpoints must satisfy 0 < warn (%g) < danger (%g) < 1",
			domain.ErrInvalidConfiguration, c.WarnFraction, c.DangerFraction)
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("%w: history capacity must not be negative, got %d",
			domain.ErrInvalidConfiguration, c.HistoryCapacity)
	}
	return nil
}

// Monitor evaluates readings and records Warning-or-above events. A single
// producer calls Evaluate; history reads may happen concurrently.
type Monitor struct {
	mu         sync.Mutex
	cfg        Config
	configured bool
	history    *eventHistory
	obs        ports.Observability
}

func New(obs ports.Observability) *Monitor {
	return &Monitor{
		history: newEventHistory(defaultHistoryCapacity),
		obs:     obs,
	}
}

// Configure installs a threshold set. The control system only calls this while
// idle; thresholds stay immutable for the duration of a session.
func (m *Monitor) Configure(cfg Config) error {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg.HistoryCapacity != m.cfg.HistoryCapacity {
		m.history = newEventHistory(cfg.HistoryCapacity)
	}
	m.cfg = cfg
	m.configured = true
	if m.obs != nil {
		m.obs.LogInfo("thresholds_configured",
			ports.Field{Key: "voltage", Value: cfg.Thresholds.Voltage},
			ports.Field{Key: "current", Value: cfg.Thresholds.Current},
			ports.Field{Key: "temperature", Value: cfg.Thresholds.Temperature},
			ports.Field{Key: "capacitor_charge", Value: cfg.Thresholds.CapacitorCharge})
	}
	return nil
}

// Thresholds returns the active threshold set.
func (m *Monitor) Thresholds() domain.Thresholds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Thresholds
}

// Classify computes the safety level of a reading as a pure function of the
// reading and the active thresholds. Nothing is recorded.
func (m *Monitor) Classify(r domain.Reading) (domain.SafetyLevel, []domain.Breach, error) {
	m.mu.Lock()
	cfg := m.cfg
	configured := m.configured
	m.mu.Unlock()

	if !configured {
		return domain.LevelNormal, nil, fmt.Errorf("%w: monitor has no thresholds configured", domain.ErrInvalidConfiguration)
	}
	if err := r.Valid(); err != nil {
		return domain.LevelNormal, nil, err
	}

	max := domain.LevelNormal
	var breaches []domain.Breach
	for _, metric := range domain.Metrics {
		bound := cfg.Thresholds.Value(metric)
		frac := r.Value(metric) / bound
		level := levelForFraction(frac, cfg.WarnFraction, cfg.DangerFraction)
		if level == domain.LevelNormal {
			continue
		}
		breaches = append(breaches, domain.Breach{
			Metric:    metric,
			Value:     r.Value(metric),
			Threshold: bound,
			Fraction:  frac,
			Level:     level,
		})
		if level > max {
			max = level
		}
	}
	return max, breaches, nil
}

// Evaluate classifies the reading and, when the level is Warning or above,
// appends a safety event to the history.
func (m *Monitor) Evaluate(r domain.Reading) (domain.SafetyLevel, error) {
	level, breaches, err := m.Classify(r)
	if err != nil {
		return domain.LevelNormal, err
	}
	if level == domain.LevelNormal {
		return level, nil
	}

	ev := domain.Event{
		Timestamp: r.Timestamp,
		Level:     level,
		Breaches:  breaches,
	}
	// Representative breach: highest fraction among the triggering metrics.
	rep := breaches[0]
	for _, b := range breaches[1:] {
		if b.Fraction > rep.Fraction {
			rep = b
		}
	}
	ev.Metric = rep.Metric
	ev.Value = rep.Value
	ev.Threshold = rep.Threshold
	ev.Fraction = rep.Fraction

	m.history.append(ev)
	if m.obs != nil {
		m.obs.IncCounter("pulsegate_safety_events_total", 1)
		m.obs.SetGauge("pulsegate_event_history_length", float64(m.history.len()))
	}
	return level, nil
}

// Recent returns the newest n events in chronological order.
func (m *Monitor) Recent(n int) []domain.Event {
	return m.history.recent(n)
}

// All returns a snapshot of the full history.
func (m *Monitor) All() []domain.Event {
	return m.history.all()
}

// RecentAlerts returns up to n Warning-or-above events, newest first.
func (m *Monitor) RecentAlerts(n int) []domain.Event {
	evs := m.history.recent(n)
	for i, j := 0, len(evs)-1; i < j; i, j = i+1, j-1 {
		evs[i], evs[j] = evs[j], evs[i]
	}
	return evs
}

// Summary aggregates event counts over the trailing window ending at now.
func (m *Monitor) Summary(now time.Time, window time.Duration) domain.Summary {
	s := domain.Summary{Window: window}
	for _, ev := range m.history.since(now.Add(-window)) {
		s.Total++
		switch ev.Level {
		case domain.LevelWarning:
			s.Warning++
		case domain.LevelDanger:
			s.Danger++
		case domain.LevelEmergency:
			s.Emergency++
		}
	}
	return s
}

// ResetHistory clears the event history. Allowed at any time; it does not
// affect the control session state.
func (m *Monitor) ResetHistory() {
	m.history.reset()
	if m.obs != nil {
		m.obs.SetGauge("pulsegate_event_history_length", 0)
	}
}

func levelForFraction(frac, warn, danger float64) domain.SafetyLevel {
	switch {
	case frac >= 1.0:
		return domain.LevelEmergency
	case frac >= danger:
		return domain.LevelDanger
	case frac >= warn:
		return domain.LevelWarning
	default:
		return domain.LevelNormal
	}
}
