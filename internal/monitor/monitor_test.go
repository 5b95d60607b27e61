package monitor

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
)

var testThresholds = domain.Thresholds{
	Voltage:         1000,
	Current:         50,
	Temperature:     85,
	CapacitorCharge: 0.9,
}

func newConfigured(t *testing.T) *Monitor {
	t.Helper()
	m := New(nil)
	if err := m.Configure(Config{Thresholds: testThresholds}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	return m
}

func reading(ts time.Time, voltage, current, temp, charge float64) domain.Reading {
	return domain.Reading{
		Timestamp:       ts,
		Voltage:         voltage,
		Current:         current,
		Temperature:     temp,
		CapacitorCharge: charge,
	}
}

func TestConfigureRejectsBadThresholds(t *testing.T) {
	m := New(nil)

	bad := []domain.Thresholds{
		{Voltage: 0, Current: 50, Temperature: 85, CapacitorCharge: 0.9},
		{Voltage: 1000, Current: -1, Temperature: 85, CapacitorCharge: 0.9},
		{Voltage: 1000, Current: 50, Temperature: 85, CapacitorCharge: 1.5},
	}
	for _, th := range bad {
		if err := m.Configure(Config{Thresholds: th}); !errors.Is(err, domain.ErrInvalidConfiguration) {
			t.Fatalf("thresholds %+v: expected ErrInvalidConfiguration, got %v", th, err)
		}
	}

	if err := m.Configure(Config{Thresholds: testThresholds, WarnFraction: 0.95, DangerFraction: 0.8}); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected breakpoint ordering rejection")
	}
}

func TestEvaluateNormalAppendsNothing(t *testing.T) {
	m := newConfigured(t)

	level, err := m.Evaluate(reading(time.Now(), 500, 20, 40, 0.3))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if level != domain.LevelNormal {
		t.Fatalf("expected normal, got %s", level)
	}
	if n := len(m.All()); n != 0 {
		t.Fatalf("expected empty history, got %d events", n)
	}
}

func TestEvaluateBreakpoints(t *testing.T) {
	m := newConfigured(t)

	cases := []struct {
		voltage float64
		want    domain.SafetyLevel
	}{
		{799, domain.LevelNormal},
		{800, domain.LevelWarning},
		{949, domain.LevelWarning},
		{950, domain.LevelDanger},
		{999, domain.LevelDanger},
		{1000, domain.LevelEmergency},
		{1500, domain.LevelEmergency},
	}
	ts := time.Now()
	for _, tc := range cases {
		ts = ts.Add(time.Second)
		level, err := m.Evaluate(reading(ts, tc.voltage, 10, 30, 0.2))
		if err != nil {
			t.Fatalf("evaluate voltage=%g: %v", tc.voltage, err)
		}
		if level != tc.want {
			t.Fatalf("voltage=%g: expected %s, got %s", tc.voltage, tc.want, level)
		}
	}
}

func TestEvaluateMaxSeverityWins(t *testing.T) {
	m := newConfigured(t)

	// Current at emergency, everything else tame.
	level, err := m.Evaluate(reading(time.Now(), 100, 55, 30, 0.2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if level != domain.LevelEmergency {
		t.Fatalf("expected emergency regardless of other metrics, got %s", level)
	}
}

func TestEvaluateDangerRecordsRepresentativeMetric(t *testing.T) {
	m := newConfigured(t)

	// Voltage at 96% of 1000 → danger, citing voltage.
	level, err := m.Evaluate(reading(time.Now(), 960, 10, 30, 0.2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if level != domain.LevelDanger {
		t.Fatalf("expected danger, got %s", level)
	}

	evs := m.All()
	if len(evs) != 1 {
		t.Fatalf("expected one event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.Metric != domain.MetricVoltage || ev.Value != 960 || ev.Threshold != 1000 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestEvaluateReportsAllTriggeringMetrics(t *testing.T) {
	m := newConfigured(t)

	// Voltage warning (85%), temperature danger (96%).
	level, err := m.Evaluate(reading(time.Now(), 850, 10, 81.6, 0.2))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if level != domain.LevelDanger {
		t.Fatalf("expected danger, got %s", level)
	}

	ev := m.All()[0]
	if len(ev.Breaches) != 2 {
		t.Fatalf("expected 2 breaches, got %+v", ev.Breaches)
	}
	if ev.Metric != domain.MetricTemperature {
		t.Fatalf("representative metric should be temperature, got %s", ev.Metric)
	}
}

func TestEvaluateRejectsMalformedReadings(t *testing.T) {
	m := newConfigured(t)

	bad := []domain.Reading{
		reading(time.Now(), math.NaN(), 10, 30, 0.2),
		reading(time.Now(), 500, -3, 30, 0.2),
		reading(time.Now(), 500, 10, math.Inf(1), 0.2),
		reading(time.Time{}, 500, 10, 30, 0.2),
	}
	for _, r := range bad {
		if _, err := m.Evaluate(r); !errors.Is(err, domain.ErrInvalidReading) {
			t.Fatalf("reading %+v: expected ErrInvalidReading, got %v", r, err)
		}
	}
	if n := len(m.All()); n != 0 {
		t.Fatalf("rejected readings must not be recorded, history has %d events", n)
	}
}

func TestEvaluateWithoutThresholds(t *testing.T) {
	m := New(nil)
	if _, err := m.Evaluate(reading(time.Now(), 500, 10, 30, 0.2)); !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}
}

func TestClassifyIsPure(t *testing.T) {
	m := newConfigured(t)

	r := reading(time.Now(), 960, 10, 30, 0.2)
	for i := 0; i < 3; i++ {
		level, _, err := m.Classify(r)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if level != domain.LevelDanger {
			t.Fatalf("classification changed across calls: %s", level)
		}
	}
	if n := len(m.All()); n != 0 {
		t.Fatalf("classify must not record events, history has %d", n)
	}
}

func TestSummaryCountsWindowedLevels(t *testing.T) {
	m := newConfigured(t)
	now := time.Now()

	// Two warnings and a danger inside the window, one warning outside it.
	_, _ = m.Evaluate(reading(now.Add(-2*time.Hour), 850, 10, 30, 0.2))
	_, _ = m.Evaluate(reading(now.Add(-30*time.Minute), 850, 10, 30, 0.2))
	_, _ = m.Evaluate(reading(now.Add(-20*time.Minute), 850, 10, 30, 0.2))
	_, _ = m.Evaluate(reading(now.Add(-10*time.Minute), 960, 10, 30, 0.2))

	s := m.Summary(now, time.Hour)
	if s.Total != 3 || s.Warning != 2 || s.Danger != 1 || s.Emergency != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if got := s.Percent(domain.LevelDanger); math.Abs(got-100.0/3) > 1e-9 {
		t.Fatalf("expected danger percent 33.3, got %g", got)
	}
}

func TestRecentAlertsNewestFirst(t *testing.T) {
	m := newConfigured(t)
	base := time.Now()

	for i := 0; i < 5; i++ {
		_, _ = m.Evaluate(reading(base.Add(time.Duration(i)*time.Second), 850+float64(i), 10, 30, 0.2))
	}

	alerts := m.RecentAlerts(3)
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}
	if !alerts[0].Timestamp.After(alerts[1].Timestamp) || !alerts[1].Timestamp.After(alerts[2].Timestamp) {
		t.Fatalf("alerts not newest-first: %v %v %v", alerts[0].Timestamp, alerts[1].Timestamp, alerts[2].Timestamp)
	}
}

func TestResetHistory(t *testing.T) {
	m := newConfigured(t)

	_, _ = m.Evaluate(reading(time.Now(), 850, 10, 30, 0.2))
	if len(m.All()) != 1 {
		t.Fatalf("expected one event before reset")
	}
	m.ResetHistory()
	if n := len(m.All()); n != 0 {
		t.Fatalf("expected empty history after reset, got %d", n)
	}
}
