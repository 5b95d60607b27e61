package domain

import (
	"fmt"
	"math"
	"time"
)

// Metric identifies one of the four monitored rig quantities.
type Metric string

const (
	MetricVoltage         Metric = "voltage"
	MetricCurrent         Metric = "current"
	MetricTemperature     Metric = "temperature"
	MetricCapacitorCharge Metric = "capacitor_charge"
)

// Metrics lists every monitored metric in a fixed evaluation order.
var Metrics = []Metric{MetricVoltage, MetricCurrent, MetricTemperature, MetricCapacitorCharge}

// Reading is one timestamped snapshot of rig telemetry. Readings are immutable
// value objects; each is evaluated exactly once by the safety monitor.
type Reading struct {
	Timestamp       time.Time `json:"ts"`
	Voltage         float64   `json:"voltage"`
	Current         float64   `json:"current"`
	Temperature     float64   `json:"temperature"`
	CapacitorCharge float64   `json:"capacitor_charge"`
}

// Value returns the sampled value for the given metric.
func (r Reading) Value(m Metric) float64 {
	switch m {
	case MetricVoltage:
		return r.Voltage
	case MetricCurrent:
		return r.Current
	case MetricTemperature:
		return r.Temperature
	case MetricCapacitorCharge:
		return r.CapacitorCharge
	default:
		return 0
	}
}

// Valid reports whether the reading is physically plausible. NaN, infinite, or
// negative values indicate a sensor malfunction, which is itself unsafe.
func (r Reading) Valid() error {
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidReading)
	}
	for _, m := range Metrics {
		v := r.Value(m)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidReading, m, v)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s is negative (%g)", ErrInvalidReading, m, v)
		}
	}
	return nil
}

// Thresholds holds the per-metric upper bounds defining hazard fractions.
// Immutable for the duration of a monitoring session.
type Thresholds struct {
	Voltage         float64 `yaml:"voltage" json:"voltage"`
	Current         float64 `yaml:"current" json:"current"`
	Temperature     float64 `yaml:"temperature" json:"temperature"`
	CapacitorCharge float64 `yaml:"capacitor_charge" json:"capacitor_charge"`
}

// Value returns the configured bound for the given metric.
func (t Thresholds) Value(m Metric) float64 {
	switch m {
	case MetricVoltage:
		return t.Voltage
	case MetricCurrent:
		return t.Current
	case MetricTemperature:
		return t.Temperature
	case MetricCapacitorCharge:
		return t.CapacitorCharge
	default:
		return 0
	}
}

// Validate rejects bounds that could never classify safely.
func (t Thresholds) Validate() error {
	for _, m := range Metrics {
		if v := t.Value(m); v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s bound must be positive, got %g", ErrInvalidConfiguration, m, v)
		}
	}
	if t.CapacitorCharge > 1.0 {
		return fmt.Errorf("%w: capacitor_charge bound is a ratio and must not exceed 1.0, got %g", ErrInvalidConfiguration, t.CapacitorCharge)
	}
	return nil
}
