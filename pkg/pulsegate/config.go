package pulsegate

import (
	"github.com/emrig/pulsegate/internal/adapters/opcuasource"
	"github.com/emrig/pulsegate/internal/adapters/simsource"
	"github.com/emrig/pulsegate/internal/app/config"
	"github.com/emrig/pulsegate/internal/control"
	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/monitor"
	"github.com/emrig/pulsegate/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// SafetyConfig holds thresholds and breakpoint fractions.
	SafetyConfig = config.SafetyConfig
	// ControlConfig holds tick cadence and escalation timing.
	ControlConfig = config.ControlConfig
	// SourceConfig selects and configures the sensor source.
	SourceConfig = config.SourceConfig
	// AdvisorConfig configures the trend forecast advisor.
	AdvisorConfig = config.AdvisorConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// SimSourceConfig configures the simulated sensor source.
	SimSourceConfig = simsource.Config
	// OPCUASourceConfig holds connection and node details.
	OPCUASourceConfig = opcuasource.Config

	// Domain types surfaced through the runtime API.
	Reading        = domain.Reading
	Thresholds     = domain.Thresholds
	SafetyLevel    = domain.SafetyLevel
	Metric         = domain.Metric
	Event          = domain.Event
	Breach         = domain.Breach
	Alert          = domain.Alert
	Summary        = domain.Summary
	ForecastResult = domain.ForecastResult

	// Controller types.
	State         = control.State
	Status        = control.Status
	MonitorConfig = monitor.Config

	// Ports for custom adapters.
	SensorSource  = ports.SensorSource
	Advisor       = ports.Advisor
	AlertSink     = ports.AlertSink
	Observability = ports.Observability
	Field         = ports.Field
)

// Safety levels in escalation order.
const (
	LevelNormal    = domain.LevelNormal
	LevelWarning   = domain.LevelWarning
	LevelDanger    = domain.LevelDanger
	LevelEmergency = domain.LevelEmergency
)

// Control session states.
const (
	StateIdle             = control.StateIdle
	StateRunning          = control.StateRunning
	StateStopped          = control.StateStopped
	StateEmergencyStopped = control.StateEmergencyStopped
)

// Re-exported sentinel errors.
var (
	ErrInvalidConfiguration = domain.ErrInvalidConfiguration
	ErrInvalidReading       = domain.ErrInvalidReading
	ErrInvalidState         = domain.ErrInvalidState
	ErrUnsafeResetRejected  = domain.ErrUnsafeResetRejected
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the stock simulated-rig configuration.
func DefaultConfig() *Config {
	return config.Default()
}
