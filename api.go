package pulsegate

import (
	base "github.com/emrig/pulsegate/pkg/pulsegate"
)

// Re-exported errors for convenience.
var (
	ErrInvalidConfiguration    = base.ErrInvalidConfiguration
	ErrInvalidReading          = base.ErrInvalidReading
	ErrInvalidState            = base.ErrInvalidState
	ErrUnsafeResetRejected     = base.ErrUnsafeResetRejected
	ErrEmergencyUnacknowledged = base.ErrEmergencyUnacknowledged
)

// Type aliases so consumers can import github.com/emrig/pulsegate directly.
type (
	Config            = base.Config
	SafetyConfig      = base.SafetyConfig
	ControlConfig     = base.ControlConfig
	SourceConfig      = base.SourceConfig
	AdvisorConfig     = base.AdvisorConfig
	MetricsConfig     = base.MetricsConfig
	SimSourceConfig   = base.SimSourceConfig
	OPCUASourceConfig = base.OPCUASourceConfig
	MonitorConfig     = base.MonitorConfig

	Reading        = base.Reading
	Thresholds     = base.Thresholds
	SafetyLevel    = base.SafetyLevel
	Metric         = base.Metric
	Event          = base.Event
	Breach         = base.Breach
	Alert          = base.Alert
	Summary        = base.Summary
	ForecastResult = base.ForecastResult

	State  = base.State
	Status = base.Status

	ControlRuntime = base.ControlRuntime
	RuntimeOption  = base.RuntimeOption

	SensorSource  = base.SensorSource
	Advisor       = base.Advisor
	AlertSink     = base.AlertSink
	Observability = base.Observability
	Field         = base.Field
)

// Safety levels in escalation order.
const (
	LevelNormal    = base.LevelNormal
	LevelWarning   = base.LevelWarning
	LevelDanger    = base.LevelDanger
	LevelEmergency = base.LevelEmergency
)

// Control session states.
const (
	StateIdle             = base.StateIdle
	StateRunning          = base.StateRunning
	StateStopped          = base.StateStopped
	StateEmergencyStopped = base.StateEmergencyStopped
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Runtime construction and options.
func NewControlRuntime(cfg *Config, opts ...RuntimeOption) (*ControlRuntime, error) {
	return base.NewControlRuntime(cfg, opts...)
}

func WithSensorSource(s SensorSource) RuntimeOption {
	return base.WithSensorSource(s)
}

func WithAdvisor(a Advisor) RuntimeOption {
	return base.WithAdvisor(a)
}

func WithAlertSink(s AlertSink) RuntimeOption {
	return base.WithAlertSink(s)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}
