package config

import (
	"fmt"
	"os"
	"time"

	"github.com/emrig/pulsegate/internal/adapters/opcuasource"
	"github.com/emrig/pulsegate/internal/adapters/simsource"
	"github.com/emrig/pulsegate/internal/control"
	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/monitor"
	"gopkg.in/yaml.v3"
)

const (
	SourceSim   = "sim"
	SourceOPCUA = "opcua"
)

type Config struct {
	Safety  SafetyConfig  `yaml:"safety"`
	Control ControlConfig `yaml:"control"`
	Source  SourceConfig  `yaml:"source"`
	Advisor AdvisorConfig `yaml:"advisor"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type SafetyConfig struct {
	Thresholds      domain.Thresholds `yaml:"thresholds"`
	WarnFraction    float64           `yaml:"warn_fraction"`
	DangerFraction  float64           `yaml:"danger_fraction"`
	HistoryCapacity int               `yaml:"history_capacity"`
}

type ControlConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	DangerGrace  time.Duration `yaml:"danger_grace"`
	RecentWindow int           `yaml:"recent_window"`
}

type SourceConfig struct {
	Kind  string             `yaml:"kind"`
	Sim   simsource.Config   `yaml:"sim"`
	OPCUA opcuasource.Config `yaml:"opcua"`
}

type AdvisorConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Window        int           `yaml:"window"`
	Horizon       int           `yaml:"horizon"`
	CacheEntries  int           `yaml:"cache_entries"`
	Timeout       time.Duration `yaml:"timeout"`
	MinConfidence float64       `yaml:"min_confidence"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given: simulated
// source, advisor on, stock rig thresholds.
func Default() *Config {
	cfg := &Config{Advisor: AdvisorConfig{Enabled: true}}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Safety.Thresholds == (domain.Thresholds{}) {
		c.Safety.Thresholds = domain.Thresholds{
			Voltage:         1000,
			Current:         50,
			Temperature:     85,
			CapacitorCharge: 0.9,
		}
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceSim
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Advisor.Timeout <= 0 {
		c.Advisor.Timeout = 50 * time.Millisecond
	}
	if c.Advisor.MinConfidence <= 0 {
		c.Advisor.MinConfidence = 0.5
	}
	c.Source.Sim.ApplyDefaults()
	if c.Source.Kind == SourceOPCUA {
		c.Source.OPCUA.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	if err := c.Safety.Thresholds.Validate(); err != nil {
		return fmt.Errorf("safety config: %w", err)
	}
	switch c.Source.Kind {
	case SourceSim:
		if err := c.Source.Sim.Validate(); err != nil {
			return fmt.Errorf("sim source config: %w", err)
		}
	case SourceOPCUA:
		if err := c.Source.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua source config: %w", err)
		}
	default:
		return fmt.Errorf("%w: unknown source kind %q (want %q or %q)",
			domain.ErrInvalidConfiguration, c.Source.Kind, SourceSim, SourceOPCUA)
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required", domain.ErrInvalidConfiguration)
	}
	return nil
}

// MonitorConfig maps the safety section onto the monitor's session config.
func (c *Config) MonitorConfig() monitor.Config {
	return monitor.Config{
		Thresholds:      c.Safety.Thresholds,
		WarnFraction:    c.Safety.WarnFraction,
		DangerFraction:  c.Safety.DangerFraction,
		HistoryCapacity: c.Safety.HistoryCapacity,
	}
}

// ControllerConfig maps the control and advisor sections onto the controller.
func (c *Config) ControllerConfig() control.Config {
	return control.Config{
		TickInterval:          c.Control.TickInterval,
		DangerGrace:           c.Control.DangerGrace,
		RecentWindow:          c.Control.RecentWindow,
		ForecastTimeout:       c.Advisor.Timeout,
		MinForecastConfidence: c.Advisor.MinConfidence,
	}
}
