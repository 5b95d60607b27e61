// Package control owns the operational state machine of the rig: it polls the
// sensor source, feeds the safety monitor, consults the predictive advisor,
// and authorizes or forbids rig operation. All state transitions go through
// this package; the monitor only ever reports levels.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/monitor"
	"github.com/emrig/pulsegate/internal/ports"
)

// State is the operational state of the control session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
	StateEmergencyStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateEmergencyStopped:
		return "emergency_stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultTickInterval    = 100 * time.Millisecond
	defaultDangerGrace     = 5 * time.Second
	defaultRecentWindow    = 50
	defaultForecastTimeout = 50 * time.Millisecond
	defaultMinConfidence   = 0.5
)

// Config tunes the escalation policy and advisory handling.
type Config struct {
	TickInterval          time.Duration
	DangerGrace           time.Duration
	RecentWindow          int
	ForecastTimeout       time.Duration
	MinForecastConfidence float64
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.DangerGrace <= 0 {
		c.DangerGrace = defaultDangerGrace
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = defaultRecentWindow
	}
	if c.ForecastTimeout <= 0 {
		c.ForecastTimeout = defaultForecastTimeout
	}
	if c.MinForecastConfidence <= 0 {
		c.MinForecastConfidence = defaultMinConfidence
	}
}

// Deps wires the controller's collaborators. Monitor and Source are required;
// Advisor, Alerts, and Obs are optional and degrade to no-ops.
type Deps struct {
	Monitor *monitor.Monitor
	Source  ports.SensorSource
	Advisor ports.Advisor
	Alerts  ports.AlertSink
	Obs     ports.Observability
	Clock   func() time.Time
}

// Status is a read-only snapshot of the control session.
type Status struct {
	State          State              `json:"state"`
	Level          domain.SafetyLevel `json:"level"`
	Mode           string             `json:"mode"`
	RunTime        time.Duration      `json:"run_time"`
	EmergencyStops int                `json:"emergency_stops"`
	LastTick       time.Time          `json:"last_tick"`
	Latched        bool               `json:"latched"`
}

// Controller is the central control system. Every mutating operation is
// serialized on one mutex so concurrent callers (UI thread, watchdog) always
// converge on a single state.
type Controller struct {
	cfg     Config
	monitor *monitor.Monitor
	source  ports.SensorSource
	advisor ports.Advisor
	alerts  ports.AlertSink
	obs     ports.Observability
	now     func() time.Time

	mu             sync.Mutex
	state          State
	level          domain.SafetyLevel
	mode           string
	runTime        time.Duration
	lastTick       time.Time
	dangerSince    time.Time
	latched        bool
	emergencyStops int
	recent         []domain.Reading

	forecastBusy atomic.Bool
}

func New(cfg Config, deps Deps) (*Controller, error) {
	cfg.applyDefaults()
	if deps.Monitor == nil {
		return nil, fmt.Errorf("%w: monitor is required", domain.ErrInvalidConfiguration)
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("%w: sensor source is required", domain.ErrInvalidConfiguration)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Controller{
		cfg:     cfg,
		monitor: deps.Monitor,
		source:  deps.Source,
		advisor: deps.Advisor,
		alerts:  deps.Alerts,
		obs:     deps.Obs,
		now:     clock,
		state:   StateIdle,
	}, nil
}

// Start configures the monitor and transitions to Running. Legal from Idle and
// from a clean Stop; an emergency latch must be acknowledged first.
func (c *Controller) Start(mode string, mcfg monitor.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle, StateStopped:
	default:
		return fmt.Errorf("%w: cannot start from %s", domain.ErrInvalidState, c.state)
	}
	if err := c.monitor.Configure(mcfg); err != nil {
		return err
	}

	c.state = StateRunning
	c.mode = mode
	c.level = domain.LevelNormal
	c.runTime = 0
	c.lastTick = time.Time{}
	c.dangerSince = time.Time{}
	c.recent = c.recent[:0]
	c.logInfo("session_started", ports.Field{Key: "mode", Value: mode})
	return nil
}

// Tick is the per-cycle unit of work: sample, classify, escalate. The caller
// owns the cadence. Outside Running it is a no-op reporting the current level.
func (c *Controller) Tick(ctx context.Context) (domain.SafetyLevel, error) {
	c.mu.Lock()
	if c.state != StateRunning {
		level := c.level
		c.mu.Unlock()
		return level, nil
	}
	c.mu.Unlock()

	reading, sampleErr := c.source.Sample(ctx)

	level := domain.LevelNormal
	valid := sampleErr == nil
	if valid {
		var err error
		level, err = c.monitor.Evaluate(reading)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidReading) {
				return domain.LevelNormal, err
			}
			sampleErr = err
			valid = false
		}
	}
	if !valid {
		// Sensor malfunction is itself unsafe: treat the failed sample as a
		// Danger-level condition feeding the same grace-period escalation.
		level = domain.LevelDanger
		c.incCounter("pulsegate_readings_rejected_total", 1)
		c.logError("reading_rejected", sampleErr)
	}

	now := c.now()

	c.mu.Lock()
	if c.state != StateRunning {
		// A concurrent stop won the race; nothing may actuate after it.
		level := c.level
		c.mu.Unlock()
		return level, nil
	}

	if valid {
		c.pushRecentLocked(reading)
	}
	if !c.lastTick.IsZero() {
		c.runTime += now.Sub(c.lastTick)
	}
	c.lastTick = now
	c.incCounter("pulsegate_ticks_total", 1)

	switch level {
	case domain.LevelNormal:
		c.dangerSince = time.Time{}
	case domain.LevelWarning:
		c.dangerSince = time.Time{}
		// Notify on entry only; a sustained warning at tick cadence would
		// flood the alert feed.
		if c.level != domain.LevelWarning {
			c.notify(domain.Alert{
				Time:     now,
				Severity: domain.LevelWarning,
				Message:  "safety margin shrinking; no action required",
			})
		}
	case domain.LevelDanger:
		if c.dangerSince.IsZero() {
			c.dangerSince = now
			c.notify(domain.Alert{
				Time:     now,
				Severity: domain.LevelDanger,
				Message:  "danger condition detected; acknowledge or the rig escalates to emergency stop",
				Sticky:   true,
			})
		} else if now.Sub(c.dangerSince) >= c.cfg.DangerGrace {
			level = domain.LevelEmergency
			c.latchLocked(now, "danger persisted beyond grace period without acknowledgment")
		}
	case domain.LevelEmergency:
		c.latchLocked(now, "emergency-level reading")
	}

	c.level = level
	c.setGauge("pulsegate_safety_level", float64(level))

	var window []domain.Reading
	consult := c.advisor != nil && c.state == StateRunning && len(c.recent) > 1
	if consult {
		window = make([]domain.Reading, len(c.recent))
		copy(window, c.recent)
	}
	c.mu.Unlock()

	if consult {
		c.consultAdvisor(window)
	}
	return level, nil
}

// AcknowledgeDanger restarts the grace period while a danger condition is
// being handled by the operator.
func (c *Controller) AcknowledgeDanger() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning || c.level != domain.LevelDanger {
		return fmt.Errorf("%w: no danger alert to acknowledge in %s/%s", domain.ErrInvalidState, c.state, c.level)
	}
	c.dangerSince = c.now()
	c.logInfo("danger_acknowledged")
	return nil
}

// Stop performs a clean, reversible halt. Unlike an emergency stop it leaves
// no latch behind.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return fmt.Errorf("%w: cannot stop from %s", domain.ErrInvalidState, c.state)
	}
	c.state = StateStopped
	c.dangerSince = time.Time{}
	c.logInfo("session_stopped", ports.Field{Key: "run_time", Value: c.runTime})
	return nil
}

// EmergencyStop is the manual trigger mirroring the automatic path in Tick.
// It bypasses grace periods and is legal from any state except Idle. Calling
// it on an already latched controller converges without error.
func (c *Controller) EmergencyStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateIdle:
		return fmt.Errorf("%w: rig is idle, nothing to stop", domain.ErrInvalidState)
	case StateEmergencyStopped:
		return nil
	}
	now := c.now()
	c.latchLocked(now, "manual emergency stop")
	c.level = domain.LevelEmergency
	c.setGauge("pulsegate_safety_level", float64(domain.LevelEmergency))
	return nil
}

// AcknowledgeReset clears the emergency latch, but only after a fresh sample
// proves the hazard has passed.
func (c *Controller) AcknowledgeReset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateEmergencyStopped {
		return fmt.Errorf("%w: no emergency latch to reset in %s", domain.ErrInvalidState, c.state)
	}

	reading, err := c.source.Sample(ctx)
	if err != nil {
		return fmt.Errorf("%w: fresh sample unavailable: %v", domain.ErrUnsafeResetRejected, err)
	}
	level, breaches, err := c.monitor.Classify(reading)
	if err != nil {
		return fmt.Errorf("%w: fresh sample rejected: %v", domain.ErrUnsafeResetRejected, err)
	}
	if level >= domain.LevelEmergency {
		rep := breaches[0]
		for _, b := range breaches[1:] {
			if b.Fraction > rep.Fraction {
				rep = b
			}
		}
		return fmt.Errorf("%w: %s still at %.1f%% of threshold", domain.ErrUnsafeResetRejected, rep.Metric, rep.Fraction*100)
	}

	c.state = StateIdle
	c.latched = false
	c.level = level
	c.dangerSince = time.Time{}
	c.setGauge("pulsegate_safety_level", float64(level))
	c.logInfo("emergency_latch_cleared", ports.Field{Key: "level", Value: level.String()})
	return nil
}

// TickInterval returns the cadence the caller should drive Tick at, with
// defaults applied.
func (c *Controller) TickInterval() time.Duration {
	return c.cfg.TickInterval
}

// State returns the current operational state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Level returns the most recently computed safety level.
func (c *Controller) Level() domain.SafetyLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Status returns a consistent snapshot of the session.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:          c.state,
		Level:          c.level,
		Mode:           c.mode,
		RunTime:        c.runTime,
		EmergencyStops: c.emergencyStops,
		LastTick:       c.lastTick,
		Latched:        c.latched,
	}
}

// RecentReadings returns the newest n readings, oldest first.
func (c *Controller) RecentReadings(n int) []domain.Reading {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 || n > len(c.recent) {
		n = len(c.recent)
	}
	out := make([]domain.Reading, n)
	copy(out, c.recent[len(c.recent)-n:])
	return out
}

// RecentEvents returns the newest n safety events from the monitor history.
func (c *Controller) RecentEvents(n int) []domain.Event {
	return c.monitor.Recent(n)
}

// Summary aggregates the monitor history over the trailing window.
func (c *Controller) Summary(window time.Duration) domain.Summary {
	return c.monitor.Summary(c.now(), window)
}

// ResetHistory clears the safety event history. Session state and any
// emergency latch are unaffected.
func (c *Controller) ResetHistory() {
	c.monitor.ResetHistory()
}

func (c *Controller) pushRecentLocked(r domain.Reading) {
	if len(c.recent) >= c.cfg.RecentWindow {
		c.recent = append(c.recent[:0], c.recent[1:]...)
	}
	c.recent = append(c.recent, r)
}

// latchLocked transitions to EmergencyStopped and sets the latch. Callers hold
// the mutex. The latch is irreversible without AcknowledgeReset.
func (c *Controller) latchLocked(now time.Time, reason string) {
	c.state = StateEmergencyStopped
	c.latched = true
	c.emergencyStops++
	c.dangerSince = time.Time{}
	c.incCounter("pulsegate_emergency_stops_total", 1)
	c.logCritical("emergency_stop", errors.New(reason))
	c.notify(domain.Alert{
		Time:     now,
		Severity: domain.LevelEmergency,
		Message:  "EMERGENCY STOP: " + reason,
		Sticky:   true,
	})
}

// consultAdvisor runs off the critical safety path: one forecast in flight at
// a time, hard deadline, failures degrade to "no advisory".
func (c *Controller) consultAdvisor(window []domain.Reading) {
	if !c.forecastBusy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.forecastBusy.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ForecastTimeout)
		defer cancel()

		start := time.Now()
		forecast, err := c.advisor.Forecast(ctx, window)
		c.observeLatency("pulsegate_forecast_latency_seconds", time.Since(start).Seconds())
		if err != nil {
			c.incCounter("pulsegate_forecast_timeouts_total", 1)
			c.logError("forecast_unavailable", err)
			return
		}
		if !forecast.Usable(c.cfg.MinForecastConfidence) {
			return
		}

		thresholds := c.monitor.Thresholds()
		for metric, traj := range forecast.Trajectories {
			bound := thresholds.Value(metric)
			if bound <= 0 {
				continue
			}
			for step, v := range traj {
				if v >= bound {
					c.incCounter("pulsegate_forecast_advisories_total", 1)
					c.notify(domain.Alert{
						Time:     c.now(),
						Severity: domain.LevelWarning,
						Message: fmt.Sprintf("forecast predicts %s reaching threshold within %d steps (confidence %.2f)",
							metric, step+1, forecast.Confidence),
					})
					return
				}
			}
		}
	}()
}

func (c *Controller) notify(a domain.Alert) {
	if c.alerts != nil {
		c.alerts.Notify(a)
	}
}

func (c *Controller) logInfo(msg string, fields ...ports.Field) {
	if c.obs != nil {
		c.obs.LogInfo(msg, fields...)
	}
}

func (c *Controller) logError(msg string, err error) {
	if c.obs != nil {
		c.obs.LogError(msg, err)
	}
}

func (c *Controller) logCritical(msg string, err error) {
	if c.obs != nil {
		c.obs.LogCritical(msg, err)
	}
}

func (c *Controller) incCounter(name string, v float64) {
	if c.obs != nil {
		c.obs.IncCounter(name, v)
	}
}

func (c *Controller) setGauge(name string, v float64) {
	if c.obs != nil {
		c.obs.SetGauge(name, v)
	}
}

func (c *Controller) observeLatency(name string, seconds float64) {
	if c.obs != nil {
		c.obs.ObserveLatency(name, seconds)
	}
}
