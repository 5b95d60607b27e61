package pulsegate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emrig/pulsegate/internal/adapters/advisor"
	"github.com/emrig/pulsegate/internal/adapters/alert"
	"github.com/emrig/pulsegate/internal/adapters/observability"
	"github.com/emrig/pulsegate/internal/adapters/opcuasource"
	"github.com/emrig/pulsegate/internal/adapters/simsource"
	"github.com/emrig/pulsegate/internal/app/config"
	"github.com/emrig/pulsegate/internal/control"
	"github.com/emrig/pulsegate/internal/domain"
	"github.com/emrig/pulsegate/internal/monitor"
	"github.com/emrig/pulsegate/internal/ports"
)

// ErrEmergencyUnacknowledged is returned by Run when the runtime shuts down
// while an emergency latch is still set. The process must exit non-zero so
// supervisors do not silently restart a tripped rig.
var ErrEmergencyUnacknowledged = errors.New("emergency stop latched and unacknowledged")

// RuntimeOption customizes the dependencies used by ControlRuntime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	source  ports.SensorSource
	advisor ports.Advisor
	alerts  ports.AlertSink
	obs     ports.Observability
	clock   func() time.Time
}

// WithSensorSource injects a custom sensor source (Modbus, CAN, replay files,
// test stubs) in place of the configured one.
func WithSensorSource(s ports.SensorSource) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.source = s
	}
}

// WithAdvisor injects a custom forecast advisor.
func WithAdvisor(a ports.Advisor) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.advisor = a
	}
}

// WithAlertSink adds a custom alert sink alongside the built-in log and
// memory sinks.
func WithAlertSink(s ports.AlertSink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.alerts = s
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs ports.Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.obs = obs
	}
}

// WithClock overrides the wall clock, used by tests to drive escalation
// deterministically.
func WithClock(now func() time.Time) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.clock = now
	}
}

// ControlRuntime wires the sensor source, safety monitor, controller, advisor,
// and observability stack into one embeddable unit with lifecycle hooks.
type ControlRuntime struct {
	cfg        *config.Config
	mode       string
	obs        ports.Observability
	source     ports.SensorSource
	controller *control.Controller
	alertFeed  *alert.MemorySink

	metricsSrv  *http.Server
	tickStopCh  chan struct{}
	tickDoneCh  chan struct{}
	gaugeStopCh chan struct{}
}

// NewControlRuntime bootstraps the default adapters per the configuration:
// simulated or OPC UA sensor source, trend advisor with cache and deadline
// guard, log plus memory alert sinks, Prometheus observability. Options
// override any dependency.
func NewControlRuntime(cfg *config.Config, opts ...RuntimeOption) (*ControlRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.obs
	if obs == nil {
		obs = observability.NewPromObs(nil)
	}

	mode := "simulation"
	source := overrides.source
	if source == nil {
		var err error
		switch cfg.Source.Kind {
		case config.SourceOPCUA:
			mode = "hardware"
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			source, err = opcuasource.New(ctx, cfg.Source.OPCUA)
			cancel()
		default:
			source, err = simsource.New(cfg.Source.Sim)
		}
		if err != nil {
			return nil, err
		}
	}

	adv := overrides.advisor
	if adv == nil && cfg.Advisor.Enabled {
		trend := advisor.NewTrendAdvisor(cfg.Advisor.Window, cfg.Advisor.Horizon)
		cached := advisor.NewCachedAdvisor(trend, cfg.Advisor.CacheEntries)
		adv = advisor.NewGuardedAdvisor(cached, cfg.Advisor.Timeout)
	}

	feed := alert.NewMemorySink(0)
	sinks := alert.Fanout{alert.NewLogSink(nil), feed}
	if overrides.alerts != nil {
		sinks = append(sinks, overrides.alerts)
	}

	clock := overrides.clock
	controller, err := control.New(cfg.ControllerConfig(), control.Deps{
		Monitor: monitor.New(obs),
		Source:  source,
		Advisor: adv,
		Alerts:  sinks,
		Obs:     obs,
		Clock:   clock,
	})
	if err != nil {
		return nil, err
	}

	return &ControlRuntime{
		cfg:        cfg,
		mode:       mode,
		obs:        obs,
		source:     source,
		controller: controller,
		alertFeed:  feed,
	}, nil
}

// Start launches the control session, the tick loop, and the metrics server.
// It returns immediately; call Run to block on a context instead.
func (r *ControlRuntime) Start() error {
	if r == nil {
		return fmt.Errorf("control runtime is nil")
	}
	if err := r.controller.Start(r.mode, r.cfg.MonitorConfig()); err != nil {
		return err
	}

	r.tickStopCh = make(chan struct{})
	r.tickDoneCh = make(chan struct{})
	go r.tickLoop(r.controller.TickInterval())

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the context is cancelled, then
// shuts down. If the rig tripped and nobody acknowledged the latch, the
// returned error is ErrEmergencyUnacknowledged.
func (r *ControlRuntime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if r.controller.Status().Latched {
		return ErrEmergencyUnacknowledged
	}
	return nil
}

// Shutdown stops the tick loop, the metrics server, the session, and the
// sensor source. An emergency latch survives shutdown untouched.
func (r *ControlRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.tickStopCh != nil {
		close(r.tickStopCh)
		<-r.tickDoneCh
		r.tickStopCh = nil
	}
	if r.gaugeStopCh != nil {
		close(r.gaugeStopCh)
		r.gaugeStopCh = nil
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if err := r.controller.Stop(); err != nil && !errors.Is(err, domain.ErrInvalidState) {
		errs = append(errs, err)
	}

	if err := r.source.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Controller exposes the underlying state machine for manual commands:
// EmergencyStop, AcknowledgeDanger, AcknowledgeReset, Status.
func (r *ControlRuntime) Controller() *control.Controller {
	return r.controller
}

// Status returns the current session snapshot.
func (r *ControlRuntime) Status() control.Status {
	return r.controller.Status()
}

// RecentAlerts returns the newest n alerts, newest first.
func (r *ControlRuntime) RecentAlerts(n int) []domain.Alert {
	return r.alertFeed.Recent(n)
}

func (r *ControlRuntime) tickLoop(interval time.Duration) {
	defer close(r.tickDoneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.tickStopCh:
			return
		case <-ticker.C:
			start := time.Now()
			if _, err := r.controller.Tick(context.Background()); err != nil {
				r.obs.LogError("tick_failed", err)
			}
			r.obs.ObserveLatency("pulsegate_tick_latency_seconds", time.Since(start).Seconds())
		}
	}
}

func (r *ControlRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	r.gaugeStopCh = make(chan struct{})
	go r.recordLevelGauge(r.gaugeStopCh, time.Second)
}

func (r *ControlRuntime) recordLevelGauge(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge("pulsegate_safety_level", float64(r.controller.Level()))
		}
	}
}
