package observability

import (
	"log"

	"github.com/emrig/pulsegate/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
)

type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the metric set on reg, or on the default registerer
// when reg is nil. Separate registries let multiple runtimes share a process.
func NewPromObs(reg prometheus.Registerer) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsegate_ticks_total",
		Help: "Total control ticks executed.",
	})
	events := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsegate_safety_events_total",
		Help: "Safety events recorded at warning level or above.",
	})
	estops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsegate_emergency_stops_total",
		Help: "Emergency stops, manual and automatic.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsegate_readings_rejected_total",
		Help: "Sensor samples rejected as failed or malformed.",
	})
	fcTimeouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsegate_forecast_timeouts_total",
		Help: "Forecast requests that errored or missed their deadline.",
	})
	fcAdvisories := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulsegate_forecast_advisories_total",
		Help: "Advisory alerts raised from predicted threshold crossings.",
	})
	levelGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulsegate_safety_level",
		Help: "Current safety level (0=normal 1=warning 2=danger 3=emergency).",
	})
	historyGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulsegate_event_history_length",
		Help: "Number of safety events held in the bounded history.",
	})
	tickLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsegate_tick_latency_seconds",
		Help:    "Wall time of one sample-classify-escalate cycle.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
	forecastLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulsegate_forecast_latency_seconds",
		Help:    "Wall time of one advisor forecast, including timeouts.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	reg.MustRegister(ticks, events, estops, rejected, fcTimeouts,
		fcAdvisories, levelGauge, historyGauge, tickLatency, forecastLatency)

	return &PromObs{
		counters: map[string]prometheus.Counter{
			"pulsegate_ticks_total":               ticks,
			"pulsegate_safety_events_total":       events,
			"pulsegate_emergency_stops_total":     estops,
			"pulsegate_readings_rejected_total":   rejected,
			"pulsegate_forecast_timeouts_total":   fcTimeouts,
			"pulsegate_forecast_advisories_total": fcAdvisories,
		},
		gauges: map[string]prometheus.Gauge{
			"pulsegate_safety_level":         levelGauge,
			"pulsegate_event_history_length": historyGauge,
		},
		histos: map[string]prometheus.Observer{
			"pulsegate_tick_latency_seconds":     tickLatency,
			"pulsegate_forecast_latency_seconds": forecastLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("ERROR: %s: %v", msg, err)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		log.Printf("CRITICAL: %s: %v", msg, err)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}
