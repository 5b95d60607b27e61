package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPromObsMetrics(t *testing.T) {
	obs := NewPromObs(prometheus.NewRegistry())

	obs.IncCounter("pulsegate_ticks_total", 5)
	if got := testutil.ToFloat64(obs.counters["pulsegate_ticks_total"]); got != 5 {
		t.Fatalf("expected tick counter 5, got %f", got)
	}

	obs.IncCounter("pulsegate_emergency_stops_total", 1)
	if got := testutil.ToFloat64(obs.counters["pulsegate_emergency_stops_total"]); got != 1 {
		t.Fatalf("expected emergency stop counter 1, got %f", got)
	}

	obs.SetGauge("pulsegate_safety_level", 2)
	if got := testutil.ToFloat64(obs.gauges["pulsegate_safety_level"]); got != 2 {
		t.Fatalf("expected level gauge 2, got %f", got)
	}

	obs.SetGauge("pulsegate_event_history_length", 17)
	if got := testutil.ToFloat64(obs.gauges["pulsegate_event_history_length"]); got != 17 {
		t.Fatalf("expected history gauge 17, got %f", got)
	}

	obs.ObserveLatency("pulsegate_tick_latency_seconds", 0.002)
	hCollector := obs.histos["pulsegate_tick_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected tick latency histogram to record 1 sample, got %d", samples)
	}

	obs.ObserveLatency("pulsegate_forecast_latency_seconds", 0.04)
	fCollector := obs.histos["pulsegate_forecast_latency_seconds"].(prometheus.Collector)
	if samples := testutil.CollectAndCount(fCollector); samples != 1 {
		t.Fatalf("expected forecast latency histogram to record 1 sample, got %d", samples)
	}

	// Unknown names are ignored rather than panicking.
	obs.IncCounter("pulsegate_unknown_total", 1)
	obs.SetGauge("pulsegate_unknown", 1)
	obs.ObserveLatency("pulsegate_unknown_seconds", 1)
}

func TestPromObsSeparateRegistries(t *testing.T) {
	// Two instances in one process must not collide as long as each gets its
	// own registry.
	a := NewPromObs(prometheus.NewRegistry())
	b := NewPromObs(prometheus.NewRegistry())

	a.IncCounter("pulsegate_ticks_total", 3)
	if got := testutil.ToFloat64(b.counters["pulsegate_ticks_total"]); got != 0 {
		t.Fatalf("registries must be independent, got %f", got)
	}
}
