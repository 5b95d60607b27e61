// Injects a hand-rolled sensor source: a slow voltage ramp that crosses the
// warning, danger, and emergency breakpoints so the full escalation path can
// be watched from a terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/emrig/pulsegate"
)

type rampSource struct {
	voltage float64
}

func (r *rampSource) Sample(context.Context) (pulsegate.Reading, error) {
	r.voltage += 5
	return pulsegate.Reading{
		Timestamp:       time.Now(),
		Voltage:         r.voltage,
		Current:         20,
		Temperature:     45,
		CapacitorCharge: 0.5,
	}, nil
}

func (r *rampSource) Close() error { return nil }

func main() {
	cfg := pulsegate.DefaultConfig()
	cfg.Control.TickInterval = 50 * time.Millisecond
	cfg.Control.DangerGrace = 2 * time.Second

	rt, err := pulsegate.NewControlRuntime(cfg,
		pulsegate.WithSensorSource(&rampSource{voltage: 700}))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if errors.Is(err, pulsegate.ErrEmergencyUnacknowledged) {
				fmt.Println("rig tripped and the latch was never acknowledged")
				return
			}
			if err != nil {
				log.Fatalf("runtime error: %v", err)
			}
			return
		case <-ticker.C:
			st := rt.Status()
			fmt.Printf("state=%s level=%s run_time=%s\n", st.State, st.Level, st.RunTime)
			if st.State == pulsegate.StateEmergencyStopped {
				cancel()
			}
		}
	}
}
