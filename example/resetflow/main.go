// Walks the emergency acknowledgment flow: trip the rig manually, show that
// a reset is rejected while the hazard persists, then clear it once a fresh
// sample reads safe.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/emrig/pulsegate"
)

type settableSource struct {
	mu      sync.Mutex
	voltage float64
}

func (s *settableSource) set(v float64) {
	s.mu.Lock()
	s.voltage = v
	s.mu.Unlock()
}

func (s *settableSource) Sample(context.Context) (pulsegate.Reading, error) {
	s.mu.Lock()
	v := s.voltage
	s.mu.Unlock()
	return pulsegate.Reading{
		Timestamp:       time.Now(),
		Voltage:         v,
		Current:         20,
		Temperature:     45,
		CapacitorCharge: 0.5,
	}, nil
}

func (s *settableSource) Close() error { return nil }

func main() {
	src := &settableSource{voltage: 1100}

	rt, err := pulsegate.NewControlRuntime(pulsegate.DefaultConfig(),
		pulsegate.WithSensorSource(src))
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}
	if err := rt.Start(); err != nil {
		log.Fatalf("start: %v", err)
	}

	// The first tick reads 1100 V against a 1000 V threshold and latches.
	for rt.Status().State != pulsegate.StateEmergencyStopped {
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Println("rig tripped:", rt.Status().State)

	ctl := rt.Controller()
	err = ctl.AcknowledgeReset(context.Background())
	if !errors.Is(err, pulsegate.ErrUnsafeResetRejected) {
		log.Fatalf("expected rejection while overvolted, got %v", err)
	}
	fmt.Println("reset rejected:", err)

	src.set(600)
	if err := ctl.AcknowledgeReset(context.Background()); err != nil {
		log.Fatalf("reset after hazard cleared: %v", err)
	}
	fmt.Println("latch cleared:", rt.Status().State)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = rt.Shutdown(ctx)
}
