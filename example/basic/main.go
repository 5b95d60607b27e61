package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/emrig/pulsegate"
)

func main() {
	rt, err := pulsegate.NewControlRuntime(pulsegate.DefaultConfig())
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil {
		log.Fatalf("control runtime exited: %v", err)
	}
}
