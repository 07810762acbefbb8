package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fpbridge/internal/simulator"
)

// Standalone Datecs FP simulator for developing against no hardware.
func main() {
	addr := flag.String("addr", "127.0.0.1:3999", "Listen address")
	flag.Parse()

	sim := simulator.New()
	if err := sim.Start(*addr); err != nil {
		fmt.Printf("Failed to start simulator: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("fpsim - Datecs FP-700 simulator")
	fmt.Printf("Listening on %s\n", sim.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	sim.Stop()
	fmt.Printf("\nSimulator stopped, daily total %.2f\n", sim.DailyTotal())
}
