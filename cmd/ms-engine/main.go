package main

import (
	"Go2MemSpectra/internal/api"
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/engine/manager"
	"Go2MemSpectra/internal/probe"
	"Go2MemSpectra/pkg/tracefile"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	tracePath := flag.String("trace", "", "Replay a recorded trace file instead of subscribing to NATS.")
	flag.Parse()

	log.Println("Starting ms-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the engine for the configured mode
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// 3. Start the status servers
	apiServer := api.NewServer(cfg.API, mgr)
	if err := apiServer.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	// 4. Start the reporter and attach the event source
	mgr.Start()
	if *tracePath != "" {
		go replay(*tracePath, mgr)
	} else {
		sub, err := probe.NewSubscriber(cfg.Probe)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer sub.Close()
		if err := sub.Start(mgr); err != nil {
			log.Fatalf("Subscriber failed to start: %v", err)
		}
	}

	// 5. Run until the traced program exits or we are told to stop
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-mgr.Stopped():
		log.Println("Traced program exited.")
	case <-sigChan:
		log.Println("Shutdown signal received, taking final snapshot...")
		mgr.OnProgramExit()
	}

	apiServer.MarkStopped()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	apiServer.Shutdown(ctx)
	log.Println("Shutdown complete.")
}

// replay feeds a trace file into the engine. A trace without an exit record ends the run when it runs out.
func replay(path string, mgr *manager.Manager) {
	reader, err := tracefile.Open(path)
	if err != nil {
		log.Printf("Failed to open trace file: %v", err)
		mgr.OnProgramExit()
		return
	}
	defer reader.Close()

	log.Printf("Replaying trace '%s'...", path)
	stats, err := reader.Replay(mgr)
	if err != nil {
		log.Printf("Trace replay stopped: %v", err)
	}
	log.Printf("Replayed %d accesses and %d thread starts.", stats.Accesses, stats.ThreadStarts)
	if !stats.Exited {
		mgr.OnProgramExit()
	}
}
