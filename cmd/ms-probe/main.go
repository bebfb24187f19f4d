package main

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/probe"
	"Go2MemSpectra/pkg/tracefile"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// --- Command-Line Flag Parsing ---
	configPath := flag.String("config", "configs/config.yaml", "Path to the YAML configuration file.")
	mode := flag.String("mode", "sub", "Operating mode: 'pub' to publish a trace file, 'sub' to subscribe and print.")
	tracePath := flag.String("trace", "", "Trace file to publish (required for pub mode).")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// --- Mode Dispatch ---
	switch *mode {
	case "pub":
		runPublisher(cfg.Probe, *tracePath)
	case "sub":
		runSubscriber(cfg.Probe)
	default:
		fmt.Fprintf(os.Stderr, "Invalid mode: %s\n", *mode)
		flag.Usage()
		os.Exit(1)
	}
}

// runPublisher reads a trace file and publishes its events to NATS.
func runPublisher(cfg config.ProbeConfig, tracePath string) {
	if tracePath == "" {
		log.Println("Error: -trace flag is required for pub mode.")
		flag.Usage()
		os.Exit(1)
	}
	log.Printf("Starting ms-probe in PUBLISH mode for trace: %s", tracePath)

	pub, err := probe.NewPublisher(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	reader, err := tracefile.Open(tracePath)
	if err != nil {
		log.Fatalf("Error opening trace %s: %v", tracePath, err)
	}
	defer reader.Close()

	exited := false
	for !exited {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Error reading trace: %v", err)
		}
		switch ev.Kind {
		case tracefile.Access:
			err = pub.OnMemoryAccess(ev.Addr, ev.Slot)
		case tracefile.ThreadStart:
			err = pub.OnThreadStart(ev.Slot)
		case tracefile.Exit:
			err = pub.OnProgramExit()
			exited = true
		}
		if err != nil {
			log.Fatalf("Failed to publish event: %v", err)
		}
		if n := pub.Published(); n > 0 && n%100000 == 0 {
			log.Printf("%d accesses published...", n)
		}
	}
	if !exited {
		if err := pub.OnProgramExit(); err != nil {
			log.Fatalf("Failed to publish exit: %v", err)
		}
	}
	log.Printf("Published %d accesses.", pub.Published())
}

// runSubscriber prints every event received from NATS.
func runSubscriber(cfg config.ProbeConfig) {
	log.Println("Starting ms-probe in SUBSCRIBER mode...")

	sub, err := probe.NewSubscriber(cfg)
	if err != nil {
		log.Fatalf("Failed to create subscriber: %v", err)
	}
	defer sub.Close()

	done := make(chan struct{})
	if err := sub.Start(&printSink{done: done}); err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("Shutdown signal received, cleaning up...")
	case <-done:
		log.Println("Program exit received, cleaning up...")
	}
}

// printSink logs every event it receives.
type printSink struct {
	done   chan struct{}
	closed bool
}

func (p *printSink) OnMemoryAccess(addr uint64, slot uint32) {
	log.Printf("Access: addr=%#x slot=%d", addr, slot)
}

func (p *printSink) OnThreadStart(slot uint32) error {
	log.Printf("Thread start: slot=%d", slot)
	return nil
}

func (p *printSink) OnProgramExit() {
	log.Println("Program exit")
	if !p.closed {
		p.closed = true
		close(p.done)
	}
}
