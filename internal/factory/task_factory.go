package factory

import (
	"Go2MemSpectra/internal/config"
	"Go2MemSpectra/internal/model"
	"errors"
	"fmt"
	"log"
)

// ErrUnknownMode is returned when no tracker is registered under the configured mode.
var ErrUnknownMode = errors.New("unknown tracking mode")

// TrackerGroup is the active tracker of a run together with its writers.
type TrackerGroup struct {
	Tracker model.Tracker
	Writers []model.Writer
}

// TrackerFactory defines a function that creates a tracker and its writers.
type TrackerFactory func(cfg *config.Config) (*TrackerGroup, error)

// registry holds the mapping of modes to their factory functions.
var registry = make(map[string]TrackerFactory)

// RegisterTracker registers a new tracking mode with its factory function.
func RegisterTracker(mode string, factory TrackerFactory) {
	if _, exists := registry[mode]; exists {
		panic(fmt.Sprintf("tracker mode '%s' already registered", mode))
	}
	registry[mode] = factory
}

// Create builds the tracker group for the configured mode. Exactly one mode is active per run.
func Create(cfg *config.Config) (*TrackerGroup, error) {
	mode := cfg.Engine.Mode
	log.Printf("Creating tracker and writers for mode: '%s'", mode)

	factory, ok := registry[mode]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownMode, mode)
	}

	group, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating tracker for mode '%s': %w", mode, err)
	}
	return group, nil
}
