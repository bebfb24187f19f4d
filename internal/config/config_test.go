package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("engine:\n  mode: page\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Engine.Mode != ModePage {
		t.Errorf("Expected mode %s, got %s", ModePage, cfg.Engine.Mode)
	}
	if cfg.Engine.CommLineShiftBits != DefaultCommLineShiftBits {
		t.Errorf("Expected comm shift %d, got %d", DefaultCommLineShiftBits, cfg.Engine.CommLineShiftBits)
	}
	if cfg.Engine.PageShiftBits != DefaultPageShiftBits {
		t.Errorf("Expected page shift %d, got %d", DefaultPageShiftBits, cfg.Engine.PageShiftBits)
	}
	if cfg.Engine.IntervalDuration() != 100*time.Millisecond {
		t.Errorf("Expected interval 100ms, got %s", cfg.Engine.IntervalDuration())
	}
	if cfg.Engine.ReservedSlots != DefaultReservedSlots {
		t.Errorf("Expected %d reserved slots, got %d", DefaultReservedSlots, cfg.Engine.ReservedSlots)
	}
	if cfg.Engine.KeyShift() != DefaultPageShiftBits {
		t.Errorf("Expected page mode to shift by %d, got %d", DefaultPageShiftBits, cfg.Engine.KeyShift())
	}
}

func TestParse_ExplicitValues(t *testing.T) {
	doc := `
engine:
  mode: comm
  comm_line_shift_bits: 7
  interval: 1s
  max_threads: 4
  reserved_slots: 0
writers:
  - type: text
    enabled: true
    text:
      root_path: /tmp/out
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Engine.KeyShift() != 7 {
		t.Errorf("Expected comm mode to shift by 7, got %d", cfg.Engine.KeyShift())
	}
	if cfg.Engine.ReservedSlots != 0 {
		t.Errorf("Expected explicit zero reserved slots to be kept, got %d", cfg.Engine.ReservedSlots)
	}
	if cfg.Engine.MaxThreads != 4 {
		t.Errorf("Expected 4 max threads, got %d", cfg.Engine.MaxThreads)
	}
	if len(cfg.Writers) != 1 || cfg.Writers[0].Text.RootPath != "/tmp/out" {
		t.Errorf("Unexpected writers: %+v", cfg.Writers)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown mode":     "engine:\n  mode: flow\n",
		"zero comm shift":  "engine:\n  comm_line_shift_bits: 0\n",
		"huge page shift":  "engine:\n  page_shift_bits: 64\n",
		"bad interval":     "engine:\n  interval: soon\n",
		"zero interval":    "engine:\n  interval: 0s\n",
		"negative reserve": "engine:\n  reserved_slots: -1\n",
		"no threads":       "engine:\n  max_threads: 0\n",
		"no shards":        "engine:\n  num_shards: 0\n",
		"zero batch":       "probe:\n  batch_size: 0\n",
		"untyped writer":   "writers:\n  - enabled: true\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  mode: comm\n  max_threads: 8\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.MaxThreads != 8 {
		t.Errorf("Expected 8 max threads, got %d", cfg.Engine.MaxThreads)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLoadConfig_Shipped(t *testing.T) {
	cfg, err := LoadConfig("../../configs/config.yaml")
	if err != nil {
		t.Fatalf("Failed to load shipped config: %v", err)
	}
	if cfg.Engine.Mode != ModeComm {
		t.Errorf("Expected shipped config to use mode %s, got %s", ModeComm, cfg.Engine.Mode)
	}
}
