package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	ModeComm = "comm"
	ModePage = "page"
)

const (
	DefaultCommLineShiftBits = 6
	DefaultPageShiftBits     = 12
	DefaultInterval          = "100ms"
	DefaultMaxThreads        = 128
	DefaultReservedSlots     = 1
	DefaultNumShards         = 256
	DefaultBatchSize         = 512
)

// EngineConfig holds the tracing parameters. They are fixed for the lifetime of the process.
type EngineConfig struct {
	Mode              string `yaml:"mode"`
	CommLineShiftBits uint   `yaml:"comm_line_shift_bits"`
	PageShiftBits     uint   `yaml:"page_shift_bits"`
	Interval          string `yaml:"interval"`
	MaxThreads        int    `yaml:"max_threads"`
	// ReservedSlots is the number of host slots after slot 0 that belong to the host itself.
	ReservedSlots int `yaml:"reserved_slots"`
	NumShards     int `yaml:"num_shards"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// TextConfig holds the settings for the CSV text writer.
type TextConfig struct {
	RootPath string `yaml:"root_path"`
	Prefix   string `yaml:"prefix"`
}

// WriterDef defines a single snapshot writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	Text       TextConfig       `yaml:"text"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ProbeConfig holds the NATS transport settings shared by ms-probe and ms-engine.
type ProbeConfig struct {
	NATSURL   string `yaml:"nats_url"`
	Subject   string `yaml:"subject"`
	BatchSize int    `yaml:"batch_size"`
}

// APIConfig holds the listen addresses of the status servers. Empty disables a server.
type APIConfig struct {
	HttpListenAddr string `yaml:"http_listen_addr"`
	GrpcListenAddr string `yaml:"grpc_listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine  EngineConfig `yaml:"engine"`
	Writers []WriterDef  `yaml:"writers"`
	Probe   ProbeConfig  `yaml:"probe"`
	API     APIConfig    `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file, fills in defaults and validates it.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
// Fields absent from the document keep their defaults; explicit values, including zero, are validated as given.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied and no writers.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Mode:              ModeComm,
			CommLineShiftBits: DefaultCommLineShiftBits,
			PageShiftBits:     DefaultPageShiftBits,
			Interval:          DefaultInterval,
			MaxThreads:        DefaultMaxThreads,
			ReservedSlots:     DefaultReservedSlots,
			NumShards:         DefaultNumShards,
		},
		Probe: ProbeConfig{
			Subject:   "gomem.events",
			BatchSize: DefaultBatchSize,
		},
	}
}

// Validate rejects malformed configurations before any tracing begins.
func (c *Config) Validate() error {
	e := c.Engine
	switch e.Mode {
	case ModeComm, ModePage:
	default:
		return fmt.Errorf("%w: unknown mode '%s', expected '%s' or '%s'", ErrInvalidConfig, e.Mode, ModeComm, ModePage)
	}
	if e.CommLineShiftBits == 0 || e.CommLineShiftBits >= 64 {
		return fmt.Errorf("%w: comm_line_shift_bits must be in [1, 63], got %d", ErrInvalidConfig, e.CommLineShiftBits)
	}
	if e.PageShiftBits == 0 || e.PageShiftBits >= 64 {
		return fmt.Errorf("%w: page_shift_bits must be in [1, 63], got %d", ErrInvalidConfig, e.PageShiftBits)
	}
	interval, err := time.ParseDuration(e.Interval)
	if err != nil {
		return fmt.Errorf("%w: invalid interval: %v", ErrInvalidConfig, err)
	}
	if interval <= 0 {
		return fmt.Errorf("%w: interval must be a positive duration, got %s", ErrInvalidConfig, e.Interval)
	}
	if e.MaxThreads < 1 {
		return fmt.Errorf("%w: max_threads must be at least 1, got %d", ErrInvalidConfig, e.MaxThreads)
	}
	if e.ReservedSlots < 0 {
		return fmt.Errorf("%w: reserved_slots must not be negative, got %d", ErrInvalidConfig, e.ReservedSlots)
	}
	if e.NumShards < 1 || e.NumShards > 1<<16 {
		return fmt.Errorf("%w: num_shards must be in [1, 65536], got %d", ErrInvalidConfig, e.NumShards)
	}
	if c.Probe.BatchSize < 1 {
		return fmt.Errorf("%w: probe batch_size must be at least 1, got %d", ErrInvalidConfig, c.Probe.BatchSize)
	}
	for _, w := range c.Writers {
		if w.Enabled && w.Type == "" {
			return fmt.Errorf("%w: enabled writer without a type", ErrInvalidConfig)
		}
	}
	return nil
}

// IntervalDuration returns the parsed reporting interval. Call only on a validated Config.
func (e EngineConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(e.Interval)
	return d
}

// KeyShift returns the address shift of the active mode.
func (e EngineConfig) KeyShift() uint {
	if e.Mode == ModePage {
		return e.PageShiftBits
	}
	return e.CommLineShiftBits
}
