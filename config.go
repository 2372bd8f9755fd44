package aisbridge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BoundingBox is a latitude/longitude rectangle used both as the upstream
// subscription filter and as the hot-swappable value passed to
// ReplaceBoundingBox. West > East represents a box crossing the antimeridian.
type BoundingBox struct {
	North float64 `yaml:"north"`
	South float64 `yaml:"south"`
	East  float64 `yaml:"east"`
	West  float64 `yaml:"west"`
}

// SubscriptionJSON renders the bounding box in the wire order the upstream
// subscription frame requires: [[south, west], [north, east]]. The in-memory
// field order above is free; this serialization order is the contract.
func (b BoundingBox) SubscriptionJSON() [2][2]float64 {
	return [2][2]float64{
		{b.South, b.West},
		{b.North, b.East},
	}
}

// NetworkConfig groups the two outbound sink configurations.
type NetworkConfig struct {
	EnableStream   bool `yaml:"enable_stream"`
	EnableDatagram bool `yaml:"enable_datagram"`

	Stream struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		MaxConnections int    `yaml:"max_connections"`
	} `yaml:"stream"`

	Datagram struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"datagram"`
}

// LoggingConfig holds ambient logging knobs.
type LoggingConfig struct {
	StatisticsIntervalSeconds int `yaml:"statistics_interval_seconds"`
}

// Config is the fully validated, immutable configuration snapshot the
// service controller holds behind an atomic pointer. A Config returned from
// Load is always complete; there is no partially-populated success case.
type Config struct {
	APIKey      string        `yaml:"api_key"`
	StreamURL   string        `yaml:"stream_url"`
	BoundingBox BoundingBox   `yaml:"bounding_box"`
	Network     NetworkConfig `yaml:"network"`
	Logging     LoggingConfig `yaml:"logging"`
}

const defaultStatisticsIntervalSeconds = 30

// Load reads and validates a YAML configuration file at path, applying
// documented defaults. The API key in the returned Config may still be
// overridden by ResolveAPIKey's higher-priority sources.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: reading %s: %v", ErrConfigInvalid, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parsing %s: %v", ErrConfigInvalid, path, err)
	}

	if cfg.Logging.StatisticsIntervalSeconds <= 0 {
		cfg.Logging.StatisticsIntervalSeconds = defaultStatisticsIntervalSeconds
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the structural invariants documented for the configuration
// surface. It does not check APIKey, since ResolveAPIKey may still supply it
// from a higher-priority source after Load returns.
func (c Config) Validate() error {
	if c.StreamURL == "" {
		return fmt.Errorf("%w: stream_url is required", ErrConfigInvalid)
	}
	if c.BoundingBox.South >= c.BoundingBox.North {
		return fmt.Errorf("%w: bounding_box.south must be less than north", ErrConfigInvalid)
	}
	if !c.Network.EnableStream && !c.Network.EnableDatagram {
		return fmt.Errorf("%w: at least one of network.enable_stream/enable_datagram must be true", ErrConfigInvalid)
	}
	if c.Network.EnableStream {
		if err := validatePort(c.Network.Stream.Port); err != nil {
			return fmt.Errorf("%w: network.stream.port: %v", ErrConfigInvalid, err)
		}
		if c.Network.Stream.MaxConnections <= 0 {
			return fmt.Errorf("%w: network.stream.max_connections must be positive", ErrConfigInvalid)
		}
	}
	if c.Network.EnableDatagram {
		if err := validatePort(c.Network.Datagram.Port); err != nil {
			return fmt.Errorf("%w: network.datagram.port: %v", ErrConfigInvalid, err)
		}
	}
	return nil
}

func validatePort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", p)
	}
	return nil
}
