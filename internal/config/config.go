// Package config loads rewind store configuration from YAML.
//
// Example:
//
//	max_events: 5000
//	checkpoints:
//	  enabled: true
//	  interval: 100
//	compaction:
//	  numerator: 1
//	  denominator: 2
//	redact_fields: [token]
//	archive:
//	  path: rewind.db
//
// Every field is optional; omitted fields keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rewind/internal/timeline"
)

// DefaultArchivePath is the archive database used when none is configured.
const DefaultArchivePath = "rewind.db"

// Config is the YAML configuration file.
type Config struct {
	// MaxEvents caps the log length before compaction.
	MaxEvents int `yaml:"max_events"`

	Checkpoints Checkpoints `yaml:"checkpoints"`

	Compaction Compaction `yaml:"compaction"`

	// RedactFields lists payload fields masked by export.
	RedactFields []string `yaml:"redact_fields,omitempty"`

	Archive Archive `yaml:"archive"`
}

// Checkpoints configures the checkpoint index.
type Checkpoints struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"`
}

// Compaction is the fraction of the log dropped when it overflows.
type Compaction struct {
	Numerator   int `yaml:"numerator"`
	Denominator int `yaml:"denominator"`
}

// Archive configures snapshot persistence.
type Archive struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MaxEvents: timeline.DefaultMaxEvents,
		Checkpoints: Checkpoints{
			Enabled:  true,
			Interval: timeline.DefaultCheckpointInterval,
		},
		Compaction: Compaction{
			Numerator:   timeline.DefaultCompactionNumerator,
			Denominator: timeline.DefaultCompactionDenominator,
		},
		Archive: Archive{Path: DefaultArchivePath},
	}
}

// Load reads and validates a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown fields are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxEvents < 1 {
		return fmt.Errorf("max_events must be positive, got %d", c.MaxEvents)
	}
	if c.Checkpoints.Interval < 1 {
		return fmt.Errorf("checkpoints.interval must be positive, got %d", c.Checkpoints.Interval)
	}
	if c.Compaction.Numerator < 1 || c.Compaction.Numerator >= c.Compaction.Denominator {
		return fmt.Errorf("compaction must satisfy 0 < numerator < denominator, got %d/%d",
			c.Compaction.Numerator, c.Compaction.Denominator)
	}
	for i, f := range c.RedactFields {
		if f == "" {
			return fmt.Errorf("redact_fields[%d] is empty", i)
		}
	}
	if c.Archive.Path == "" {
		return fmt.Errorf("archive.path is required")
	}
	return nil
}

// Options converts c to store options.
func (c Config) Options() []timeline.Option {
	opts := []timeline.Option{
		timeline.WithMaxEvents(c.MaxEvents),
		timeline.WithCheckpoints(c.Checkpoints.Enabled),
		timeline.WithCheckpointInterval(c.Checkpoints.Interval),
		timeline.WithCompaction(c.Compaction.Numerator, c.Compaction.Denominator),
	}
	if len(c.RedactFields) > 0 {
		opts = append(opts, timeline.WithRedactFields(c.RedactFields...))
	}
	return opts
}
