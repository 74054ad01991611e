package timeline

import (
	"fmt"
	"slices"
)

// DefaultMaxEvents is the default log length cap before compaction runs.
const DefaultMaxEvents = 5000

// DefaultCheckpointInterval is the default distance between automatic checkpoints.
const DefaultCheckpointInterval = 100

// Default compaction fraction: keep the back half of the log.
const (
	DefaultCompactionNumerator   = 1
	DefaultCompactionDenominator = 2
)

// settings holds the configuration fixed at store construction.
type settings struct {
	maxEvents   int
	checkpoints bool
	interval    int
	compactNum  int
	compactDen  int
	clock       Clock
	ids         IDGenerator
	observer    Observer
	redact      []string
}

func defaultSettings() settings {
	return settings{
		maxEvents:   DefaultMaxEvents,
		checkpoints: true,
		interval:    DefaultCheckpointInterval,
		compactNum:  DefaultCompactionNumerator,
		compactDen:  DefaultCompactionDenominator,
		clock:       SystemClock{},
		ids:         UUIDv7Generator{},
		observer:    NopObserver{},
	}
}

func (c settings) validate() error {
	if c.maxEvents < 1 {
		return fmt.Errorf("%w: max events must be positive, got %d", ErrInvalidOption, c.maxEvents)
	}
	if c.interval < 1 {
		return fmt.Errorf("%w: checkpoint interval must be positive, got %d", ErrInvalidOption, c.interval)
	}
	if c.compactNum < 1 || c.compactNum >= c.compactDen {
		return fmt.Errorf("%w: compaction fraction must be in (0, 1), got %d/%d",
			ErrInvalidOption, c.compactNum, c.compactDen)
	}
	if c.clock == nil || c.ids == nil || c.observer == nil {
		return fmt.Errorf("%w: clock, id generator and observer must be non-nil", ErrInvalidOption)
	}
	return nil
}

// clone returns a copy that shares no slices with c.
// Clock, IDGenerator and Observer are collaborators and are shared.
func (c settings) clone() settings {
	c.redact = slices.Clone(c.redact)
	return c
}

// Option configures a Store.
type Option func(*settings)

// WithMaxEvents sets the maximum log length before compaction.
//
// Default: 5000 (DefaultMaxEvents)
func WithMaxEvents(n int) Option {
	return func(c *settings) {
		c.maxEvents = n
	}
}

// WithCheckpoints enables or disables checkpointing.
// With checkpoints disabled every projection folds from the initial state
// (or the compaction seed).
func WithCheckpoints(enabled bool) Option {
	return func(c *settings) {
		c.checkpoints = enabled
	}
}

// WithCheckpointInterval records a checkpoint after each append landing on a
// position that is a multiple of n.
//
// Default: 100 (DefaultCheckpointInterval)
func WithCheckpointInterval(n int) Option {
	return func(c *settings) {
		c.interval = n
	}
}

// WithCompaction sets the fraction of the log dropped by a compaction.
// WithCompaction(1, 2) drops everything before the midpoint.
func WithCompaction(numerator, denominator int) Option {
	return func(c *settings) {
		c.compactNum = numerator
		c.compactDen = denominator
	}
}

// WithClock sets the source of event and snapshot timestamps.
func WithClock(clock Clock) Option {
	return func(c *settings) {
		c.clock = clock
	}
}

// WithIDGenerator sets the source of event IDs.
func WithIDGenerator(ids IDGenerator) Option {
	return func(c *settings) {
		c.ids = ids
	}
}

// WithObserver installs an Observer (metrics, tracing).
func WithObserver(o Observer) Option {
	return func(c *settings) {
		c.observer = o
	}
}

// WithRedactFields records payload field names that exporters should mask.
// The store itself never reads them.
func WithRedactFields(fields ...string) Option {
	return func(c *settings) {
		c.redact = append(c.redact, fields...)
	}
}
