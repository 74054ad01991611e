package testutil

import "sync"

// DefaultClockStep is the millisecond gap between consecutive Now() readings.
const DefaultClockStep = 1000

// DeterministicClock provides a thread-safe monotonic millisecond clock for tests.
//
// Each call to Now() advances the clock by a fixed step, so the N-th event
// appended to a store gets timestamp start + N*step. This makes timestamp
// navigation and golden snapshots reproducible.
//
// Implements timeline.Clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	seq   int64
}

// NewDeterministicClock creates a clock starting at 0 with DefaultClockStep.
//
// The first call to Now() returns 1000.
func NewDeterministicClock() *DeterministicClock {
	return NewDeterministicClockAt(0, DefaultClockStep)
}

// NewDeterministicClockAt creates a clock whose first reading is start+step.
func NewDeterministicClockAt(start, step int64) *DeterministicClock {
	return &DeterministicClock{start: start, step: step}
}

// Now advances the clock one step and returns the new reading.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.start + c.seq*c.step
}

// Current returns the last reading without advancing. Before the first
// Now() it returns start.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start + c.seq*c.step
}

// Set moves the clock so the next Now() returns next.
// Moving backwards is allowed; it models wall-clock skew.
func (c *DeterministicClock) Set(next int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = next - (c.seq+1)*c.step
}

// Reset rewinds the clock to its initial reading.
//
// Used for test reuse. After Reset(), the next call to Now() returns the same
// value the first call did, unless Set has moved the start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
