package timeline

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies wall-clock timestamps in milliseconds.
//
// Timestamps are only used by NavigateToTime and the snapshot capture time.
// Ordering never depends on them.
type Clock interface {
	Now() int64
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns the current Unix time in milliseconds.
func (SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}

// IDGenerator generates unique event IDs.
// Implemented by UUIDv7Generator (production) and testutil generators (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs sort
// roughly by creation time. This is helpful when reading exported logs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
