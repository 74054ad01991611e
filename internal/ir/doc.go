// Package ir provides the value-level representation shared by every rewind
// package: the event envelope, the persisted snapshot form, and the canonical
// JSON used to compare and fingerprint states.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Events are identified by ID and ordered by log position, never by timestamp
//   - Payload types are closed and chosen once per store (the Payload constraint)
//   - All JSON tags use snake_case and match the snapshot interop format
//   - State equality is decided on canonical JSON, not on Go values
package ir
