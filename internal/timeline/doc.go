// Package timeline implements the rewind event-sourced state container.
//
// A Store records events in order and computes state by folding a pure
// reducer over them. A cursor selects the active prefix of the log, which is
// what makes undo, redo and time travel possible: moving the cursor never
// mutates the log, the next Append does.
//
// ARCHITECTURE:
//
// Event Log + Cursor:
// The log is a slice of immutable ir.Event values. The cursor (Index) is in
// [-1, Len()-1]; -1 means "before the first event". Appending while the
// cursor is behind the end discards the redoable tail first.
//
// Projection + Checkpoints:
// State at a position is the fold from the nearest checkpoint at or before
// it. Checkpoints are a pure cache of prefix folds, recorded every N events,
// kept in a sorted index and found by binary search.
//
// Retention:
// When an append pushes the log past MaxEvents, the log is compacted to its
// tail. The state of the dropped prefix survives as a seed at position 0,
// and the cursor can no longer move below 0.
//
// Fork / Snapshot / Restore:
// Fork copies the active history into an independent store. Snapshot and
// Restore exchange the ir.Snapshot interop form; checkpoints are rebuilt on
// restore, never persisted.
//
// CONCURRENCY:
//
// A Store is NOT safe for concurrent use. Every operation runs to completion
// synchronously and listeners are invoked on the calling goroutine. Callers
// sharing a store across goroutines must serialize access themselves, for
// example with internal/session.
//
// FAILURE MODEL:
//
//   - Out-of-range navigation is clamped, never an error
//   - A reducer panic is recovered into *ReducerError before anything is
//     committed; the store is left exactly as it was
//   - A malformed or inconsistent snapshot fails Restore with *RestoreError
//     and the store is left exactly as it was
//   - A listener panic is recovered into *ListenerError; the operation that
//     triggered it HAS been committed and the remaining listeners still run
package timeline
