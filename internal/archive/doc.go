// Package archive provides SQLite-backed durable storage for rewind snapshots.
//
// The archive keeps named sessions, each an append-only list of snapshot
// revisions:
//   - Sessions: one row per name, created on first save
//   - Snapshots: canonical JSON bytes plus their content digest
//
// # Critical Patterns
//
// Logical ordering:
//   - Revisions are numbered per session starting at 1
//   - All queries order by rev (or name COLLATE BINARY), NEVER by timestamps
//
// Content addressing:
//   - digest = ir.SnapshotDigestBytes(data), computed on save
//   - Saving bytes identical to the latest revision is a no-op
//   - Verify recomputes every digest to detect corruption
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a session deletes its revisions
package archive
