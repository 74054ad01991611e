// Package harness runs scripted ledger scenarios against timeline stores.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: undo_then_branch
//	description: "Appending after undo discards the redo tail"
//	config:
//	  max_events: 4
//	  checkpoints: { interval: 2 }
//	steps:
//	  - op: append
//	    event: { kind: add, key: n, amount: 1 }
//	  - op: undo
//	  - op: fork
//	    as: branch
//	  - op: append
//	    store: branch
//	    event: { kind: set, key: n, amount: 9 }
//	  - op: snapshot
//	    as: saved
//	  - op: restore
//	    store: branch
//	    from: saved
//	assertions:
//	  - type: state
//	    store: branch
//	    values: { n: 9 }
//	  - type: notifications
//	    channel: cursor
//	    count: 1
//
// config uses the same fields as the rewind config file. Steps target the
// store named by store, "main" when omitted. fork registers a new named
// store; snapshot captures a named snapshot that restore can later apply to
// any store. restore may instead take raw snapshot JSON in data.
//
// A step that is expected to fail names the error code in expect_error, for
// example REDUCER_PANIC or STATE_MISMATCH. SCHEMA_INVALID covers snapshot
// JSON rejected before decoding.
//
// # Assertion Types
//
//   - state: the store's values equal values exactly
//   - event_count: the store's log length equals count
//   - index: the store's cursor equals index
//   - can_undo, can_redo: the flag equals value
//   - notifications: count listener calls on channel (append or cursor)
//
// # Deterministic Testing
//
// Every run uses a fresh testutil.DeterministicClock and testutil.SequentialIDs
// shared by all stores in the scenario, so event IDs and timestamps are
// reproducible. Note that taking a snapshot reads the clock too.
//
// RunWithGolden renders the trace as canonical JSON lines and compares it
// against testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
