package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/timeline"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	scenario, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return scenario
}

func TestRun_RecordsNotifications(t *testing.T) {
	scenario := mustParse(t, `
name: notes
description: "notification log"
steps:
  - op: append
    event: { kind: set, key: k, amount: 1 }
  - op: undo
assertions:
  - type: event_count
    count: 1
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Notifications, 2)
	assert.Equal(t, Notification{Store: "main", Channel: ChannelAppend, EventID: "evt-0001"}, result.Notifications[0])
	assert.Equal(t, ChannelCursor, result.Notifications[1].Channel)
	assert.Equal(t, &timeline.CursorMove{Kind: timeline.CursorUndo, From: 0, To: -1}, result.Notifications[1].Move)
}

func TestRun_UnexpectedStepErrorFails(t *testing.T) {
	scenario := mustParse(t, `
name: bad_event
description: "reducer rejects the event"
steps:
  - op: append
    event: { kind: delete }
assertions:
  - type: event_count
    count: 0
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0] append: unexpected error")
	assert.Equal(t, "REDUCER_PANIC", result.Trace[0].Error)
}

func TestRun_ExpectedErrorMissingFails(t *testing.T) {
	scenario := mustParse(t, `
name: no_error
description: "step succeeds unexpectedly"
steps:
  - op: append
    event: { kind: set, key: k, amount: 1 }
    expect_error: REDUCER_PANIC
assertions:
  - type: event_count
    count: 1
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected REDUCER_PANIC, got success")
}

func TestRun_WrongErrorCodeFails(t *testing.T) {
	scenario := mustParse(t, `
name: wrong_code
description: "restore fails with a different code"
steps:
  - op: restore
    data: '{"events":[],"index":0,"state":{"values":{}},"timestamp":0}'
    expect_error: STATE_MISMATCH
assertions:
  - type: event_count
    count: 0
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected STATE_MISMATCH, got INDEX_OUT_OF_RANGE")
}

func TestRun_RestoreStateMismatch(t *testing.T) {
	scenario := mustParse(t, `
name: mismatch
description: "snapshot state disagrees with its log"
steps:
  - op: restore
    data: '{"events":[{"id":"x","timestamp":1,"type":"set","payload":{"kind":"set","key":"a","amount":1}}],"index":0,"state":{"values":{"a":2}},"timestamp":5}'
    expect_error: STATE_MISMATCH
  - op: restore
    data: '{"events":[{"id":"x","timestamp":1,"type":"set","payload":{"kind":"set","key":"a","amount":1}}],"index":0,"state":{"values":{"a":1}},"timestamp":5}'
assertions:
  - type: state
    values: { a: 1 }
  - type: notifications
    channel: cursor
    count: 1
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownStoreAndSnapshot(t *testing.T) {
	scenario := mustParse(t, `
name: unknown
description: "steps referencing missing names fail"
steps:
  - op: undo
    store: ghost
  - op: restore
    from: missing
assertions:
  - type: event_count
    count: 0
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, "ERROR", result.Trace[0].Error)
	assert.Equal(t, "ERROR", result.Trace[1].Error)
}

func TestRun_ForkNameTaken(t *testing.T) {
	scenario := mustParse(t, `
name: fork_twice
description: "fork into an existing name"
steps:
  - op: fork
    as: b
  - op: fork
    as: b
assertions:
  - type: event_count
    store: b
    count: 0
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[1] fork")
}

func TestRun_ConfigApplied(t *testing.T) {
	scenario := mustParse(t, `
name: capped
description: "config reaches the store"
config:
  max_events: 2
steps:
  - op: append
    event: { kind: add, key: n, amount: 1 }
  - op: append
    event: { kind: add, key: n, amount: 1 }
  - op: append
    event: { kind: add, key: n, amount: 1 }
assertions:
  - type: event_count
    count: 2
  - type: state
    values: { n: 3 }
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidConfigIsSetupError(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad",
		Description: "bad",
		Steps:       []Step{{Op: OpUndo}},
		Assertions:  []Assertion{{Type: AssertEventCount}},
	}
	require.NoError(t, scenario.Config.Encode(map[string]int{"max_events": 0}))

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_events must be positive")
}
