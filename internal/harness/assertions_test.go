package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertions_Failures(t *testing.T) {
	scenario := mustParse(t, `
name: failing
description: "every assertion type reports its mismatch"
steps:
  - op: append
    event: { kind: set, key: k, amount: 1 }
assertions:
  - type: state
    values: { k: 2 }
  - type: event_count
    count: 5
  - type: index
    index: 3
  - type: can_undo
    value: false
  - type: can_redo
    value: true
  - type: notifications
    channel: append
    count: 0
  - type: event_count
    store: ghost
    count: 0
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{
		"assertions[0] state: values = map[k:1], want map[k:2]",
		"assertions[1] event_count: event count = 1, want 5",
		"assertions[2] index: index = 0, want 3",
		"assertions[3] can_undo: can_undo = true, want false",
		"assertions[4] can_redo: can_redo = false, want true",
		`assertions[5] notifications: append notifications on "main" = 1, want 0`,
		`assertions[6] event_count: session not found: "ghost"`,
	}, result.Errors)
}

func TestAssertions_Pass(t *testing.T) {
	scenario := mustParse(t, `
name: passing
description: "every assertion type holds"
steps:
  - op: append
    event: { kind: set, key: k, amount: 1 }
  - op: append
    event: { kind: delete, key: k }
  - op: undo
assertions:
  - type: state
    values: { k: 1 }
  - type: event_count
    count: 2
  - type: index
    index: 0
  - type: can_undo
    value: true
  - type: can_redo
    value: true
  - type: notifications
    channel: append
    count: 2
  - type: notifications
    channel: cursor
    count: 1
`)
	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
