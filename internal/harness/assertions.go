package harness

import (
	"fmt"
	"maps"

	"github.com/roach88/rewind/internal/ledger"
)

// evaluate checks one assertion against the final stores.
func (h *Harness) evaluate(a Assertion) error {
	if a.Type == AssertNotifications {
		return h.assertNotifications(a)
	}

	sess, err := h.registry.Get(a.target())
	if err != nil {
		return err
	}
	return sess.Do(func(s *ledger.Store) error {
		switch a.Type {
		case AssertState:
			got := values(s.State())
			if !maps.Equal(got, a.Values) {
				return fmt.Errorf("values = %v, want %v", got, a.Values)
			}
		case AssertEventCount:
			if s.Len() != *a.Count {
				return fmt.Errorf("event count = %d, want %d", s.Len(), *a.Count)
			}
		case AssertIndex:
			if s.Index() != *a.Index {
				return fmt.Errorf("index = %d, want %d", s.Index(), *a.Index)
			}
		case AssertCanUndo:
			if s.CanUndo() != *a.Value {
				return fmt.Errorf("can_undo = %t, want %t", s.CanUndo(), *a.Value)
			}
		case AssertCanRedo:
			if s.CanRedo() != *a.Value {
				return fmt.Errorf("can_redo = %t, want %t", s.CanRedo(), *a.Value)
			}
		default:
			return fmt.Errorf("unknown assertion type %q", a.Type)
		}
		return nil
	})
}

// assertNotifications counts listener calls on the store and channel.
func (h *Harness) assertNotifications(a Assertion) error {
	store := a.target()
	got := 0
	for _, n := range h.result.Notifications {
		if n.Store == store && n.Channel == a.Channel {
			got++
		}
	}
	if got != *a.Count {
		return fmt.Errorf("%s notifications on %q = %d, want %d", a.Channel, store, got, *a.Count)
	}
	return nil
}
