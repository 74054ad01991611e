package timeline

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/rewind/internal/ir"
)

// Fork returns an independent store holding this store's active events.
//
// The fork has the same reducer, initial state and configuration, its cursor
// at the end of the copied log, and no redo history. Listeners are not
// copied. Subsequent operations on either store never affect the other.
func (s *Store[S, P]) Fork() (*Store[S, P], error) {
	child := &Store[S, P]{
		initial: s.initial,
		reducer: s.reducer,
		cfg:     s.cfg.clone(),
		index:   s.index,
		state:   s.state,
		h: history[S, P]{
			events: slices.Clone(s.h.events[:s.index+1]),
			seed:   cloneSeed(s.h.seed),
		},
	}
	child.h.ordered = timestampsOrdered(child.h.events)
	if err := child.rebuild(&child.h); err != nil {
		return nil, fmt.Errorf("fork: %w", err)
	}

	slog.Debug("store forked", "length", len(child.h.events), "index", child.index)
	return child, nil
}

// Snapshot captures the full log, cursor and current state.
// Undone events are included so redo survives a round trip.
func (s *Store[S, P]) Snapshot() ir.Snapshot[S, P] {
	events := slices.Clone(s.h.events)
	if events == nil {
		events = []ir.Event[P]{}
	}
	return ir.Snapshot[S, P]{
		Events:    events,
		Index:     s.index,
		State:     s.state,
		Timestamp: s.cfg.clock.Now(),
		Seed:      cloneSeed(s.h.seed),
	}
}

// Restore replaces the store's history with snap.
//
// The snapshot is validated and replayed before anything changes: the cursor
// must lie within the log, event IDs must be present and unique, each type
// tag must match its payload, and replaying to snap.Index must reproduce
// snap.State. On any failure Restore returns *RestoreError and the store is
// unchanged. Checkpoints are rebuilt from the replay.
//
// Cursor listeners are notified with a CursorRestore move. Append listeners
// are not.
func (s *Store[S, P]) Restore(snap ir.Snapshot[S, P]) error {
	if err := validateSnapshot(snap); err != nil {
		return s.restoreFailed(err)
	}

	h := history[S, P]{
		events: slices.Clone(snap.Events),
		seed:   cloneSeed(snap.Seed),
	}
	h.ordered = timestampsOrdered(h.events)
	if err := s.rebuild(&h); err != nil {
		return s.restoreFailed(newRestoreError(ErrCodeReplayFailed, err, "replay snapshot log"))
	}
	state, err := s.project(&h, snap.Index)
	if err != nil {
		return s.restoreFailed(newRestoreError(ErrCodeReplayFailed, err, "replay to index %d", snap.Index))
	}
	equal, err := ir.StatesEqual(state, snap.State)
	if err != nil {
		return s.restoreFailed(newRestoreError(ErrCodeStateMismatch, err, "compare replayed state"))
	}
	if !equal {
		return s.restoreFailed(newRestoreError(ErrCodeStateMismatch, nil,
			"replaying %d events to index %d does not reproduce the snapshot state", len(snap.Events), snap.Index))
	}

	move := CursorMove{Kind: CursorRestore, From: s.index, To: snap.Index}
	s.h = h
	s.index = snap.Index
	s.state = state

	slog.Info("snapshot restored", "length", len(h.events), "index", s.index, "compacted", h.seed != nil)
	s.cfg.observer.Moved(move)
	return s.notifyCursor(move, s.state)
}

func (s *Store[S, P]) restoreFailed(err *RestoreError) error {
	slog.Warn("snapshot rejected", "code", err.Code, "error", err)
	return err
}

// validateSnapshot checks the structure of snap without running the reducer.
func validateSnapshot[S any, P ir.Payload](snap ir.Snapshot[S, P]) *RestoreError {
	n := len(snap.Events)
	floor := -1
	if snap.Seed != nil {
		if snap.Seed.Position != 0 {
			return newRestoreError(ErrCodeInvalidSeed, nil, "seed position must be 0, got %d", snap.Seed.Position)
		}
		if n == 0 {
			return newRestoreError(ErrCodeInvalidSeed, nil, "seed requires at least one event")
		}
		floor = 0
	}
	if snap.Index < floor || snap.Index > n-1 {
		return newRestoreError(ErrCodeIndexOutOfRange, nil, "index %d outside [%d, %d]", snap.Index, floor, n-1)
	}

	seen := make(map[string]int, n)
	for i, ev := range snap.Events {
		if ev.ID == "" {
			return newRestoreError(ErrCodeMissingID, nil, "event at position %d has no id", i)
		}
		if prev, dup := seen[ev.ID]; dup {
			return newRestoreError(ErrCodeDuplicateID, nil, "event id %q at positions %d and %d", ev.ID, prev, i)
		}
		seen[ev.ID] = i
		if want := ev.Payload.EventType(); ev.Type != want {
			return newRestoreError(ErrCodeTypeMismatch, nil,
				"event %q has type %q but payload is %q", ev.ID, ev.Type, want)
		}
	}
	return nil
}

func cloneSeed[S any](seed *ir.Seed[S]) *ir.Seed[S] {
	if seed == nil {
		return nil
	}
	c := *seed
	return &c
}

// String summarizes the store for logs and debugging.
func (s *Store[S, P]) String() string {
	return fmt.Sprintf("timeline.Store{len=%d index=%d floor=%d checkpoints=%d compactions=%d}",
		len(s.h.events), s.index, s.h.floor(), s.h.checkpoints.len(), s.compactions)
}
