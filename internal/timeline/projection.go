package timeline

import (
	"fmt"
	"log/slog"

	"github.com/roach88/rewind/internal/ir"
)

// apply runs the reducer, converting a panic into *ReducerError.
func (s *Store[S, P]) apply(state S, ev ir.Event[P], pos int) (next S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ReducerError{
				Position:  pos,
				EventID:   ev.ID,
				EventType: ev.Type,
				Recovered: r,
			}
		}
	}()
	return s.reducer(state, ev), nil
}

// fold applies events (from, to] to state.
func (s *Store[S, P]) fold(h *history[S, P], state S, from, to int) (S, error) {
	for p := from + 1; p <= to; p++ {
		var err error
		state, err = s.apply(state, h.events[p], p)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}

// project computes the state at pos in h from the nearest usable checkpoint.
// pos must be in [h.floor(), len(h.events)-1].
func (s *Store[S, P]) project(h *history[S, P], pos int) (S, error) {
	start, state := h.base(s.initial)
	if cp, ok := h.checkpoints.nearest(pos); ok && cp.position >= start {
		start, state = cp.position, cp.state
	}
	return s.fold(h, state, start, pos)
}

// rebuild recomputes every checkpoint of h from its base under the interval
// policy. It folds the whole log, so it also proves the reducer accepts it.
func (s *Store[S, P]) rebuild(h *history[S, P]) error {
	h.checkpoints.reset()
	start, state := h.base(s.initial)
	if !s.cfg.checkpoints {
		_, err := s.fold(h, state, start, len(h.events)-1)
		return err
	}
	h.checkpoints.put(start, state)
	for p := start + 1; p < len(h.events); p++ {
		var err error
		state, err = s.apply(state, h.events[p], p)
		if err != nil {
			return err
		}
		if p%s.cfg.interval == 0 {
			h.checkpoints.put(p, state)
		}
	}
	return nil
}

// StateAt returns the projection at position without moving the cursor.
// position is clamped to [Floor(), Len()-1]. Undone events are reachable.
func (s *Store[S, P]) StateAt(position int) (S, error) {
	return s.project(&s.h, s.clamp(position))
}

// Checkpoints returns the positions that currently hold a checkpoint, in
// ascending order.
func (s *Store[S, P]) Checkpoints() []int {
	return s.h.checkpoints.positions()
}

// VerifyCheckpoints re-folds every checkpoint from the base state and
// compares canonical digests. A non-nil error means either the reducer is
// not deterministic or it mutated a shared state.
func (s *Store[S, P]) VerifyCheckpoints() error {
	baseStart, baseState := s.h.base(s.initial)
	for _, cp := range s.h.checkpoints.entries {
		want, err := s.fold(&s.h, baseState, baseStart, cp.position)
		if err != nil {
			return fmt.Errorf("verify checkpoint %d: %w", cp.position, err)
		}
		ok, err := ir.StatesEqual(cp.state, want)
		if err != nil {
			return fmt.Errorf("verify checkpoint %d: %w", cp.position, err)
		}
		if !ok {
			slog.Error("checkpoint diverged from replay", "position", cp.position)
			return fmt.Errorf("verify checkpoint %d: cached state differs from replay", cp.position)
		}
	}
	return nil
}
