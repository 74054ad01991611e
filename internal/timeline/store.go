package timeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/roach88/rewind/internal/ir"
)

// Reducer folds one event into a state and returns the next state.
//
// Reducers must be pure and deterministic: the same (state, event) always
// yields an equal state, and the input state is never mutated. States are
// shared between the cursor, checkpoints and forks, so a reducer that
// mutates its input corrupts history.
type Reducer[S any, P ir.Payload] func(S, ir.Event[P]) S

// history is the log plus everything derived from it.
// Restore and Fork build a fresh history and swap it in whole.
type history[S any, P ir.Payload] struct {
	events      []ir.Event[P]
	seed        *ir.Seed[S]
	checkpoints checkpointIndex[S]

	// ordered reports that timestamps are non-decreasing along events.
	// It may be false for an ordered log; it is never true for an unordered one.
	ordered bool
}

// base returns the position and state folding starts from when no
// checkpoint applies.
func (h *history[S, P]) base(initial S) (int, S) {
	if h.seed != nil {
		return h.seed.Position, h.seed.State
	}
	return -1, initial
}

// floor is the lowest reachable cursor position.
func (h *history[S, P]) floor() int {
	if h.seed != nil {
		return h.seed.Position
	}
	return -1
}

// Store is an event-sourced state container with a movable cursor.
//
// Create with New. See the package documentation for the model.
type Store[S any, P ir.Payload] struct {
	initial S
	reducer Reducer[S, P]
	cfg     settings

	h     history[S, P]
	index int
	state S

	compactions int

	appendSubs listeners[AppendListener[S, P]]
	cursorSubs listeners[CursorListener[S]]
}

// New creates an empty store positioned before the first event.
//
// Returns an error wrapping ErrInvalidOption if an option is out of range.
func New[S any, P ir.Payload](initial S, reducer Reducer[S, P], opts ...Option) (*Store[S, P], error) {
	if reducer == nil {
		return nil, fmt.Errorf("%w: reducer must be non-nil", ErrInvalidOption)
	}
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Store[S, P]{
		initial: initial,
		reducer: reducer,
		cfg:     cfg,
		h:       history[S, P]{ordered: true},
		index:   -1,
		state:   initial,
	}
	if cfg.checkpoints {
		s.h.checkpoints.put(-1, initial)
	}
	return s, nil
}

// Append records a new event built from payload and moves the cursor onto it.
//
// If the cursor is behind the end of the log, the redoable tail is discarded
// first. If the log then exceeds MaxEvents, it is compacted.
//
// Returns *ReducerError if the reducer panics; nothing is committed in that
// case. Returns *ListenerError if a listener panics; the event IS committed.
func (s *Store[S, P]) Append(payload P) (ir.Event[P], error) {
	ev := ir.NewEvent(s.cfg.ids.Generate(), s.cfg.clock.Now(), payload)
	pos := s.index + 1

	next, err := s.apply(s.state, ev, pos)
	if err != nil {
		slog.Warn("append rejected", "event_id", ev.ID, "type", ev.Type, "position", pos, "error", err)
		s.cfg.observer.ReducerFailed(err)
		return ir.Event[P]{}, err
	}

	// Stage compaction before mutating anything so a reducer panic while
	// materializing the seed leaves the store untouched.
	plan, err := s.planCompaction(pos, next)
	if err != nil {
		slog.Warn("append rejected", "event_id", ev.ID, "type", ev.Type, "position", pos, "error", err)
		s.cfg.observer.ReducerFailed(err)
		return ir.Event[P]{}, err
	}

	if pos < len(s.h.events) {
		dropped := len(s.h.events) - pos
		clear(s.h.events[pos:])
		s.h.events = s.h.events[:pos]
		s.h.checkpoints.truncateAfter(s.index)
		slog.Debug("redo history discarded", "dropped", dropped, "position", pos)
	}
	if n := len(s.h.events); n > 0 && ev.Timestamp < s.h.events[n-1].Timestamp {
		s.h.ordered = false
	}
	s.h.events = append(s.h.events, ev)
	s.index = pos
	s.state = next
	if s.cfg.checkpoints && pos%s.cfg.interval == 0 {
		s.h.checkpoints.put(pos, next)
	}
	if plan != nil {
		s.compact(plan)
	}

	slog.Debug("event appended", "event_id", ev.ID, "type", ev.Type, "position", s.index, "length", len(s.h.events))
	s.cfg.observer.Appended(s.index, len(s.h.events))
	return ev, s.notifyAppend(ev, s.state)
}

// Undo moves the cursor back one event.
// Returns false without notifying if there is nothing to undo.
func (s *Store[S, P]) Undo() (bool, error) {
	if !s.CanUndo() {
		return false, nil
	}
	return s.moveTo(s.index-1, CursorUndo)
}

// Redo moves the cursor forward one event.
// Returns false without notifying if there is nothing to redo.
func (s *Store[S, P]) Redo() (bool, error) {
	if !s.CanRedo() {
		return false, nil
	}
	return s.moveTo(s.index+1, CursorRedo)
}

// Navigate moves the cursor to target, clamped to the reachable range.
// Returns false without notifying if the clamped target is the current
// position.
func (s *Store[S, P]) Navigate(target int) (bool, error) {
	target = s.clamp(target)
	if target == s.index {
		return false, nil
	}
	return s.moveTo(target, CursorNavigate)
}

// NavigateToTime moves the cursor to the last event whose timestamp is at or
// before ts. If no event qualifies, the cursor moves to the lowest reachable
// position. Log order is authoritative; timestamps need not be monotonic.
func (s *Store[S, P]) NavigateToTime(ts int64) (bool, error) {
	return s.Navigate(s.positionAtTime(ts))
}

func (s *Store[S, P]) positionAtTime(ts int64) int {
	events := s.h.events
	if s.h.ordered {
		return sort.Search(len(events), func(i int) bool {
			return events[i].Timestamp > ts
		}) - 1
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Timestamp <= ts {
			return i
		}
	}
	return -1
}

func (s *Store[S, P]) clamp(target int) int {
	return max(s.h.floor(), min(target, len(s.h.events)-1))
}

// moveTo projects target and commits the cursor change.
func (s *Store[S, P]) moveTo(target int, kind CursorKind) (bool, error) {
	state, err := s.project(&s.h, target)
	if err != nil {
		return false, fmt.Errorf("%s: %w", kind, err)
	}
	move := CursorMove{Kind: kind, From: s.index, To: target}
	s.index = target
	s.state = state

	slog.Debug("cursor moved", "kind", kind, "from", move.From, "to", move.To)
	s.cfg.observer.Moved(move)
	return true, s.notifyCursor(move, s.state)
}

// Index returns the cursor position, in [Floor(), Len()-1].
func (s *Store[S, P]) Index() int {
	return s.index
}

// Floor returns the lowest reachable cursor position: -1, or 0 once the log
// has been compacted.
func (s *Store[S, P]) Floor() int {
	return s.h.floor()
}

// Len returns the number of events in the log, including undone events.
func (s *Store[S, P]) Len() int {
	return len(s.h.events)
}

// State returns the projection at the cursor.
// The returned value is shared with the store and must be treated as read-only.
func (s *Store[S, P]) State() S {
	return s.state
}

// Initial returns the state the store was created with.
func (s *Store[S, P]) Initial() S {
	return s.initial
}

// CanUndo reports whether Undo would move the cursor.
func (s *Store[S, P]) CanUndo() bool {
	return s.index > s.h.floor()
}

// CanRedo reports whether Redo would move the cursor.
func (s *Store[S, P]) CanRedo() bool {
	return s.index < len(s.h.events)-1
}

// Events returns a copy of the full log, including undone events.
func (s *Store[S, P]) Events() []ir.Event[P] {
	return slices.Clone(s.h.events)
}

// ActiveEvents returns a copy of the events up to and including the cursor.
func (s *Store[S, P]) ActiveEvents() []ir.Event[P] {
	return slices.Clone(s.h.events[:s.index+1])
}

// EventAt returns the event at position, or false if out of range.
func (s *Store[S, P]) EventAt(position int) (ir.Event[P], bool) {
	if position < 0 || position >= len(s.h.events) {
		return ir.Event[P]{}, false
	}
	return s.h.events[position], true
}

// Compactions returns how many times retention has compacted the log.
func (s *Store[S, P]) Compactions() int {
	return s.compactions
}

// Seed returns the compaction seed, or nil if the log was never compacted.
func (s *Store[S, P]) Seed() *ir.Seed[S] {
	if s.h.seed == nil {
		return nil
	}
	seed := *s.h.seed
	return &seed
}

// MaxEvents returns the configured log length cap.
func (s *Store[S, P]) MaxEvents() int {
	return s.cfg.maxEvents
}

// RedactFields returns the payload fields configured with WithRedactFields.
func (s *Store[S, P]) RedactFields() []string {
	return slices.Clone(s.cfg.redact)
}
