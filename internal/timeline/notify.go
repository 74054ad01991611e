package timeline

import (
	"log/slog"

	"github.com/roach88/rewind/internal/ir"
)

// CursorKind names the operation that moved the cursor.
type CursorKind string

const (
	CursorUndo     CursorKind = "undo"
	CursorRedo     CursorKind = "redo"
	CursorNavigate CursorKind = "navigate"
	CursorRestore  CursorKind = "restore"
)

// CursorMove describes a committed cursor change.
// From and To are log positions; for CursorRestore From is the position in
// the replaced log.
type CursorMove struct {
	Kind CursorKind `json:"kind"`
	From int        `json:"from"`
	To   int        `json:"to"`
}

// AppendListener is notified after each committed Append with the event and
// the new current state.
type AppendListener[S any, P ir.Payload] func(ir.Event[P], S)

// CursorListener is notified after each committed cursor change with the new
// current state. No-op navigations do not notify.
type CursorListener[S any] func(CursorMove, S)

type subscription[F any] struct {
	id uint64
	fn F
}

// listeners is an ordered registry of callbacks.
// Unsubscribing during a notification does not affect the round in progress.
type listeners[F any] struct {
	next uint64
	subs []subscription[F]
}

func (l *listeners[F]) add(fn F) func() {
	l.next++
	id := l.next
	l.subs = append(l.subs, subscription[F]{id: id, fn: fn})
	return func() {
		for i, s := range l.subs {
			if s.id == id {
				l.subs = append(l.subs[:i:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners[F]) snapshot() []subscription[F] {
	return l.subs
}

// OnAppend registers fn to run after every committed Append.
// The returned function unsubscribes; calling it more than once is harmless.
func (s *Store[S, P]) OnAppend(fn AppendListener[S, P]) func() {
	return s.appendSubs.add(fn)
}

// OnCursor registers fn to run after every committed Undo, Redo, Navigate,
// NavigateToTime or Restore. The returned function unsubscribes.
func (s *Store[S, P]) OnCursor(fn CursorListener[S]) func() {
	return s.cursorSubs.add(fn)
}

func (s *Store[S, P]) notifyAppend(ev ir.Event[P], state S) error {
	var panics []any
	for _, sub := range s.appendSubs.snapshot() {
		if r := invokeListener(func() { sub.fn(ev, state) }); r != nil {
			slog.Error("append listener panicked", "event_id", ev.ID, "type", ev.Type, "panic", r)
			panics = append(panics, r)
		}
	}
	if len(panics) == 0 {
		return nil
	}
	return &ListenerError{Operation: "append", Panics: panics}
}

func (s *Store[S, P]) notifyCursor(move CursorMove, state S) error {
	var panics []any
	for _, sub := range s.cursorSubs.snapshot() {
		if r := invokeListener(func() { sub.fn(move, state) }); r != nil {
			slog.Error("cursor listener panicked", "kind", move.Kind, "from", move.From, "to", move.To, "panic", r)
			panics = append(panics, r)
		}
	}
	if len(panics) == 0 {
		return nil
	}
	return &ListenerError{Operation: string(move.Kind), Panics: panics}
}

// invokeListener runs fn and returns the recovered panic value, if any.
func invokeListener(fn func()) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	fn()
	return nil
}
