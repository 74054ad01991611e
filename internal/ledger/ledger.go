// Package ledger is a small concrete domain for the timeline store: named
// integer counters driven by set, add, delete and reset events.
//
// The CLI and scenario harness operate on ledger stores.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/timeline"
)

// Kind is the event discriminator.
type Kind string

const (
	KindSet    Kind = "set"
	KindAdd    Kind = "add"
	KindDelete Kind = "delete"
	KindReset  Kind = "reset"
)

// Event is the closed set of ledger payloads.
type Event struct {
	Kind   Kind   `json:"kind"`
	Key    string `json:"key,omitempty"`
	Amount int64  `json:"amount,omitempty"`
}

// EventType implements ir.Payload.
func (e Event) EventType() string {
	return string(e.Kind)
}

// Validate checks that e is a well-formed ledger event.
func (e Event) Validate() error {
	switch e.Kind {
	case KindSet, KindAdd, KindDelete:
		if e.Key == "" {
			return fmt.Errorf("%s event requires a key", e.Kind)
		}
	case KindReset:
		if e.Key != "" || e.Amount != 0 {
			return errors.New("reset event takes no key or amount")
		}
	case "":
		return errors.New("event kind is required")
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.Kind == KindDelete && e.Amount != 0 {
		return errors.New("delete event takes no amount")
	}
	return nil
}

// Set, Add, Delete and Reset build events.
func Set(key string, v int64) Event { return Event{Kind: KindSet, Key: key, Amount: v} }
func Add(key string, d int64) Event { return Event{Kind: KindAdd, Key: key, Amount: d} }
func Delete(key string) Event       { return Event{Kind: KindDelete, Key: key} }
func Reset() Event                  { return Event{Kind: KindReset} }

// State is the projected ledger.
type State struct {
	Values map[string]int64 `json:"values"`
}

// Initial returns the empty ledger.
func Initial() State {
	return State{Values: map[string]int64{}}
}

// Get returns the value of key, or 0.
func (s State) Get(key string) int64 {
	return s.Values[key]
}

// Reduce folds one event into s. It never mutates s.
//
// Panics on malformed events; the store reports that as *timeline.ReducerError.
func Reduce(s State, ev ir.Event[Event]) State {
	e := ev.Payload
	if err := e.Validate(); err != nil {
		panic(fmt.Errorf("ledger: %w", err))
	}

	switch e.Kind {
	case KindSet:
		return s.with(func(m map[string]int64) { m[e.Key] = e.Amount })
	case KindAdd:
		return s.with(func(m map[string]int64) { m[e.Key] += e.Amount })
	case KindDelete:
		if _, ok := s.Values[e.Key]; !ok {
			return s
		}
		return s.with(func(m map[string]int64) { delete(m, e.Key) })
	default: // KindReset
		return Initial()
	}
}

// with returns a copy of s with fn applied to its values.
func (s State) with(fn func(map[string]int64)) State {
	m := maps.Clone(s.Values)
	if m == nil {
		m = map[string]int64{}
	}
	fn(m)
	return State{Values: m}
}

// Store is a timeline store over the ledger domain.
type Store = timeline.Store[State, Event]

// Snapshot is the interop form of a ledger store.
type Snapshot = ir.Snapshot[State, Event]

// NewStore creates an empty ledger store.
func NewStore(opts ...timeline.Option) (*Store, error) {
	return timeline.New(Initial(), Reduce, opts...)
}

// ParseEvents reads newline-delimited JSON ledger events.
// Blank lines are skipped; unknown fields and invalid events are errors.
func ParseEvents(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		var e Event
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}
