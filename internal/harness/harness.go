package harness

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/ledger"
	"github.com/roach88/rewind/internal/schema"
	"github.com/roach88/rewind/internal/session"
	"github.com/roach88/rewind/internal/testutil"
	"github.com/roach88/rewind/internal/timeline"
)

// Harness executes one scenario. It is not reused across runs.
type Harness struct {
	registry  *session.Registry[ledger.State, ledger.Event]
	snapshots map[string][]byte
	result    *Result
}

// Run executes a scenario and returns the result.
//
// Each run starts from an empty main store with a fresh deterministic clock
// and ID sequence. The returned error reports setup failures only; step and
// assertion failures are recorded in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	cfg, err := scenario.StoreConfig()
	if err != nil {
		return nil, err
	}
	opts := append(cfg.Options(),
		timeline.WithClock(testutil.NewDeterministicClock()),
		timeline.WithIDGenerator(testutil.NewSequentialIDs("evt")),
	)

	h := &Harness{
		registry: session.NewRegistry[ledger.State, ledger.Event](func() (*ledger.Store, error) {
			return ledger.NewStore(opts...)
		}),
		snapshots: make(map[string][]byte),
		result:    NewResult(),
	}
	if _, err := h.create(DefaultStore); err != nil {
		return nil, fmt.Errorf("failed to create main store: %w", err)
	}

	for i, step := range scenario.Steps {
		h.execute(i, step)
	}
	for i, assertion := range scenario.Assertions {
		if err := h.evaluate(assertion); err != nil {
			h.result.AddError(fmt.Sprintf("assertions[%d] %s: %v", i, assertion.Type, err))
		}
	}

	slog.Debug("scenario finished", "scenario", scenario.Name, "pass", h.result.Pass, "steps", len(scenario.Steps))
	return h.result, nil
}

func (h *Harness) create(name string) (*session.Session[ledger.State, ledger.Event], error) {
	sess, err := h.registry.Create(name)
	if err != nil {
		return nil, err
	}
	return sess, sess.Do(func(s *ledger.Store) error {
		h.subscribe(name, s)
		return nil
	})
}

// subscribe records every notification the store emits.
func (h *Harness) subscribe(name string, s *ledger.Store) {
	s.OnAppend(func(ev ir.Event[ledger.Event], _ ledger.State) {
		h.result.Notifications = append(h.result.Notifications, Notification{
			Store:   name,
			Channel: ChannelAppend,
			EventID: ev.ID,
		})
	})
	s.OnCursor(func(move timeline.CursorMove, _ ledger.State) {
		h.result.Notifications = append(h.result.Notifications, Notification{
			Store:   name,
			Channel: ChannelCursor,
			Move:    &move,
		})
	})
}

// execute runs one step and appends its trace entry.
func (h *Harness) execute(i int, step Step) {
	entry := TraceEntry{Step: i, Op: step.Op, Store: step.target(), As: step.As}
	before := len(h.result.Notifications)

	err := h.apply(step, &entry)
	if err != nil {
		entry.Error = errorCode(err)
	}
	switch {
	case step.ExpectError == "" && err != nil:
		h.result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, err))
	case step.ExpectError != "" && err == nil:
		h.result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got success", i, step.Op, step.ExpectError))
	case step.ExpectError != "" && entry.Error != step.ExpectError:
		h.result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %s (%v)", i, step.Op, step.ExpectError, entry.Error, err))
	}

	if sess, gerr := h.registry.Get(entry.Store); gerr == nil {
		_ = sess.Do(func(s *ledger.Store) error {
			entry.Index = s.Index()
			entry.Length = s.Len()
			entry.State = values(s.State())
			return nil
		})
	}
	entry.Notified = len(h.result.Notifications) - before
	h.result.Trace = append(h.result.Trace, entry)
}

func (h *Harness) apply(step Step, entry *TraceEntry) error {
	sess, err := h.registry.Get(step.target())
	if err != nil {
		return err
	}

	switch step.Op {
	case OpFork:
		forked, err := h.registry.Fork(step.target(), step.As)
		if err != nil {
			return err
		}
		return forked.Do(func(s *ledger.Store) error {
			h.subscribe(step.As, s)
			return nil
		})
	case OpRestore:
		data := []byte(step.Data)
		if step.From != "" {
			var ok bool
			if data, ok = h.snapshots[step.From]; !ok {
				return fmt.Errorf("unknown snapshot %q", step.From)
			}
		}
		snap, err := schema.UnmarshalSnapshot[ledger.State, ledger.Event](data)
		if err != nil {
			return err
		}
		return sess.Do(func(s *ledger.Store) error { return s.Restore(snap) })
	}

	return sess.Do(func(s *ledger.Store) error {
		var moved bool
		var err error
		switch step.Op {
		case OpAppend:
			var ev ir.Event[ledger.Event]
			ev, err = s.Append(*step.Event)
			entry.EventID = ev.ID
			return err
		case OpUndo:
			moved, err = s.Undo()
		case OpRedo:
			moved, err = s.Redo()
		case OpNavigate:
			moved, err = s.Navigate(*step.Index)
		case OpNavigateTime:
			moved, err = s.NavigateToTime(*step.Time)
		case OpSnapshot:
			data, merr := schema.MarshalSnapshot(s.Snapshot())
			if merr != nil {
				return merr
			}
			h.snapshots[step.As] = data
			return nil
		default:
			return fmt.Errorf("unknown op %q", step.Op)
		}
		entry.Moved = &moved
		return err
	})
}

// errorCode classifies err for expect_error and the trace.
func errorCode(err error) string {
	var re *timeline.RestoreError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	if timeline.IsReducerError(err) {
		return string(timeline.ErrCodeReducerPanic)
	}
	if timeline.IsListenerError(err) {
		return string(timeline.ErrCodeListenerPanic)
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return CodeSchemaInvalid
	}
	return "ERROR"
}

func values(st ledger.State) map[string]int64 {
	if st.Values == nil {
		return map[string]int64{}
	}
	return st.Values
}
