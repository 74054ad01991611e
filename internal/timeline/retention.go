package timeline

import (
	"log/slog"
	"slices"

	"github.com/roach88/rewind/internal/ir"
)

// compactionPlan is a compaction computed ahead of the append it belongs to.
type compactionPlan[S any] struct {
	cut  int
	seed S
}

// planCompaction decides whether appending at pos overflows the log and, if
// so, materializes the seed state at the cut point. next is the state after
// the pending event.
func (s *Store[S, P]) planCompaction(pos int, next S) (*compactionPlan[S], error) {
	length := pos + 1
	if length <= s.cfg.maxEvents {
		return nil, nil
	}
	cut := length * s.cfg.compactNum / s.cfg.compactDen
	cut = max(1, min(cut, length-1))

	// Events before pos are unchanged by the pending append, so the live
	// history projects every cut except the pending position itself.
	if cut == pos {
		return &compactionPlan[S]{cut: cut, seed: next}, nil
	}
	seed, err := s.project(&s.h, cut)
	if err != nil {
		return nil, err
	}
	return &compactionPlan[S]{cut: cut, seed: seed}, nil
}

// compact drops events [0, plan.cut) and re-bases the history on the seed.
func (s *Store[S, P]) compact(plan *compactionPlan[S]) {
	s.h.events = slices.Clone(s.h.events[plan.cut:])
	s.h.seed = &ir.Seed[S]{Position: 0, State: plan.seed}
	s.h.ordered = timestampsOrdered(s.h.events)
	s.h.checkpoints.reset()
	if s.cfg.checkpoints {
		s.h.checkpoints.put(0, plan.seed)
	}
	s.index -= plan.cut
	s.compactions++

	slog.Info("log compacted", "dropped", plan.cut, "remaining", len(s.h.events), "compactions", s.compactions)
	s.cfg.observer.Compacted(plan.cut, len(s.h.events))
}

func timestampsOrdered[P ir.Payload](events []ir.Event[P]) bool {
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp < events[i-1].Timestamp {
			return false
		}
	}
	return true
}
