package timeline

import (
	"slices"
	"sort"
)

// checkpoint is a cached projection at a log position.
type checkpoint[S any] struct {
	position int
	state    S
}

// checkpointIndex keeps checkpoints sorted by position, at most one per position.
type checkpointIndex[S any] struct {
	entries []checkpoint[S]
}

// search returns the index of the first entry with position > pos.
func (c *checkpointIndex[S]) search(pos int) int {
	return sort.Search(len(c.entries), func(i int) bool {
		return c.entries[i].position > pos
	})
}

// put records state at pos, replacing any existing checkpoint there.
func (c *checkpointIndex[S]) put(pos int, state S) {
	i := c.search(pos)
	if i > 0 && c.entries[i-1].position == pos {
		c.entries[i-1].state = state
		return
	}
	c.entries = slices.Insert(c.entries, i, checkpoint[S]{position: pos, state: state})
}

// nearest returns the checkpoint with the greatest position <= pos.
func (c *checkpointIndex[S]) nearest(pos int) (checkpoint[S], bool) {
	i := c.search(pos)
	if i == 0 {
		return checkpoint[S]{}, false
	}
	return c.entries[i-1], true
}

// truncateAfter drops every checkpoint positioned after pos.
func (c *checkpointIndex[S]) truncateAfter(pos int) {
	i := c.search(pos)
	clear(c.entries[i:])
	c.entries = c.entries[:i]
}

func (c *checkpointIndex[S]) reset() {
	c.entries = nil
}

func (c *checkpointIndex[S]) positions() []int {
	out := make([]int, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.position
	}
	return out
}

func (c *checkpointIndex[S]) len() int {
	return len(c.entries)
}
