package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ir"
)

// bruteForce folds the first n+1 events from zero, ignoring checkpoints.
func bruteForce(events []ir.Event[op], n int) counter {
	state := counter{}
	for _, ev := range events[:n+1] {
		state = reduce(state, ev)
	}
	return state
}

func TestCheckpointIndex(t *testing.T) {
	var idx checkpointIndex[int]

	idx.put(10, 100)
	idx.put(-1, 0)
	idx.put(5, 50)
	idx.put(5, 55)
	assert.Equal(t, []int{-1, 5, 10}, idx.positions())

	cp, ok := idx.nearest(7)
	require.True(t, ok)
	assert.Equal(t, 5, cp.position)
	assert.Equal(t, 55, cp.state)

	cp, ok = idx.nearest(10)
	require.True(t, ok)
	assert.Equal(t, 10, cp.position)

	_, ok = idx.nearest(-2)
	assert.False(t, ok)

	idx.truncateAfter(5)
	assert.Equal(t, []int{-1, 5}, idx.positions())

	idx.reset()
	assert.Equal(t, 0, idx.len())
}

func TestCheckpoints_Intervals(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		appends  int
		expected []int
	}{
		{"every event", []Option{WithCheckpointInterval(1)}, 4, []int{-1, 0, 1, 2, 3}},
		{"every ten", []Option{WithCheckpointInterval(10)}, 25, []int{-1, 0, 10, 20}},
		{"default interval", nil, 250, []int{-1, 0, 100, 200}},
		{"disabled", []Option{WithCheckpoints(false)}, 25, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, tt.opts...)
			for i := 0; i < tt.appends; i++ {
				mustAppend(t, s, inc(1))
			}
			assert.Equal(t, tt.expected, s.Checkpoints())
			assert.Equal(t, counter{V: tt.appends}, s.State())
			require.NoError(t, s.VerifyCheckpoints())
		})
	}
}

func TestStateAt_MatchesBruteForce(t *testing.T) {
	for _, interval := range []int{1, 3, 10, 100} {
		s := newStore(t, WithCheckpointInterval(interval))
		for i := 1; i <= 57; i++ {
			mustAppend(t, s, inc(i))
		}
		events := s.Events()
		for pos := 0; pos < len(events); pos++ {
			got, err := s.StateAt(pos)
			require.NoError(t, err)
			assert.Equal(t, bruteForce(events, pos), got, "interval=%d pos=%d", interval, pos)
		}
	}
}

func TestStateAt_WithoutCheckpoints(t *testing.T) {
	s := newStore(t, WithCheckpoints(false))
	mustAppend(t, s, inc(1), inc(2), inc(3))

	got, err := s.StateAt(1)
	require.NoError(t, err)
	assert.Equal(t, counter{V: 3}, got)

	// Navigation folds from the initial state.
	_, err = s.Navigate(0)
	require.NoError(t, err)
	assert.Equal(t, counter{V: 1}, s.State())
}

func TestStateAt_ReachesUndoneAndClamps(t *testing.T) {
	s := newStore(t)
	mustAppend(t, s, inc(1), inc(2), inc(3))
	_, err := s.Navigate(0)
	require.NoError(t, err)

	got, err := s.StateAt(2)
	require.NoError(t, err)
	assert.Equal(t, counter{V: 6}, got)
	assert.Equal(t, 0, s.Index(), "StateAt does not move the cursor")

	got, err = s.StateAt(-10)
	require.NoError(t, err)
	assert.Equal(t, counter{}, got)

	got, err = s.StateAt(10)
	require.NoError(t, err)
	assert.Equal(t, counter{V: 6}, got)
}

func TestNavigate_EveryPositionMatchesBruteForce(t *testing.T) {
	s := newStore(t, WithCheckpointInterval(4))
	for i := 0; i < 30; i++ {
		mustAppend(t, s, inc(i%7-3))
	}
	events := s.Events()

	for _, pos := range []int{17, 3, 29, 0, 12, 28, 4, 5} {
		_, err := s.Navigate(pos)
		require.NoError(t, err)
		assert.Equal(t, bruteForce(events, pos), s.State(), "pos=%d", pos)
	}
}

func TestVerifyCheckpoints_DetectsNondeterminism(t *testing.T) {
	calls := 0
	s, err := New(counter{}, func(st counter, _ ir.Event[op]) counter {
		calls++
		return counter{V: st.V + calls}
	}, WithCheckpointInterval(1))
	require.NoError(t, err)

	_, err = s.Append(inc(1))
	require.NoError(t, err)

	err = s.VerifyCheckpoints()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify checkpoint 0")
}
