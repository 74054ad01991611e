package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rewind/internal/ledger"
	"github.com/roach88/rewind/internal/timeline"
)

func newLedgerRegistry() *Registry[ledger.State, ledger.Event] {
	return NewRegistry[ledger.State, ledger.Event](func() (*ledger.Store, error) { return ledger.NewStore() })
}

func TestRegistry_CreateGetDelete(t *testing.T) {
	r := newLedgerRegistry()

	sess, err := r.Create("main")
	require.NoError(t, err)
	assert.Equal(t, "main", sess.Name())

	got, err := r.Get("main")
	require.NoError(t, err)
	assert.Same(t, sess, got)

	_, err = r.Create("main")
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, r.Delete("main"))
	_, err = r.Get("main")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, r.Delete("main"), ErrNotFound)
}

func TestRegistry_EmptyName(t *testing.T) {
	r := newLedgerRegistry()
	_, err := r.Create("")
	assert.ErrorIs(t, err, ErrEmptyName)

	s, err := ledger.NewStore()
	require.NoError(t, err)
	_, err = r.Adopt("", s)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestRegistry_FactoryError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry[ledger.State, ledger.Event](func() (*ledger.Store, error) { return nil, boom })

	_, err := r.Create("x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := newLedgerRegistry()
	for _, name := range []string{"b", "c", "a"} {
		_, err := r.Create(name)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Fork(t *testing.T) {
	r := newLedgerRegistry()
	trunk, err := r.Create("main")
	require.NoError(t, err)
	require.NoError(t, trunk.Do(func(s *ledger.Store) error {
		_, err := s.Append(ledger.Set("a", 1))
		return err
	}))

	branch, err := r.Fork("main", "branch")
	require.NoError(t, err)
	require.NoError(t, branch.Do(func(s *ledger.Store) error {
		_, err := s.Append(ledger.Add("a", 10))
		return err
	}))

	require.NoError(t, trunk.Do(func(s *ledger.Store) error {
		assert.Equal(t, int64(1), s.State().Get("a"))
		return nil
	}))
	require.NoError(t, branch.Do(func(s *ledger.Store) error {
		assert.Equal(t, int64(11), s.State().Get("a"))
		return nil
	}))

	_, err = r.Fork("missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Fork("main", "branch")
	assert.ErrorIs(t, err, ErrExists)
}

func TestSession_DoPropagatesError(t *testing.T) {
	r := newLedgerRegistry()
	sess, err := r.Create("main")
	require.NoError(t, err)

	err = sess.Do(func(s *ledger.Store) error {
		_, err := s.Append(ledger.Event{Kind: "bogus"})
		return err
	})
	assert.True(t, timeline.IsReducerError(err))
}

func TestSession_ConcurrentAppends(t *testing.T) {
	r := newLedgerRegistry()
	sess, err := r.Create("main")
	require.NoError(t, err)

	const workers, perWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				err := sess.Do(func(s *ledger.Store) error {
					_, err := s.Append(ledger.Add("n", 1))
					return err
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	require.NoError(t, sess.Do(func(s *ledger.Store) error {
		assert.Equal(t, workers*perWorker, s.Len())
		assert.Equal(t, int64(workers*perWorker), s.State().Get("n"))
		return s.VerifyCheckpoints()
	}))
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := newLedgerRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Create("shared"); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, []string{"shared"}, r.Names())
}
