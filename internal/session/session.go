// Package session serializes access to named timeline stores.
//
// timeline.Store has no internal locking. A Registry owns a set of stores and
// hands each one out only inside Session.Do, which holds that session's
// mutex for the duration of the callback. Different sessions proceed in
// parallel.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/rewind/internal/ir"
	"github.com/roach88/rewind/internal/timeline"
)

var (
	// ErrNotFound is returned when a session name is not registered.
	ErrNotFound = errors.New("session not found")

	// ErrExists is returned by Create and Fork when the name is taken.
	ErrExists = errors.New("session already exists")

	// ErrEmptyName is returned for a blank session name.
	ErrEmptyName = errors.New("session name is empty")
)

// Factory builds an empty store for a new session.
type Factory[S any, P ir.Payload] func() (*timeline.Store[S, P], error)

// Session is one named store and the mutex that guards it.
type Session[S any, P ir.Payload] struct {
	name  string
	mu    sync.Mutex
	store *timeline.Store[S, P]
}

// Name returns the session name.
func (s *Session[S, P]) Name() string {
	return s.name
}

// Do runs fn with exclusive access to the session's store.
// The store must not be retained after fn returns.
func (s *Session[S, P]) Do(fn func(*timeline.Store[S, P]) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.store)
}

// Registry maps names to sessions.
type Registry[S any, P ir.Payload] struct {
	factory Factory[S, P]

	mu       sync.RWMutex
	sessions map[string]*Session[S, P]
}

// NewRegistry creates an empty registry whose sessions are built by factory.
func NewRegistry[S any, P ir.Payload](factory Factory[S, P]) *Registry[S, P] {
	return &Registry[S, P]{
		factory:  factory,
		sessions: make(map[string]*Session[S, P]),
	}
}

// Create registers a new session with an empty store.
func (r *Registry[S, P]) Create(name string) (*Session[S, P], error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	store, err := r.factory()
	if err != nil {
		return nil, fmt.Errorf("create session %q: %w", name, err)
	}
	return r.add(name, store)
}

// Adopt registers an existing store under name.
// The caller must not touch store afterwards except through the session.
func (r *Registry[S, P]) Adopt(name string, store *timeline.Store[S, P]) (*Session[S, P], error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return r.add(name, store)
}

// Fork registers a fork of the session src under dst.
func (r *Registry[S, P]) Fork(src, dst string) (*Session[S, P], error) {
	if dst == "" {
		return nil, ErrEmptyName
	}
	from, err := r.Get(src)
	if err != nil {
		return nil, err
	}

	var forked *timeline.Store[S, P]
	if err := from.Do(func(s *timeline.Store[S, P]) error {
		var ferr error
		forked, ferr = s.Fork()
		return ferr
	}); err != nil {
		return nil, fmt.Errorf("fork session %q: %w", src, err)
	}
	return r.add(dst, forked)
}

func (r *Registry[S, P]) add(name string, store *timeline.Store[S, P]) (*Session[S, P], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrExists, name)
	}
	sess := &Session[S, P]{name: name, store: store}
	r.sessions[name] = sess
	slog.Debug("session registered", "session", name, "length", store.Len())
	return sess, nil
}

// Get returns the named session.
func (r *Registry[S, P]) Get(name string) (*Session[S, P], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return sess, nil
}

// Delete removes the named session.
// Callers already inside Do on that session finish normally.
func (r *Registry[S, P]) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(r.sessions, name)
	slog.Debug("session deleted", "session", name)
	return nil
}

// Names returns all session names in ascending order.
func (r *Registry[S, P]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of sessions.
func (r *Registry[S, P]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
