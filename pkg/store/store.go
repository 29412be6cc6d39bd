package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	persist "github.com/goliatone/go-persistfile"
	"github.com/goliatone/go-persistfile/layering"
)

// ErrUnknownMutation is returned by Commit for names never registered.
var ErrUnknownMutation = errors.New("store: unknown mutation")

// MutationFunc edits state in place. The tree is a private copy; returning an
// error discards it.
type MutationFunc func(state persist.State, payload any) error

// Option configures a Store.
type Option func(*Store)

// WithMutation registers fn under name at construction time.
func WithMutation(name string, fn MutationFunc) Option {
	return func(s *Store) {
		_ = s.Register(name, fn)
	}
}

// Store holds a JSON-shaped state tree mutated through named mutations.
type Store struct {
	commitMu sync.Mutex

	mu        sync.RWMutex
	state     persist.State
	mutations map[string]MutationFunc
	listeners []*subscription
	nextID    int
}

type subscription struct {
	id       int
	listener persist.Listener
}

var _ persist.Store = (*Store)(nil)

// New returns a Store seeded with a deep copy of initial.
func New(initial persist.State, opts ...Option) *Store {
	s := &Store{
		state:     cloneState(initial),
		mutations: map[string]MutationFunc{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Register adds a named mutation. Names are unique.
func (s *Store) Register(name string, fn MutationFunc) error {
	if name == "" {
		return fmt.Errorf("store: mutation name is required")
	}
	if fn == nil {
		return fmt.Errorf("store: mutation %q is nil", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.mutations[name]; exists {
		return fmt.Errorf("store: mutation %q already registered", name)
	}
	s.mutations[name] = fn
	return nil
}

// Commit applies the mutation registered under name and notifies listeners
// with the committed state. Listener errors are joined and returned; the
// state change is kept regardless.
func (s *Store) Commit(ctx context.Context, name string, payload any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.RLock()
	fn, ok := s.mutations[name]
	working := cloneState(s.state)
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMutation, name)
	}

	if err := fn(working, payload); err != nil {
		return fmt.Errorf("store: mutation %q: %w", name, err)
	}

	s.mu.Lock()
	s.state = working
	listeners := append([]*subscription(nil), s.listeners...)
	s.mu.Unlock()

	mutation := persist.Mutation{Type: name, Payload: payload}
	var errs []error
	for _, sub := range listeners {
		if err := sub.listener(ctx, mutation, cloneState(working)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State returns a deep copy of the current tree.
func (s *Store) State() persist.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// ReplaceState swaps the whole tree without notifying listeners.
func (s *Store) ReplaceState(state persist.State) {
	next := cloneState(state)
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// Subscribe appends listener and returns a function that removes it.
func (s *Store) Subscribe(listener persist.Listener) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, &subscription{id: id, listener: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Mutations returns the registered mutation names in no particular order.
func (s *Store) Mutations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.mutations))
	for name := range s.mutations {
		names = append(names, name)
	}
	return names
}

// Use attaches plugins in order, stopping at the first error.
func (s *Store) Use(ctx context.Context, plugins ...persist.PluginFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for i, plugin := range plugins {
		if plugin == nil {
			continue
		}
		if err := plugin(ctx, s); err != nil {
			return fmt.Errorf("store: plugin %d: %w", i, err)
		}
	}
	return nil
}

func cloneState(state persist.State) persist.State {
	if state == nil {
		return persist.State{}
	}
	if cloned, ok := layering.Clone(state).(map[string]any); ok {
		return cloned
	}
	return persist.State{}
}
