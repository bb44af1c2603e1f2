// Package store hosts a resource State and serializes every action applied to it.
package store

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

// Listener is notified with the new state after every applied action
type Listener func(resource.State)

// Store owns the current State of one collection. Dispatch is the only way to
// change it; each call runs the reducer to completion before the next one starts.
type Store struct {
	mu        sync.Mutex
	name      string
	reducer   *resource.Reducer
	state     resource.State
	listeners map[int]Listener
	nextSub   int
	metrics   *Metrics
	logger    zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithInitialState starts the store from s instead of the reducer's empty state
func WithInitialState(s resource.State) Option {
	return func(st *Store) { st.state = s }
}

// WithLogger sets the logger used for rejected actions
func WithLogger(l zerolog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// WithMetrics records dispatch outcomes into m
func WithMetrics(m *Metrics) Option {
	return func(st *Store) { st.metrics = m }
}

// WithName labels the store in logs and metrics
func WithName(name string) Option {
	return func(st *Store) { st.name = name }
}

// New creates a store driven by reducer
func New(reducer *resource.Reducer, opts ...Option) *Store {
	s := &Store{
		name:      "default",
		reducer:   reducer,
		state:     reducer.Initial(),
		listeners: make(map[int]Listener),
		logger:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("store", s.name).Logger()
	return s
}

// ErrNilAction is returned by Dispatch for a nil action.
var ErrNilAction = errors.New("nil action")

// Dispatch applies action and returns the resulting state. When the reducer
// rejects the action the current state is kept and the error is returned.
func (s *Store) Dispatch(action resource.Action) (resource.State, error) {
	action = resource.Value(action)
	if action == nil {
		s.logger.Error().Err(ErrNilAction).Msg("action rejected")
		return s.State(), ErrNilAction
	}

	s.mu.Lock()
	next, err := s.reducer.Apply(s.state, action)
	if err == nil {
		s.state = next
	}
	current := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	s.metrics.observe(s.name, action.Kind(), err, current)

	if err != nil {
		s.logger.Error().Err(err).Str("kind", string(action.Kind())).Msg("action rejected")
		return current, err
	}

	s.logger.Debug().
		Str("kind", string(action.Kind())).
		Int("resources", len(current.Resources)).
		Msg("action applied")

	for _, l := range listeners {
		l(current)
	}
	return current, nil
}

// State returns the current state
func (s *Store) State() resource.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers l and returns a function removing it again
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Cancel cancels the in-flight request of the addressed resource, or of the
// collection when addr is zero. It reports whether a request was found.
func (s *Store) Cancel(addr resource.Address) bool {
	st := s.State()

	var req *resource.Request
	if addr.IsZero() {
		req = st.Request
	} else if r, _ := st.Find(addr); r != nil {
		req = r.Request
	}
	if req == nil || req.Handle == nil {
		return false
	}

	s.logger.Info().
		Str("address", addr.String()).
		Str("label", string(req.Label)).
		Str("requestId", req.Handle.ID()).
		Msg("cancelling request")
	req.Handle.Cancel()
	return true
}
