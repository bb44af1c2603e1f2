package syncx

import (
	"context"
	"fmt"
	"sync"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

// Phase is the lifecycle position of a workflow run
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePending    Phase = "pending"
	PhaseCommitted  Phase = "committed"
	PhaseRolledBack Phase = "rolled-back"
)

// IsTerminal reports whether the phase is final
func IsTerminal(p Phase) bool {
	return p == PhaseCommitted || p == PhaseRolledBack
}

func isAllowedTransition(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		// rolled back straight from idle when the pre-actions are rejected
		return to == PhasePending || to == PhaseRolledBack
	case PhasePending:
		return to == PhaseCommitted || to == PhaseRolledBack
	default:
		return false
	}
}

// Task is the eventual result of one workflow run
type Task struct {
	workflow Workflow

	mu    sync.Mutex
	phase Phase
	addr  resource.Address
	err   error
	done  chan struct{}
}

func newTask(w Workflow) *Task {
	return &Task{workflow: w, phase: PhaseIdle, done: make(chan struct{})}
}

// Workflow returns the workflow this task runs
func (t *Task) Workflow() Workflow { return t.workflow }

// Phase returns the current phase
func (t *Task) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Address returns the local address of the resource the workflow acts on.
// For an optimistic create it is the address minted before the remote call.
// It is zero for fetch-all and for a pessimistic create that has not committed.
func (t *Task) Address() resource.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addr
}

// Done is closed when the task reaches a terminal phase
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task settles and returns its error. A failed remote call
// is reported as *resource.RemoteError; a rejected action as the reducer's error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the task error once it has settled, nil before
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) setAddress(a resource.Address) {
	t.mu.Lock()
	t.addr = a
	t.mu.Unlock()
}

func (t *Task) transition(to Phase) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !isAllowedTransition(t.phase, to) {
		return fmt.Errorf("%s: disallowed transition %s -> %s", t.workflow, t.phase, to)
	}
	t.phase = to
	return nil
}

// finish moves the task to a terminal phase and releases waiters
func (t *Task) finish(to Phase, err error) {
	if terr := t.transition(to); terr != nil {
		panic(terr)
	}
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
