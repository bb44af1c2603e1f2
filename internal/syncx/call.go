package syncx

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

// Call is the eventual result of one remote operation together with the handle
// that cancels it. A Call settles exactly once; later Settle calls are ignored.
type Call[T any] struct {
	handle resource.Handle
	done   chan struct{}
	once   sync.Once
	value  T
	err    error
}

// NewCall returns an unsettled call. Transports that manage their own
// goroutines (and test fakes) settle it with Settle.
func NewCall[T any](h resource.Handle) *Call[T] {
	if h == nil {
		h = NewHandle(nil)
	}
	return &Call[T]{handle: h, done: make(chan struct{})}
}

// Start runs fn on its own goroutine with a cancellable child of ctx and returns
// the call settled with fn's result. Cancelling the handle cancels fn's context.
func Start[T any](ctx context.Context, fn func(context.Context) (T, error)) *Call[T] {
	ctx, cancel := context.WithCancel(ctx)
	c := NewCall[T](NewHandle(cancel))
	go func() {
		defer cancel()
		v, err := fn(ctx)
		c.Settle(v, err)
	}()
	return c
}

// Settle records the result. It reports false if the call had already settled.
func (c *Call[T]) Settle(v T, err error) bool {
	settled := false
	c.once.Do(func() {
		c.value, c.err = v, err
		close(c.done)
		settled = true
	})
	return settled
}

// Handle returns the cancellation handle
func (c *Call[T]) Handle() resource.Handle { return c.handle }

// Done is closed once the call has settled
func (c *Call[T]) Done() <-chan struct{} { return c.done }

// Wait blocks until the call settles or ctx is done
func (c *Call[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type handle struct {
	id     string
	cancel context.CancelFunc
}

// NewHandle wraps cancel in a resource.Handle with a fresh request id.
// A nil cancel yields a handle whose Cancel does nothing.
func NewHandle(cancel context.CancelFunc) resource.Handle {
	return &handle{id: uuid.NewString(), cancel: cancel}
}

func (h *handle) ID() string { return h.id }

func (h *handle) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}
