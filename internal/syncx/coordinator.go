// Package syncx runs the fetch-all, create, update and destroy workflows that
// keep a resource store in step with a remote collection.
//
// Each workflow issues exactly one remote call. The actions it emits around
// that call come from the plans table, keyed by workflow and flags, so the
// optimistic and pessimistic variants differ only in data.
package syncx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

// ErrNotPersisted is returned when update or destroy targets a resource the
// server has not assigned an id to yet.
var ErrNotPersisted = errors.New("resource has no persisted id")

// Transport is the remote collection endpoint
type Transport interface {
	FetchAll(ctx context.Context, params url.Values) *Call[[]resource.Attributes]
	Create(ctx context.Context, attrs resource.Attributes) *Call[resource.Attributes]
	Update(ctx context.Context, id any, attrs resource.Attributes) *Call[resource.Attributes]
	Delete(ctx context.Context, id any) *Call[struct{}]
}

// Dispatcher applies actions to the store holding the collection. The
// coordinator never keeps a State of its own; it only reads the current one
// to resolve addresses.
type Dispatcher interface {
	Dispatch(resource.Action) (resource.State, error)
	State() resource.State
}

// Coordinator runs workflows against one transport and one dispatcher
type Coordinator struct {
	transport  Transport
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLogger sets the coordinator logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a coordinator
func New(t Transport, d Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{transport: t, dispatcher: d, logger: log.Logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type callOptions struct {
	optimistic bool
	patch      bool
	params     url.Values
}

// CallOption adjusts a single workflow run
type CallOption func(*callOptions)

// Optimistic selects whether the local mutation happens before (true, the
// default) or after the server confirms it.
func Optimistic(on bool) CallOption {
	return func(o *callOptions) { o.optimistic = on }
}

// PatchMode makes an optimistic update merge attributes instead of replacing them
func PatchMode(on bool) CallOption {
	return func(o *callOptions) { o.patch = on }
}

// WithParams passes query parameters to fetch-all
func WithParams(params url.Values) CallOption {
	return func(o *callOptions) { o.params = params }
}

func buildOptions(opts []CallOption) callOptions {
	o := callOptions{optimistic: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FetchAll replaces the collection with the server's list
func (c *Coordinator) FetchAll(ctx context.Context, opts ...CallOption) *Task {
	o := buildOptions(opts)
	r := &run{workflow: WorkflowFetch}

	call := c.transport.FetchAll(ctx, o.params)
	return c.execute(r, o, call.Handle(), func() error {
		list, err := call.Wait(context.Background())
		r.results = list
		return err
	})
}

// Create saves a new resource. Optimistically, the resource is added under a
// fresh local id right away and reconciled with the server attributes later.
func (c *Coordinator) Create(ctx context.Context, attrs resource.Attributes, opts ...CallOption) *Task {
	o := buildOptions(opts)
	r := &run{workflow: WorkflowCreate, input: attrs.Clone()}

	call := c.transport.Create(ctx, attrs.Clone())
	return c.execute(r, o, call.Handle(), func() error {
		res, err := call.Wait(context.Background())
		r.result = res
		return err
	})
}

// Update sends attrs for the addressed resource
func (c *Coordinator) Update(ctx context.Context, attrs resource.Attributes, addr resource.Address, opts ...CallOption) *Task {
	o := buildOptions(opts)
	r := &run{workflow: WorkflowUpdate, input: attrs.Clone()}

	id, err := c.resolve(r, o, addr)
	if err != nil {
		return c.rejected(r, err)
	}

	call := c.transport.Update(ctx, id, attrs.Clone())
	return c.execute(r, o, call.Handle(), func() error {
		res, err := call.Wait(context.Background())
		r.result = res
		return err
	})
}

// Destroy deletes the addressed resource
func (c *Coordinator) Destroy(ctx context.Context, addr resource.Address, opts ...CallOption) *Task {
	o := buildOptions(opts)
	r := &run{workflow: WorkflowDestroy}

	id, err := c.resolve(r, o, addr)
	if err != nil {
		return c.rejected(r, err)
	}

	call := c.transport.Delete(ctx, id)
	return c.execute(r, o, call.Handle(), func() error {
		_, err := call.Wait(context.Background())
		return err
	})
}

// resolve finds the addressed resource, pins the run to its local address and
// returns the persisted id the transport needs.
func (c *Coordinator) resolve(r *run, o callOptions, addr resource.Address) (any, error) {
	res, _ := c.dispatcher.State().Find(addr)
	if res == nil {
		op := resource.KindRequest
		if p, ok := planFor(r.workflow, o.optimistic, o.patch); ok && len(p.before) > 0 {
			op = p.before[0].kind()
		}
		return nil, &resource.NotFoundError{Op: op, Address: addr}
	}

	id, ok := res.ID()
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", r.workflow, addr, ErrNotPersisted)
	}
	r.addr = res.Address()
	r.id = id
	return id, nil
}

func (c *Coordinator) rejected(r *run, err error) *Task {
	t := newTask(r.workflow)
	c.logger.Error().Err(err).Str("workflow", string(r.workflow)).Msg("workflow rejected")
	t.finish(PhaseRolledBack, err)
	return t
}

// execute emits the plan's pre-actions synchronously, then waits for the remote
// call on its own goroutine and emits the success or failure actions.
func (c *Coordinator) execute(r *run, o callOptions, h resource.Handle, wait func() error) *Task {
	t := newTask(r.workflow)
	r.handle = h

	p, ok := planFor(r.workflow, o.optimistic, o.patch)
	if !ok {
		h.Cancel()
		t.finish(PhaseRolledBack, fmt.Errorf("%s: no plan for optimistic=%t patch=%t", r.workflow, o.optimistic, o.patch))
		return t
	}

	logger := c.logger.With().
		Str("workflow", string(r.workflow)).
		Str("requestId", h.ID()).
		Bool("optimistic", o.optimistic).
		Logger()

	if err := c.emit(r, p.before); err != nil {
		h.Cancel()
		logger.Error().Err(err).Msg("pre-actions rejected, call cancelled")
		t.finish(PhaseRolledBack, err)
		return t
	}
	t.setAddress(r.addr)
	if err := t.transition(PhasePending); err != nil {
		panic(err)
	}
	logger.Debug().Str("address", r.addr.String()).Msg("workflow pending")

	go func() {
		if remoteErr := wait(); remoteErr != nil {
			r.failure = &resource.RemoteError{Label: r.workflow.Label(), Err: remoteErr}
			logger.Warn().Err(remoteErr).Str("address", r.addr.String()).Msg("remote call failed")

			err := error(r.failure)
			if derr := c.settled(r, p.failure); derr != nil {
				logger.Error().Err(derr).Msg("failure actions rejected")
				err = errors.Join(r.failure, derr)
			}
			t.setAddress(r.addr)
			t.finish(PhaseRolledBack, err)
			return
		}

		err := c.settled(r, p.success)
		if err != nil {
			logger.Error().Err(err).Msg("success actions rejected")
		}
		t.setAddress(r.addr)
		t.finish(PhaseCommitted, err)
		logger.Debug().Str("address", r.addr.String()).Msg("workflow committed")
	}()

	return t
}

// settled emits the post-call steps once the run's address has been checked
// against the current state
func (c *Coordinator) settled(r *run, steps []step) error {
	if err := c.repin(r, steps); err != nil {
		return err
	}
	return c.emit(r, steps)
}

// repin makes sure r.addr still names the resource the run started on. A
// fetch-all settling while the call was in flight renumbers local ids, so a
// pinned address that neither carries this run's request nor the persisted id
// is replaced by wherever that id lives now. Without a persisted id to follow
// the steps are rejected.
func (c *Coordinator) repin(r *run, steps []step) error {
	if r.addr.IsZero() || !slices.ContainsFunc(steps, step.addressed) {
		return nil
	}

	state := c.dispatcher.State()
	if res, _ := state.Find(r.addr); res != nil && r.owns(res) {
		return nil
	}

	missing := r.addr
	var res *resource.Resource
	if r.id != nil {
		missing = resource.Persisted(r.id)
		res, _ = state.Find(missing)
	}
	if res == nil {
		return fmt.Errorf("%s: %w", r.workflow, &resource.NotFoundError{Op: steps[0].kind(), Address: missing})
	}
	c.logger.Debug().
		Str("workflow", string(r.workflow)).
		Str("from", r.addr.String()).
		Str("to", res.Address().String()).
		Msg("resource renumbered while in flight")
	r.addr = res.Address()
	return nil
}

// emit dispatches each step in order and stops at the first rejected action
func (c *Coordinator) emit(r *run, steps []step) error {
	for _, s := range steps {
		next, err := c.dispatcher.Dispatch(r.action(s))
		if err != nil {
			return fmt.Errorf("%s %s: %w", r.workflow, s, err)
		}
		if s == stepAddInput || s == stepAddResult {
			r.addr = resource.Local(next.LastLocalID)
		}
	}
	return nil
}

// run carries everything the steps of one workflow run refer to
type run struct {
	workflow Workflow
	input    resource.Attributes
	addr     resource.Address
	handle   resource.Handle
	id       any // persisted id captured by resolve
	result   resource.Attributes
	results  []resource.Attributes
	failure  *resource.RemoteError
}

// owns reports whether res is the resource this run is acting on: it still
// holds the run's request marker or carries the persisted id the run resolved
func (r *run) owns(res *resource.Resource) bool {
	if req := res.Request; req != nil && req.Handle != nil && r.handle != nil && req.Handle.ID() == r.handle.ID() {
		return true
	}
	if r.id == nil {
		return false
	}
	id, ok := res.ID()
	return ok && resource.IndexKey(id) == resource.IndexKey(r.id)
}

func (r *run) action(s step) resource.Action {
	switch s {
	case stepAddInput:
		return resource.Add{Attributes: r.input}
	case stepAddResult:
		return resource.Add{Attributes: r.result}
	case stepSetInput:
		return resource.Set{Address: r.addr, Attributes: r.input}
	case stepPatchInput:
		return resource.Patch{Address: r.addr, Attributes: r.input}
	case stepSetResult:
		return resource.Set{Address: r.addr, Attributes: r.result}
	case stepSetAllResult:
		return resource.SetAll{Items: r.results}
	case stepMarkPending:
		return resource.MarkRequest{
			Address: r.addr,
			Request: &resource.Request{Label: r.workflow.Label(), Handle: r.handle},
		}
	case stepClearPending:
		return resource.MarkRequest{Address: r.addr}
	case stepRemove:
		return resource.Remove{Address: r.addr}
	case stepFail:
		return resource.MarkError{Address: r.addr, Error: r.failure}
	case stepFailCollection:
		return resource.MarkError{Error: r.failure}
	}
	panic(fmt.Sprintf("syncx: unknown step %d", s))
}
