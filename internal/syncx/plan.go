package syncx

import "github.com/erauner12/toolbridge-resources/internal/resource"

// Workflow names one of the four synchronization workflows
type Workflow string

const (
	WorkflowFetch   Workflow = "fetch-all"
	WorkflowCreate  Workflow = "create"
	WorkflowUpdate  Workflow = "update"
	WorkflowDestroy Workflow = "destroy"
)

// Label returns the request/error label recorded for the workflow
func (w Workflow) Label() resource.Label {
	switch w {
	case WorkflowFetch:
		return resource.LabelFetching
	case WorkflowCreate:
		return resource.LabelCreating
	case WorkflowUpdate:
		return resource.LabelUpdating
	case WorkflowDestroy:
		return resource.LabelDestroying
	}
	return resource.Label(w)
}

// step is one symbolic action of a plan, turned into a concrete action by run.action
type step uint8

const (
	stepAddInput       step = iota + 1 // add(input); the minted local id becomes the run address
	stepAddResult                      // add(server attributes)
	stepSetInput                       // set(input, addr)
	stepPatchInput                     // patch(input, addr)
	stepSetResult                      // set(server attributes, addr)
	stepSetAllResult                   // set(server list)
	stepMarkPending                    // request(pending, addr)
	stepClearPending                   // request(nil, addr)
	stepRemove                         // remove(addr)
	stepFail                           // error(failure, addr)
	stepFailCollection                 // error(failure) on the collection slot
)

var stepNames = map[step]string{
	stepAddInput:       "add",
	stepAddResult:      "add-result",
	stepSetInput:       "set",
	stepPatchInput:     "patch",
	stepSetResult:      "set-result",
	stepSetAllResult:   "set-all",
	stepMarkPending:    "mark-pending",
	stepClearPending:   "clear-pending",
	stepRemove:         "remove",
	stepFail:           "fail",
	stepFailCollection: "fail-collection",
}

func (s step) String() string { return stepNames[s] }

// addressed reports whether the step acts on the run's resource
func (s step) addressed() bool {
	switch s {
	case stepAddInput, stepAddResult, stepSetAllResult, stepFailCollection:
		return false
	}
	return true
}

// kind is the reducer action kind the step dispatches
func (s step) kind() resource.Kind {
	switch s {
	case stepAddInput, stepAddResult:
		return resource.KindAdd
	case stepSetInput, stepSetResult, stepSetAllResult:
		return resource.KindSet
	case stepPatchInput:
		return resource.KindPatch
	case stepMarkPending, stepClearPending:
		return resource.KindRequest
	case stepRemove:
		return resource.KindRemove
	default:
		return resource.KindError
	}
}

// plan lists the actions emitted before the remote call and after it settles
type plan struct {
	before  []step
	success []step
	failure []step
}

type planKey struct {
	workflow   Workflow
	optimistic bool
	patch      bool
}

var updateSettled = plan{
	success: []step{stepClearPending, stepSetResult},
	failure: []step{stepClearPending, stepFail},
}

// plans holds every workflow/flag combination. Flags a workflow ignores are
// normalized away by planFor before the lookup.
var plans = map[planKey]plan{
	{WorkflowFetch, false, false}: {
		before:  []step{stepMarkPending},
		success: []step{stepClearPending, stepSetAllResult},
		failure: []step{stepClearPending, stepFail},
	},
	{WorkflowCreate, true, false}: {
		before:  []step{stepAddInput, stepMarkPending},
		success: []step{stepSetResult, stepClearPending},
		failure: []step{stepRemove, stepFailCollection},
	},
	{WorkflowCreate, false, false}: {
		success: []step{stepAddResult},
		failure: []step{stepFailCollection},
	},
	{WorkflowUpdate, true, false}: {
		before:  []step{stepSetInput, stepMarkPending},
		success: updateSettled.success,
		failure: updateSettled.failure,
	},
	{WorkflowUpdate, true, true}: {
		before:  []step{stepPatchInput, stepMarkPending},
		success: updateSettled.success,
		failure: updateSettled.failure,
	},
	{WorkflowUpdate, false, false}: {
		before:  []step{stepMarkPending},
		success: updateSettled.success,
		failure: updateSettled.failure,
	},
	// The optimistic removal is not undone on failure and the resource is gone,
	// so the error lands on the collection slot.
	{WorkflowDestroy, true, false}: {
		before:  []step{stepRemove},
		failure: []step{stepFailCollection},
	},
	// The pending marker is left in place on failure, next to the error.
	{WorkflowDestroy, false, false}: {
		before:  []step{stepMarkPending},
		success: []step{stepRemove},
		failure: []step{stepFail},
	},
}

func planFor(w Workflow, optimistic, patch bool) (plan, bool) {
	switch w {
	case WorkflowFetch:
		optimistic, patch = false, false
	case WorkflowCreate, WorkflowDestroy:
		patch = false
	case WorkflowUpdate:
		patch = patch && optimistic
	}
	p, ok := plans[planKey{w, optimistic, patch}]
	return p, ok
}
