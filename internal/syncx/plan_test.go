package syncx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

func TestEveryFlagCombinationHasAPlan(t *testing.T) {
	for _, w := range []Workflow{WorkflowFetch, WorkflowCreate, WorkflowUpdate, WorkflowDestroy} {
		for _, optimistic := range []bool{true, false} {
			for _, patch := range []bool{true, false} {
				p, ok := planFor(w, optimistic, patch)
				require.True(t, ok, "%s optimistic=%t patch=%t", w, optimistic, patch)
				assert.NotEmpty(t, p.failure, "%s must record failures", w)
			}
		}
	}
}

func TestPlanForNormalizesFlags(t *testing.T) {
	tests := []struct {
		name       string
		workflow   Workflow
		optimistic bool
		patch      bool
		before     []step
	}{
		{"fetch ignores optimistic", WorkflowFetch, true, true, []step{stepMarkPending}},
		{"create ignores patch", WorkflowCreate, true, true, []step{stepAddInput, stepMarkPending}},
		{"pessimistic update ignores patch", WorkflowUpdate, false, true, []step{stepMarkPending}},
		{"optimistic patch", WorkflowUpdate, true, true, []step{stepPatchInput, stepMarkPending}},
		{"optimistic set", WorkflowUpdate, true, false, []step{stepSetInput, stepMarkPending}},
		{"optimistic destroy", WorkflowDestroy, true, false, []step{stepRemove}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := planFor(tt.workflow, tt.optimistic, tt.patch)
			require.True(t, ok)
			assert.Equal(t, tt.before, p.before)
		})
	}
}

func TestStepKinds(t *testing.T) {
	assert.Equal(t, resource.KindAdd, stepAddInput.kind())
	assert.Equal(t, resource.KindSet, stepSetAllResult.kind())
	assert.Equal(t, resource.KindPatch, stepPatchInput.kind())
	assert.Equal(t, resource.KindRequest, stepClearPending.kind())
	assert.Equal(t, resource.KindRemove, stepRemove.kind())
	assert.Equal(t, resource.KindError, stepFailCollection.kind())
	assert.Equal(t, "mark-pending", stepMarkPending.String())
}

func TestWorkflowLabels(t *testing.T) {
	assert.Equal(t, resource.LabelFetching, WorkflowFetch.Label())
	assert.Equal(t, resource.LabelCreating, WorkflowCreate.Label())
	assert.Equal(t, resource.LabelUpdating, WorkflowUpdate.Label())
	assert.Equal(t, resource.LabelDestroying, WorkflowDestroy.Label())
}

func TestPhaseTransitions(t *testing.T) {
	task := newTask(WorkflowUpdate)
	require.NoError(t, task.transition(PhasePending))
	assert.Error(t, task.transition(PhaseIdle))
	task.finish(PhaseCommitted, nil)
	assert.True(t, IsTerminal(task.Phase()))
	assert.Error(t, task.transition(PhaseRolledBack))

	early := newTask(WorkflowDestroy)
	early.finish(PhaseRolledBack, ErrNotPersisted)
	assert.ErrorIs(t, early.Err(), ErrNotPersisted)
	assert.False(t, IsTerminal(PhasePending))
}
