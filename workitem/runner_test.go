package workitem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/pathengine/internal/perr"
)

func TestRun_OneShotRunsExactlyOnce(t *testing.T) {
	r := New(nil)
	calls := 0
	r.Enqueue(OneShot(func() { calls++ }))
	require.NoError(t, r.Run(false, nil, nil))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, r.Len())
}

func TestRun_InitRunsExactlyOnceAcrossMultipleSteps(t *testing.T) {
	r := New(nil)
	inits := 0
	steps := 0
	r.Enqueue(Resumable(func() { inits++ }, func() bool {
		steps++
		return steps >= 3
	}))

	require.NoError(t, r.Run(false, nil, nil))
	assert.Equal(t, 1, r.Len(), "incomplete item stays queued")
	require.NoError(t, r.Run(false, nil, nil))
	assert.Equal(t, 1, r.Len())
	require.NoError(t, r.Run(false, nil, nil))
	assert.Equal(t, 0, r.Len())

	assert.Equal(t, 1, inits)
	assert.Equal(t, 3, steps)
}

func TestRun_PreservesEnqueueOrderAroundAnIncompleteItem(t *testing.T) {
	r := New(nil)
	var order []string

	stepsNeeded := 2
	r.Enqueue(Resumable(nil, func() bool {
		stepsNeeded--
		order = append(order, "a")
		return stepsNeeded <= 0
	}))
	r.Enqueue(OneShot(func() { order = append(order, "b") }))

	require.NoError(t, r.Run(false, nil, nil)) // a's first step, incomplete
	assert.Equal(t, []string{"a"}, order)

	require.NoError(t, r.Run(false, nil, nil)) // a completes, b runs
	assert.Equal(t, []string{"a", "a", "b"}, order)
}

func TestRun_ForceIncompleteIsFatal(t *testing.T) {
	r := New(nil)
	r.Enqueue(Resumable(nil, func() bool { return false }))
	err := r.Run(true, nil, nil)
	assert.True(t, errors.Is(err, perr.ErrForceIncomplete))
}

func TestRun_RejectsNestedExecution(t *testing.T) {
	r := New(nil)
	var nestedErr error
	r.Enqueue(OneShot(func() {
		nestedErr = r.Run(false, nil, nil)
	}))
	require.NoError(t, r.Run(false, nil, nil))
	assert.True(t, errors.Is(nestedErr, perr.ErrNestedWorkItem))
}

func TestRun_FloodFillRunsOnceAfterDrainWhenDirty(t *testing.T) {
	r := New(nil)
	floods := 0
	r.Enqueue(OneShot(func() { r.MarkDirtyConnectivity() }))
	require.NoError(t, r.Run(false, func() { floods++ }, nil))
	assert.Equal(t, 1, floods)

	require.NoError(t, r.Run(false, func() { floods++ }, nil))
	assert.Equal(t, 1, floods, "flag must be cleared after firing once")
}

func TestRun_HeuristicRecomputeRunsOnceAfterDrainWhenDirty(t *testing.T) {
	r := New(nil)
	recomputes := 0
	r.Enqueue(OneShot(func() { r.MarkHeuristicDirty() }))
	require.NoError(t, r.Run(false, nil, func() { recomputes++ }))
	assert.Equal(t, 1, recomputes)

	require.NoError(t, r.Run(false, nil, func() { recomputes++ }))
	assert.Equal(t, 1, recomputes)
}

func TestRun_EmptyQueueIsNoop(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Run(false, nil, nil))
	assert.Equal(t, 0, r.Len())
}
