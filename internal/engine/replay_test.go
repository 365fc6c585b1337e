package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reduxengine/internal/ir"
)

func counterRegistry() *ActionRegistry {
	r := NewActionRegistry()
	RegisterJSON[add](r)
	RegisterJSON[subtract](r)
	return r
}

// journal runs a short cascade and returns the recorded commits.
func journal(t *testing.T) []ir.Commit {
	t.Helper()
	rec := &memRecorder{}
	e, _ := newCounter(t, []Epic[counterState]{cascadeEpic()},
		WithInitialState(counterState{Value: 10}),
		WithRecorder[counterState](rec),
	)
	start(t, e)

	dispatch(t, e, add{N: 1})
	settle(t, e)
	dispatch(t, e, add{N: 3})
	settle(t, e)

	return rec.Commits()
}

func TestReplay_ReproducesJournal(t *testing.T) {
	commits := journal(t)
	require.Len(t, commits, 5)

	report, err := Replay(counterReducer(), counterRegistry(), commits)

	require.NoError(t, err)
	assert.True(t, report.Deterministic())
	assert.Equal(t, 1, report.Seeds)
	assert.Equal(t, 4, report.Replayed)
	assert.Equal(t, counterState{Value: 6}, report.State)
}

func TestReplay_DetectsDivergence(t *testing.T) {
	commits := journal(t)
	drifted := ReducerFunc[counterState](func(a Action, s counterState) (counterState, error) {
		if a, ok := a.(subtract); ok {
			s.Value -= a.N + 1
			return s, nil
		}
		return counterReducer().Reduce(a, s)
	})

	report, err := Replay[counterState](drifted, counterRegistry(), commits)

	require.NoError(t, err)
	assert.False(t, report.Deterministic())
	require.NotEmpty(t, report.Mismatches)
	assert.Equal(t, "subtract", report.Mismatches[0].ActionType)
	assert.Equal(t, commits[2].Seq, report.Mismatches[0].Seq)
}

func TestReplay_UnknownActionType(t *testing.T) {
	commits := journal(t)

	_, err := Replay(counterReducer(), NewActionRegistry(), commits)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `no decoder for action type "add"`)
}

func TestActionRegistry_Decode(t *testing.T) {
	r := counterRegistry()

	a, err := r.Decode("add", []byte(`{"n":4}`))
	require.NoError(t, err)
	assert.Equal(t, add{N: 4}, a)

	_, err = r.Decode("add", []byte(`{"n":`))
	assert.Error(t, err)
}
