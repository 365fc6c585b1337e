package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listAction struct{}

func (listAction) ActionType() string { return "list" }

func appendReducer(n int) Reducer[[]int] {
	return ReducerFunc[[]int](func(_ Action, s []int) ([]int, error) {
		out := make([]int, len(s), len(s)+1)
		copy(out, s)
		return append(out, n), nil
	})
}

func TestCompositeReducer_AppliesInRegistrationOrder(t *testing.T) {
	r := Combine(appendReducer(1), appendReducer(2), appendReducer(3))

	got, err := r.Reduce(listAction{}, []int{})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestCompositeReducer_EqualsLeftFold(t *testing.T) {
	rs := []Reducer[counterState]{
		ReducerFunc[counterState](func(_ Action, s counterState) (counterState, error) {
			s.Value = s.Value*10 + 1
			return s, nil
		}),
		ReducerFunc[counterState](func(_ Action, s counterState) (counterState, error) {
			s.Value = s.Value*10 + 2
			return s, nil
		}),
		counterReducer(),
	}

	tests := []struct {
		name   string
		action Action
		start  counterState
	}{
		{"add", add{N: 5}, counterState{Value: 0}},
		{"subtract", subtract{N: 3}, counterState{Value: 7}},
		{"unknown action", listAction{}, counterState{Value: -4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := tt.start
			for _, r := range rs {
				var err error
				want, err = r.Reduce(tt.action, want)
				require.NoError(t, err)
			}

			got, err := Combine(rs...).Reduce(tt.action, tt.start)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCompositeReducer_EmptyIsIdentity(t *testing.T) {
	got, err := Combine[counterState]().Reduce(add{N: 1}, counterState{Value: 9})
	require.NoError(t, err)
	assert.Equal(t, counterState{Value: 9}, got)
}

func TestCompositeReducer_CopiesSlice(t *testing.T) {
	rs := []Reducer[[]int]{appendReducer(1), appendReducer(2)}
	r := Combine(rs...)

	rs[0] = appendReducer(99)

	got, err := r.Reduce(listAction{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got, "mutating the caller's slice must not reorder the fold")
}

func TestCompositeReducer_StopsAtFirstError(t *testing.T) {
	calls := 0
	counting := ReducerFunc[counterState](func(_ Action, s counterState) (counterState, error) {
		calls++
		return s, nil
	})
	failing := ReducerFunc[counterState](func(_ Action, s counterState) (counterState, error) {
		return s, errBoom
	})

	got, err := Combine[counterState](counting, failing, counting).Reduce(add{N: 1}, counterState{Value: 3})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.Contains(t, err.Error(), "reducer 1")
	assert.Equal(t, counterState{}, got, "nothing is returned for commit")
	assert.Equal(t, 1, calls)
}
