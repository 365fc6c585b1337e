package engine

import "fmt"

// Reducer computes the next state from an action and the current state.
//
// Reducers must be pure and synchronous, and must return the input state
// unchanged for actions they do not handle. A returned error (or a panic)
// is a reducer fault: nothing is committed for that action.
type Reducer[S any] interface {
	Reduce(action Action, state S) (S, error)
}

// ReducerFunc adapts a plain function to Reducer.
type ReducerFunc[S any] func(action Action, state S) (S, error)

// Reduce calls f(action, state).
func (f ReducerFunc[S]) Reduce(action Action, state S) (S, error) {
	return f(action, state)
}

// CompositeReducer folds an ordered list of reducers into one.
//
// Reduce applies the components left to right in registration order:
//
//	r[n-1](a, ... r[1](a, r[0](a, s)))
//
// The order is fixed at construction.
type CompositeReducer[S any] struct {
	reducers []Reducer[S]
}

// Combine builds a CompositeReducer. The slice is copied so that later
// mutation by the caller cannot reorder the fold.
func Combine[S any](reducers ...Reducer[S]) *CompositeReducer[S] {
	var rs []Reducer[S]
	if reducers != nil {
		rs = make([]Reducer[S], len(reducers))
		copy(rs, reducers)
	}
	return &CompositeReducer[S]{reducers: rs}
}

// Reduce folds every component over state. The first component error stops
// the fold; the zero state is returned with it.
func (c *CompositeReducer[S]) Reduce(action Action, state S) (S, error) {
	for i, r := range c.reducers {
		next, err := r.Reduce(action, state)
		if err != nil {
			var zero S
			return zero, fmt.Errorf("reducer %d: %w", i, err)
		}
		state = next
	}
	return state, nil
}

// Len returns the number of component reducers.
func (c *CompositeReducer[S]) Len() int {
	return len(c.reducers)
}
