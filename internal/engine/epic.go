package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Emit forwards an action produced by an epic back into the engine.
//
// It returns an error when the action cannot be accepted, for example
// ErrStopped after shutdown or a *DepthExceededError for a runaway cascade.
type Emit func(Action) error

// Epic is a side-effect handler. It observes a committed transition and may
// emit zero or more follow-up actions, which are dispatched through the full
// pipeline.
//
// Run may block (I/O, timers) and must honour ctx. A returned error or a
// panic is an effect fault; it never rolls back the commit that triggered
// the epic.
type Epic[S any] interface {
	Run(ctx context.Context, action Action, state S, emit Emit) error
}

// EpicFunc adapts a plain function to Epic.
type EpicFunc[S any] func(ctx context.Context, action Action, state S, emit Emit) error

// Run calls f(ctx, action, state, emit).
func (f EpicFunc[S]) Run(ctx context.Context, action Action, state S, emit Emit) error {
	return f(ctx, action, state, emit)
}

// EpicError identifies which component of a CompositeEpic failed.
type EpicError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *EpicError) Error() string {
	return fmt.Sprintf("epic %d: %v", e.Index, e.Err)
}

// Unwrap returns the component's error.
func (e *EpicError) Unwrap() error {
	return e.Err
}

// CompositeEpic merges the emissions of several epics into one stream.
//
// Components run concurrently. Emissions of one component keep their order;
// there is no order across components. Every emission is forwarded exactly
// once, and emit is never called concurrently.
type CompositeEpic[S any] struct {
	epics []Epic[S]
}

// MergeEpics builds a CompositeEpic. The slice is copied.
func MergeEpics[S any](epics ...Epic[S]) *CompositeEpic[S] {
	var es []Epic[S]
	if epics != nil {
		es = make([]Epic[S], len(epics))
		copy(es, epics)
	}
	return &CompositeEpic[S]{epics: es}
}

// Run starts every component and waits for all of them.
//
// A failing component does not cancel its siblings. All component errors
// are joined, each wrapped in an *EpicError.
func (c *CompositeEpic[S]) Run(ctx context.Context, action Action, state S, emit Emit) error {
	if len(c.epics) == 0 {
		return nil
	}

	var mu sync.Mutex
	serialized := func(a Action) error {
		mu.Lock()
		defer mu.Unlock()
		return emit(a)
	}

	if len(c.epics) == 1 {
		if err := runEpic(ctx, c.epics[0], action, state, serialized); err != nil {
			return &EpicError{Index: 0, Err: err}
		}
		return nil
	}

	errs := make([]error, len(c.epics))
	var g errgroup.Group
	for i, ep := range c.epics {
		g.Go(func() error {
			if err := runEpic(ctx, ep, action, state, serialized); err != nil {
				errs[i] = &EpicError{Index: i, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// Len returns the number of component epics.
func (c *CompositeEpic[S]) Len() int {
	return len(c.epics)
}

// runEpic converts a panicking epic into a *PanicError.
func runEpic[S any](ctx context.Context, ep Epic[S], action Action, state S, emit Emit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return ep.Run(ctx, action, state, emit)
}
