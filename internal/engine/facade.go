package engine

import (
	"sync"

	"github.com/roach88/reduxengine/internal/broadcast"
)

// Facade is a late-bound handle on an engine, for callers that are wired
// before the engine exists. It is an explicit value, not a global: create
// one, pass it around and Install the engine once it is built.
//
// Every method returns ErrNotInstalled until Install has been called.
type Facade[S any] struct {
	mu     sync.RWMutex
	engine *Engine[S]
}

// Install binds the facade to e, replacing any previous engine.
func (f *Facade[S]) Install(e *Engine[S]) {
	f.mu.Lock()
	f.engine = e
	f.mu.Unlock()
}

// Installed reports whether an engine has been installed.
func (f *Facade[S]) Installed() bool {
	return f.current() != nil
}

// Dispatch forwards to the installed engine's Dispatch.
func (f *Facade[S]) Dispatch(action Action) error {
	e := f.current()
	if e == nil {
		return ErrNotInstalled
	}
	return e.Dispatch(action)
}

// Listen forwards to the installed engine's Listen.
func (f *Facade[S]) Listen(callback func(S)) (*broadcast.Subscription, error) {
	e := f.current()
	if e == nil {
		return nil, ErrNotInstalled
	}
	return e.Listen(callback), nil
}

// State forwards to the installed engine's State.
func (f *Facade[S]) State() (S, bool) {
	e := f.current()
	if e == nil {
		var zero S
		return zero, false
	}
	return e.State()
}

func (f *Facade[S]) current() *Engine[S] {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.engine
}
