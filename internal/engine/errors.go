package engine

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/roach88/reduxengine/internal/ir"
)

var (
	// ErrStopped is returned by Dispatch and Emit once the engine has shut
	// down.
	ErrStopped = errors.New("engine stopped")

	// ErrNotInstalled is returned by a Facade that has no engine yet.
	ErrNotInstalled = errors.New("engine not installed")

	// ErrAlreadyRunning is returned when Run is called a second time.
	ErrAlreadyRunning = errors.New("engine already running")

	// ErrNilAction is returned when a nil Action is dispatched or emitted.
	ErrNilAction = errors.New("nil action")
)

// ReducerFault reports that computing the next state failed.
//
// Nothing was committed and the chain is aborted: no epic runs for this
// action. Reducer faults are never retried.
type ReducerFault struct {
	Chain      string
	Depth      int
	ActionType string
	Err        error
}

// Error implements the error interface.
func (f *ReducerFault) Error() string {
	return fmt.Sprintf("reducer fault: action %s (chain=%s): %v", f.ActionType, f.Chain, f.Err)
}

// Unwrap returns the underlying reducer error.
func (f *ReducerFault) Unwrap() error {
	return f.Err
}

// Record converts the fault into a journal record.
func (f *ReducerFault) Record() ir.Fault {
	return ir.Fault{
		Kind:       ir.FaultReducer,
		Chain:      f.Chain,
		Depth:      f.Depth,
		ActionType: f.ActionType,
		Message:    f.Err.Error(),
	}
}

// EffectFault reports that an epic failed while handling the commit with
// sequence number Seq. The commit stands.
type EffectFault struct {
	Chain      string
	Depth      int
	Seq        int64
	ActionType string
	Err        error
}

// Error implements the error interface.
func (f *EffectFault) Error() string {
	return fmt.Sprintf("effect fault: action %s (chain=%s, seq=%d): %v", f.ActionType, f.Chain, f.Seq, f.Err)
}

// Unwrap returns the underlying epic error.
func (f *EffectFault) Unwrap() error {
	return f.Err
}

// Record converts the fault into a journal record.
func (f *EffectFault) Record() ir.Fault {
	return ir.Fault{
		Kind:       ir.FaultEffect,
		Chain:      f.Chain,
		Depth:      f.Depth,
		CommitSeq:  f.Seq,
		ActionType: f.ActionType,
		Message:    f.Err.Error(),
	}
}

// IsReducerFault returns true if the error is a ReducerFault.
// Uses errors.As to handle wrapped errors.
func IsReducerFault(err error) bool {
	var f *ReducerFault
	return errors.As(err, &f)
}

// IsEffectFault returns true if the error is an EffectFault.
// Uses errors.As to handle wrapped errors.
func IsEffectFault(err error) bool {
	var f *EffectFault
	return errors.As(err, &f)
}

// PanicError carries a value recovered from a panicking reducer or epic.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// IsPanic returns true if the error is a recovered panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// DepthExceededError is returned by Emit when a cascade grows deeper than
// the engine's maximum depth. It is reported as an EffectFault and the
// offending action is dropped.
type DepthExceededError struct {
	Chain string
	Depth int
	Limit int
}

// Error implements the error interface.
func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("chain %s exceeded max depth: %d > %d limit", e.Chain, e.Depth, e.Limit)
}

// IsDepthExceeded returns true if the error is a DepthExceededError.
func IsDepthExceeded(err error) bool {
	var de *DepthExceededError
	return errors.As(err, &de)
}
