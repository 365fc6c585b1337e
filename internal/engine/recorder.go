package engine

import (
	"context"

	"github.com/roach88/reduxengine/internal/ir"
)

// Recorder receives every commit and fault for journaling.
//
// WriteCommit is called on the Run loop right after the commit point, in
// commit order. WriteFault may also be called from effect tasks. Calls are
// never concurrent. A recorder error is logged and never undoes a commit.
//
// Implemented by *store.Store.
type Recorder interface {
	WriteCommit(ctx context.Context, c ir.Commit) error
	WriteFault(ctx context.Context, f ir.Fault) error
}

// InitType is the action type of the synthetic commit recorded when the
// engine is seeded with an initial state.
const InitType = "@@redux/INIT"

type initAction struct{}

func (initAction) ActionType() string { return InitType }

// FaultHandler is notified of every *ReducerFault and *EffectFault.
//
// Calls are never concurrent, but may come from the Run loop or from an
// effect task. The fault is journaled before the handler runs. A handler may
// call Dispatch, WarmUp or State, but must not block: DispatchAndWait or
// Settle from a handler on the Run loop never returns.
type FaultHandler func(fault error)
