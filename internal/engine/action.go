package engine

// Action is a discrete event dispatched against the engine.
//
// ActionType is the action's tag. It names the action in logs, traces and
// the journal, and must be stable across releases for replay to work.
type Action interface {
	ActionType() string
}

// NoopType is the type tag of the no-op action.
const NoopType = "@@redux/NOOP"

type noop struct{}

func (noop) ActionType() string { return NoopType }

// Noop is the distinguished no-op action. Dispatching it calls no reducer,
// runs no epic and publishes nothing.
var Noop Action = noop{}

// IsNoop reports whether a is the no-op action.
func IsNoop(a Action) bool {
	return a != nil && a.ActionType() == NoopType
}
