package counter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/reduxengine/internal/engine"
)

// State is the counter's state.
type State struct {
	Value int `json:"value"`
}

// Action type tags.
const (
	TypeAdd      = "counter/add"
	TypeSubtract = "counter/subtract"
	TypeReset    = "counter/reset"
	TypeFail     = "counter/fail"
	TypeAudit    = "counter/audit"
)

// Add increments the counter by N.
type Add struct {
	N int `json:"n"`
}

func (Add) ActionType() string { return TypeAdd }

// Subtract decrements the counter by N.
type Subtract struct {
	N int `json:"n"`
}

func (Subtract) ActionType() string { return TypeSubtract }

// Reset sets the counter back to zero.
type Reset struct{}

func (Reset) ActionType() string { return TypeReset }

// Fail is always rejected by the guard reducer.
type Fail struct {
	Reason string `json:"reason"`
}

func (Fail) ActionType() string { return TypeFail }

// Audit leaves the state unchanged; the audit epic reports it to a sink
// that is never reachable.
type Audit struct {
	Note string `json:"note"`
}

func (Audit) ActionType() string { return TypeAudit }

// ErrRejected is returned by the guard reducer for Fail.
var ErrRejected = errors.New("rejected")

// ErrAuditUnavailable is returned by the audit epic.
var ErrAuditUnavailable = errors.New("audit sink unavailable")

// Arithmetic applies Add, Subtract and Reset and ignores everything else.
func Arithmetic() engine.Reducer[State] {
	return engine.ReducerFunc[State](func(a engine.Action, s State) (State, error) {
		switch a := a.(type) {
		case Add:
			s.Value += a.N
		case Subtract:
			s.Value -= a.N
		case Reset:
			s.Value = 0
		}
		return s, nil
	})
}

// Guard rejects Fail.
func Guard() engine.Reducer[State] {
	return engine.ReducerFunc[State](func(a engine.Action, s State) (State, error) {
		if f, ok := a.(Fail); ok {
			if f.Reason == "" {
				return s, ErrRejected
			}
			return s, fmt.Errorf("%w: %s", ErrRejected, f.Reason)
		}
		return s, nil
	})
}

// Cascade answers Add(n) with Subtract(2n).
func Cascade() engine.Epic[State] {
	return engine.EpicFunc[State](func(_ context.Context, a engine.Action, _ State, emit engine.Emit) error {
		if add, ok := a.(Add); ok {
			return emit(Subtract{N: 2 * add.N})
		}
		return nil
	})
}

// Auditor fails every Audit.
func Auditor() engine.Epic[State] {
	return engine.EpicFunc[State](func(_ context.Context, a engine.Action, _ State, _ engine.Emit) error {
		if audit, ok := a.(Audit); ok {
			return fmt.Errorf("audit %q: %w", audit.Note, ErrAuditUnavailable)
		}
		return nil
	})
}

// Reducers returns the counter's reducers in fold order.
func Reducers() []engine.Reducer[State] {
	return []engine.Reducer[State]{Guard(), Arithmetic()}
}

// Epics returns the counter's epics.
func Epics() []engine.Epic[State] {
	return []engine.Epic[State]{Cascade(), Auditor()}
}

// Actions returns a registry that decodes every counter action.
func Actions() *engine.ActionRegistry {
	r := engine.NewActionRegistry()
	engine.RegisterJSON[Add](r)
	engine.RegisterJSON[Subtract](r)
	engine.RegisterJSON[Reset](r)
	engine.RegisterJSON[Fail](r)
	engine.RegisterJSON[Audit](r)
	return r
}

// Selectors are the named projections scenarios can observe.
func Selectors() map[string]func(State) any {
	return map[string]func(State) any{
		"value": func(s State) any { return s.Value },
		"sign": func(s State) any {
			switch {
			case s.Value > 0:
				return "positive"
			case s.Value < 0:
				return "negative"
			default:
				return "zero"
			}
		},
	}
}

// DecodeState parses a JSON state document.
func DecodeState(raw json.RawMessage) (State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decode counter state: %w", err)
	}
	return s, nil
}
