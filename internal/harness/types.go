package harness

import (
	"encoding/json"

	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/ir"
)

// Domain bundles everything the harness needs to drive one application
// state type through the engine.
type Domain[S any] struct {
	// Name is used in logs.
	Name string

	Reducers []engine.Reducer[S]
	Epics    []engine.Epic[S]

	// Actions decodes step arguments into actions.
	Actions *engine.ActionRegistry

	// Selectors are the projections a scenario may observe, by name.
	Selectors map[string]func(S) any
}

// TraceCommit is the part of a commit that is stable across engine
// versions. IDs and hashes are left out so golden files survive a version
// bump.
type TraceCommit struct {
	Seq        int64           `json:"seq"`
	Chain      string          `json:"chain"`
	Depth      int             `json:"depth"`
	ActionType string          `json:"action_type"`
	Action     json.RawMessage `json:"action"`
	State      json.RawMessage `json:"state"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Commits is the journal in seq order, including any seed commit.
	Commits []ir.Commit `json:"commits"`

	// Faults is every reducer and effect fault in report order.
	Faults []ir.Fault `json:"faults"`

	// Observed holds the distinct successive values of each observed
	// selector.
	Observed map[string][]any `json:"observed,omitempty"`

	// FinalState is the canonical JSON of the state after the last step.
	// Nil if nothing was ever seeded or committed.
	FinalState json.RawMessage `json:"final_state,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Commits: []ir.Commit{},
		Faults:  []ir.Fault{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Trace returns the version-independent view of the commits.
func (r *Result) Trace() []TraceCommit {
	out := make([]TraceCommit, len(r.Commits))
	for i, c := range r.Commits {
		out[i] = TraceCommit{
			Seq:        c.Seq,
			Chain:      c.Chain,
			Depth:      c.Depth,
			ActionType: c.ActionType,
			Action:     c.Action,
			State:      c.State,
		}
	}
	return out
}
