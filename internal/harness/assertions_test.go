package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/ir"
)

func commit(seq int64, actionType, state string) ir.Commit {
	return ir.Commit{
		Seq:        seq,
		Chain:      "chain-0001",
		ActionType: actionType,
		Action:     json.RawMessage(`{}`),
		State:      json.RawMessage(state),
	}
}

func sampleResult() *Result {
	r := NewResult()
	r.Commits = []ir.Commit{
		commit(1, engine.InitType, `{"value":1}`),
		commit(2, "add", `{"value":2}`),
		commit(3, "subtract", `{"value":0}`),
		commit(4, "add", `{"value":1}`),
	}
	r.Faults = []ir.Fault{
		{Kind: ir.FaultReducer, Chain: "chain-0002", ActionType: "fail", Message: "rejected"},
	}
	r.Observed = map[string][]any{"value": {float64(1), float64(2), float64(0), float64(1)}}
	r.FinalState = json.RawMessage(`{"nested":{"a":1,"b":"x"},"value":1}`)
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertFinalState, Expect: map[string]any{"value": 1}},
		{Type: AssertFinalState, Expect: map[string]any{"nested": map[string]any{"b": "x"}}},
		{Type: AssertCommitCount, Count: 3},
		{Type: AssertCommitCount, Action: "add", Count: 2},
		{Type: AssertCommitCount, Action: engine.InitType, Count: 1},
		{Type: AssertCommitOrder, Actions: []string{"add", "subtract"}},
		{Type: AssertFaultCount, Count: 1},
		{Type: AssertFaultCount, Kind: FaultEffect, Count: 0},
		{Type: AssertObserved, Selector: "value", Values: []any{1, 2, 0, 1}},
	}

	assert.Empty(t, EvaluateAssertions(sampleResult(), assertions))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "final state mismatch",
			assertion: Assertion{Type: AssertFinalState, Expect: map[string]any{"value": 2}},
			wantErr:   `field "value" = 1, want 2`,
		},
		{
			name:      "final state missing nested field",
			assertion: Assertion{Type: AssertFinalState, Expect: map[string]any{"nested": map[string]any{"c": 1}}},
			wantErr:   `field "nested.c" missing`,
		},
		{
			name:      "commit count",
			assertion: Assertion{Type: AssertCommitCount, Action: "add", Count: 3},
			wantErr:   "Expected: 3 commits of add",
		},
		{
			name:      "commit order reversed",
			assertion: Assertion{Type: AssertCommitOrder, Actions: []string{"subtract", "add"}},
			wantErr:   "subtract (pos 3) should be before add (pos 2)",
		},
		{
			name:      "commit order missing",
			assertion: Assertion{Type: AssertCommitOrder, Actions: []string{"reset"}},
			wantErr:   "missing action: reset",
		},
		{
			name:      "fault count",
			assertion: Assertion{Type: AssertFaultCount, Kind: FaultReducer, Count: 0},
			wantErr:   "Actual: 1 reducer faults",
		},
		{
			name:      "observed values",
			assertion: Assertion{Type: AssertObserved, Selector: "value", Values: []any{1, 2}},
			wantErr:   "Assertion failed: observed",
		},
		{
			name:      "observed unknown selector",
			assertion: Assertion{Type: AssertObserved, Selector: "sign"},
			wantErr:   `selector "sign" was not observed`,
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "trace_contains"},
			wantErr:   `unknown assertion type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertFinalState_NoState(t *testing.T) {
	r := NewResult()
	errs := EvaluateAssertions(r, []Assertion{{Type: AssertFinalState, Expect: map[string]any{"value": 0}}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "no state")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCommitCount,
		Expected: "2 commits",
		Actual:   "1 commits",
		Trace:    []ir.Commit{commit(7, "add", `{"value":3}`)},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: commit_count")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, `[7] add {} -> {"value":3} (chain=chain-0001 depth=0)`)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestResult_TraceDropsIdentity(t *testing.T) {
	r := NewResult()
	c := commit(1, "add", `{"value":1}`)
	c.ID = "id"
	c.StateHash = "hash"
	r.Commits = []ir.Commit{c}

	data, err := ir.MarshalCanonical(r.Trace())
	require.NoError(t, err)
	assert.Equal(t, `[{"action":{},"action_type":"add","chain":"chain-0001","depth":0,"seq":1,"state":{"value":1}}]`, string(data))
}
