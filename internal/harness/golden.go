package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reduxengine/internal/ir"
)

// Snapshot captures the deterministic part of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type Snapshot struct {
	Scenario   string           `json:"scenario"`
	Commits    []TraceCommit    `json:"commits"`
	Faults     []ir.Fault       `json:"faults"`
	Observed   map[string][]any `json:"observed,omitempty"`
	FinalState json.RawMessage  `json:"final_state,omitempty"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	faults := result.Faults
	if faults == nil {
		faults = []ir.Fault{}
	}
	return Snapshot{
		Scenario:   name,
		Commits:    result.Trace(),
		Faults:     faults,
		Observed:   result.Observed,
		FinalState: result.FinalState,
	}
}

// Marshal returns the snapshot's canonical JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s)
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// Returns the result so callers can make further checks. Test failure (via
// goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden[S any](t *testing.T, d Domain[S], scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), d, scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's snapshot against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
