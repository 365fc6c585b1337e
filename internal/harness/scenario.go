package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run of a domain through the engine: an optional
// initial state, a list of dispatches, and assertions over the resulting
// journal.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// InitialState seeds the engine before the first step. If omitted the
	// first reducer sees the zero state.
	InitialState map[string]any `yaml:"initial_state,omitempty"`

	// Observe lists the domain selectors whose distinct values are
	// recorded in the trace.
	Observe []string `yaml:"observe,omitempty"`

	// MaxDepth overrides the engine's cascade depth limit.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Steps are dispatched in order. Each step waits for quiescence before
	// the next one starts, so the journal order is deterministic.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final journal and state.
	// Supported types: final_state, commit_count, commit_order, fault_count,
	// observed
	Assertions []Assertion `yaml:"assertions"`

	// ChainPrefix prefixes the deterministic chain tokens.
	// Defaults to "chain".
	ChainPrefix string `yaml:"chain_prefix,omitempty"`

	// Timeout bounds each step. Defaults to 5s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Step dispatches one action.
type Step struct {
	// Dispatch is the action type.
	Dispatch string `yaml:"dispatch"`

	// Args are the action's fields, decoded through the domain's action
	// registry.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect optionally checks the outcome of this step.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect checks one step.
type StepExpect struct {
	// State is a subset match against the state after the step settled.
	State map[string]any `yaml:"state,omitempty"`

	// Fault is "reducer" or "effect" if the step must produce that fault,
	// "none" if it must produce none. Empty means unchecked.
	Fault string `yaml:"fault,omitempty"`
}

// Assertion validates the journal or final state.
type Assertion struct {
	// Type selects the check:
	// - "final_state": subset match against the final state (Expect)
	// - "commit_count": exactly Count commits, optionally of Action type
	// - "commit_order": action types committed in this relative order
	// - "fault_count": exactly Count faults, optionally of Kind
	// - "observed": distinct values of Selector equal Values
	Type string `yaml:"type"`

	Action   string         `yaml:"action,omitempty"`
	Actions  []string       `yaml:"actions,omitempty"`
	Kind     string         `yaml:"kind,omitempty"`
	Count    int            `yaml:"count,omitempty"`
	Expect   map[string]any `yaml:"expect,omitempty"`
	Selector string         `yaml:"selector,omitempty"`
	Values   []any          `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState  = "final_state"
	AssertCommitCount = "commit_count"
	AssertCommitOrder = "commit_order"
	AssertFaultCount  = "fault_count"
	AssertObserved    = "observed"
)

// Fault expectations for a step.
const (
	FaultNone    = "none"
	FaultReducer = "reducer"
	FaultEffect  = "effect"
)

const defaultStepTimeout = 5 * time.Second

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative")
	}

	for i, step := range s.Steps {
		if step.Dispatch == "" {
			return fmt.Errorf("steps[%d]: dispatch is required", i)
		}
		if step.Expect != nil {
			switch step.Expect.Fault {
			case "", FaultNone, FaultReducer, FaultEffect:
			default:
				return fmt.Errorf("steps[%d].expect: unknown fault %q", i, step.Expect.Fault)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertCommitCount, AssertFaultCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
		if a.Type == AssertFaultCount && a.Kind != "" && a.Kind != FaultReducer && a.Kind != FaultEffect {
			return fmt.Errorf("assertions[%d]: unknown fault kind %q", index, a.Kind)
		}
	case AssertCommitOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for commit_order", index)
		}
	case AssertObserved:
		if a.Selector == "" {
			return fmt.Errorf("assertions[%d]: selector is required for observed", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
