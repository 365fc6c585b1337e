package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []ir.Commit // Full journal for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, c := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s (chain=%s depth=%d)\n",
				c.Seq, c.ActionType, c.Action, c.State, c.Chain, c.Depth)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalState:
			err = assertFinalState(result, assertion)
		case AssertCommitCount:
			err = assertCommitCount(result.Commits, assertion)
		case AssertCommitOrder:
			err = assertCommitOrder(result.Commits, assertion)
		case AssertFaultCount:
			err = assertFaultCount(result.Faults, assertion)
		case AssertObserved:
			err = assertObserved(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// assertFinalState checks the final state against Expect using subset
// semantics: fields not named in Expect are ignored.
func assertFinalState(result *Result, assertion Assertion) error {
	if result.FinalState == nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state matching %v", assertion.Expect),
			Actual:   "no state",
			Trace:    result.Commits,
		}
	}
	var actual any
	if err := json.Unmarshal(result.FinalState, &actual); err != nil {
		return fmt.Errorf("final_state: decode: %w", err)
	}
	if err := matchSubset(assertion.Expect, actual); err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("state matching %v", assertion.Expect),
			Actual:   fmt.Sprintf("%s (%v)", result.FinalState, err),
			Trace:    result.Commits,
		}
	}
	return nil
}

// assertCommitCount checks the number of commits, optionally of one action
// type. Seed commits only count when Action names engine.InitType.
func assertCommitCount(commits []ir.Commit, assertion Assertion) error {
	count := 0
	for _, c := range commits {
		if assertion.Action == "" && c.ActionType == engine.InitType {
			continue
		}
		if assertion.Action == "" || c.ActionType == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		what := "commits"
		if assertion.Action != "" {
			what = "commits of " + assertion.Action
		}
		return &AssertionError{
			Type:     AssertCommitCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    commits,
		}
	}
	return nil
}

// assertCommitOrder checks that action types were first committed in the
// listed order. Actions don't need to be consecutive.
func assertCommitOrder(commits []ir.Commit, assertion Assertion) error {
	// Step 1: Find first position of each expected action
	positions := make(map[string]int)
	for i, c := range commits {
		if positions[c.ActionType] == 0 {
			positions[c.ActionType] = i + 1 // 1-indexed for readability
		}
	}

	// Step 2: Verify all actions found
	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertCommitOrder,
				Expected: fmt.Sprintf("all actions committed: %v", assertion.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    commits,
			}
		}
	}

	// Step 3: Verify order
	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertCommitOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: commits,
			}
		}
	}

	return nil
}

// assertFaultCount checks the number of faults, optionally of one kind.
func assertFaultCount(faults []ir.Fault, assertion Assertion) error {
	count := 0
	for _, f := range faults {
		if assertion.Kind == "" || string(f.Kind) == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		what := "faults"
		if assertion.Kind != "" {
			what = assertion.Kind + " faults"
		}
		messages := make([]string, len(faults))
		for i, f := range faults {
			messages[i] = fmt.Sprintf("%s %s: %s", f.Kind, f.ActionType, f.Message)
		}
		return &AssertionError{
			Type:     AssertFaultCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s %v", count, what, messages),
		}
	}
	return nil
}

// assertObserved checks the distinct successive values of a selector.
func assertObserved(result *Result, assertion Assertion) error {
	actual, ok := result.Observed[assertion.Selector]
	if !ok {
		return fmt.Errorf("observed: selector %q was not observed", assertion.Selector)
	}
	expected, err := normalize(orEmpty(assertion.Values))
	if err != nil {
		return fmt.Errorf("observed: %w", err)
	}
	got, err := normalize(actual)
	if err != nil {
		return fmt.Errorf("observed: %w", err)
	}
	if !valuesEqual(expected, got) {
		return &AssertionError{
			Type:     AssertObserved,
			Expected: fmt.Sprintf("%s values %v", assertion.Selector, assertion.Values),
			Actual:   fmt.Sprintf("%s values %v", assertion.Selector, actual),
			Trace:    result.Commits,
		}
	}
	return nil
}

// matchState checks state against expected fields with subset semantics.
func matchState[S any](expected map[string]any, state S) error {
	actual, err := normalize(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return matchSubset(expected, actual)
}

// matchSubset reports the first field of expected that actual lacks or
// disagrees with. Nested objects are matched recursively; everything else
// must be equal after JSON normalization.
func matchSubset(expected map[string]any, actual any) error {
	norm, err := normalize(expected)
	if err != nil {
		return fmt.Errorf("encode expectation: %w", err)
	}
	return matchValue("", norm, actual)
}

func matchValue(path string, expected, actual any) error {
	exp, ok := expected.(map[string]any)
	if !ok {
		if !valuesEqual(expected, actual) {
			return fmt.Errorf("field %q = %v, want %v", path, actual, expected)
		}
		return nil
	}

	act, ok := actual.(map[string]any)
	if !ok {
		return fmt.Errorf("field %q is %T, want object", path, actual)
	}

	// Sort keys for deterministic error messages
	keys := make([]string, 0, len(exp))
	for k := range exp {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sub := k
		if path != "" {
			sub = path + "." + k
		}
		v, exists := act[k]
		if !exists {
			return fmt.Errorf("field %q missing", sub)
		}
		if err := matchValue(sub, exp[k], v); err != nil {
			return err
		}
	}
	return nil
}

// valuesEqual compares two normalized values.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(actual, expected)
}

func orEmpty(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}
