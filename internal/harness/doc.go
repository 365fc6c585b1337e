// Package harness runs scripted scenarios through a real engine and checks
// the resulting journal.
//
// A scenario is a YAML file (see Scenario) that seeds an initial state,
// dispatches a list of actions and asserts on what was committed. The
// harness drives the engine with deterministic chain tokens and waits for
// quiescence after every step, so the same scenario always produces the
// same journal. That journal is compared against golden files:
//
//	testdata/golden/<scenario name>.golden
//
// Observed projections are computed from the journaled commit states, not
// from live subscriptions. Subscriptions conflate, so a slow callback may
// skip intermediate values; the journal never does.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
