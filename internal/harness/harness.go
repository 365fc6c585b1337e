package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/ir"
	"github.com/roach88/reduxengine/internal/testutil"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	recorder   engine.Recorder
	clock      *engine.Clock
	chains     engine.ChainGenerator
	logger     *slog.Logger
	maxDepth   int
	maxEffects int
	timeout    time.Duration
	boundary   bool
}

// WithRecorder also journals the run to r, typically a *store.Store.
func WithRecorder(r engine.Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// WithClock continues seq numbering from c instead of starting at 1.
func WithClock(c *engine.Clock) Option {
	return func(cfg *config) {
		cfg.clock = c
	}
}

// WithChainGenerator replaces the sequential chain tokens. Golden
// comparison needs the default.
func WithChainGenerator(g engine.ChainGenerator) Option {
	return func(c *config) {
		c.chains = g
	}
}

// WithLogger sets the engine logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithMaxDepth sets the depth limit for scenarios that don't set
// max_depth.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		c.maxDepth = n
	}
}

// WithMaxConcurrentEffects bounds concurrent epic runs.
func WithMaxConcurrentEffects(n int) Option {
	return func(c *config) {
		c.maxEffects = n
	}
}

// WithStepTimeout sets the step timeout for scenarios that don't set one.
func WithStepTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithRunBoundary journals a zero-state seed when the scenario has no
// initial_state, so that replaying a journal shared by several runs resets
// state where each run began. The boundary commit is left out of the
// result.
func WithRunBoundary() Option {
	return func(c *config) {
		c.boundary = true
	}
}

// Run executes a scenario against a fresh engine and returns the result.
//
// Execution flow:
//  1. Decode the initial state and every step up front
//  2. Seed the engine with WarmUp before it starts, so the seed commit
//     takes the first chain token
//  3. Dispatch each step, wait for its commit, then wait for quiescence
//  4. Stop the engine and evaluate assertions against the journal
//
// A returned error means the scenario could not be executed. Failed
// expectations are reported in Result.Errors instead.
func Run[S any](ctx context.Context, d Domain[S], scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.chains == nil {
		cfg.chains = testutil.NewSequentialChainGenerator(scenario.ChainPrefix)
	}

	actions, err := decodeSteps(d, scenario.Steps)
	if err != nil {
		return nil, err
	}
	if err := checkSelectors(d, scenario); err != nil {
		return nil, err
	}

	rec := &journal{next: cfg.recorder}
	engineOpts := []engine.Option[S]{
		engine.WithRecorder[S](rec),
		engine.WithChainGenerator[S](cfg.chains),
		engine.WithLogger[S](cfg.logger),
	}
	if cfg.clock != nil {
		engineOpts = append(engineOpts, engine.WithClock[S](cfg.clock))
	}
	switch {
	case scenario.MaxDepth > 0:
		engineOpts = append(engineOpts, engine.WithMaxDepth[S](scenario.MaxDepth))
	case cfg.maxDepth != 0:
		engineOpts = append(engineOpts, engine.WithMaxDepth[S](cfg.maxDepth))
	}
	if cfg.maxEffects > 0 {
		engineOpts = append(engineOpts, engine.WithMaxConcurrentEffects[S](cfg.maxEffects))
	}
	eng := engine.New(d.Reducers, d.Epics, engineOpts...)

	boundary := false
	if scenario.InitialState != nil {
		initial, err := decodeState[S](scenario.InitialState)
		if err != nil {
			return nil, fmt.Errorf("initial_state: %w", err)
		}
		eng.WarmUp(initial)
	} else if cfg.boundary {
		var zero S
		boundary = eng.WarmUp(zero)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(runCtx) }()

	result := NewResult()
	timeout := scenario.Timeout
	if timeout <= 0 {
		timeout = cfg.timeout
	}
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	stepErr := executeSteps(runCtx, eng, rec, scenario, actions, timeout, result)

	final, hasState := eng.State()
	cancel()
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if stepErr != nil {
		return nil, stepErr
	}

	result.Commits, result.Faults = rec.snapshot()
	if boundary && len(result.Commits) > 0 {
		result.Commits = result.Commits[1:]
	}
	if hasState {
		result.FinalState, err = ir.MarshalCanonical(final)
		if err != nil {
			return nil, fmt.Errorf("final state: %w", err)
		}
	}
	result.Observed, err = observe(d, scenario, result.Commits)
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario finished",
		"domain", d.Name,
		"scenario", scenario.Name,
		"commits", len(result.Commits),
		"faults", len(result.Faults),
		"pass", result.Pass,
	)

	return result, nil
}

// executeSteps dispatches every step in order and checks step expectations.
func executeSteps[S any](ctx context.Context, eng *engine.Engine[S], rec *journal, scenario *Scenario, actions []engine.Action, timeout time.Duration, result *Result) error {
	for i, step := range scenario.Steps {
		before := rec.faultCount()

		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err := eng.DispatchAndWait(stepCtx, actions[i])
		if err != nil && !engine.IsReducerFault(err) {
			cancel()
			return fmt.Errorf("step %d (%s): %w", i, step.Dispatch, err)
		}
		err = eng.Settle(stepCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): settle: %w", i, step.Dispatch, err)
		}

		if step.Expect == nil {
			continue
		}
		state, _ := eng.State()
		for _, msg := range checkStep(i, step, state, rec.faultsSince(before)) {
			result.AddError(msg)
		}
	}
	return nil
}

// checkStep compares one settled step with its expectation.
func checkStep[S any](index int, step Step, state S, faults []ir.Fault) []string {
	var errs []string

	if len(step.Expect.State) > 0 {
		if err := matchState(step.Expect.State, state); err != nil {
			errs = append(errs, fmt.Sprintf("steps[%d] (%s): %v", index, step.Dispatch, err))
		}
	}

	switch step.Expect.Fault {
	case "":
	case FaultNone:
		if len(faults) > 0 {
			errs = append(errs, fmt.Sprintf("steps[%d] (%s): expected no fault, got %s: %s",
				index, step.Dispatch, faults[0].Kind, faults[0].Message))
		}
	default:
		found := false
		for _, f := range faults {
			if string(f.Kind) == step.Expect.Fault {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Sprintf("steps[%d] (%s): expected %s fault, got %d other fault(s)",
				index, step.Dispatch, step.Expect.Fault, len(faults)))
		}
	}

	return errs
}

// decodeSteps turns step arguments into actions through the domain's
// registry.
func decodeSteps[S any](d Domain[S], steps []Step) ([]engine.Action, error) {
	if d.Actions == nil {
		return nil, fmt.Errorf("domain %q has no action registry", d.Name)
	}
	actions := make([]engine.Action, len(steps))
	for i, step := range steps {
		raw := []byte("{}")
		if step.Args != nil {
			var err error
			raw, err = json.Marshal(step.Args)
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: encode args: %w", i, err)
			}
		}
		action, err := d.Actions.Decode(step.Dispatch, raw)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		actions[i] = action
	}
	return actions, nil
}

// decodeState converts a YAML mapping into S, rejecting unknown fields.
func decodeState[S any](fields map[string]any) (S, error) {
	var s S
	raw, err := json.Marshal(fields)
	if err != nil {
		return s, fmt.Errorf("encode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return s, fmt.Errorf("decode: %w", err)
	}
	return s, nil
}

// checkSelectors verifies every selector the scenario names exists.
func checkSelectors[S any](d Domain[S], scenario *Scenario) error {
	for _, name := range observedNames(scenario) {
		if _, ok := d.Selectors[name]; !ok {
			return fmt.Errorf("unknown selector %q for domain %q", name, d.Name)
		}
	}
	return nil
}

// observedNames lists the selectors in Observe and in observed assertions,
// sorted and without duplicates.
func observedNames(scenario *Scenario) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range scenario.Observe {
		add(name)
	}
	for _, a := range scenario.Assertions {
		if a.Type == AssertObserved {
			add(a.Selector)
		}
	}
	sort.Strings(names)
	return names
}

// observe replays the journaled states through each observed selector and
// keeps the distinct successive values, the way a subscriber that never
// falls behind would see them.
func observe[S any](d Domain[S], scenario *Scenario, commits []ir.Commit) (map[string][]any, error) {
	names := observedNames(scenario)
	if len(names) == 0 {
		return nil, nil
	}

	states := make([]S, 0, len(commits))
	for _, c := range commits {
		var s S
		if err := json.Unmarshal(c.State, &s); err != nil {
			return nil, fmt.Errorf("decode state at seq %d: %w", c.Seq, err)
		}
		states = append(states, s)
	}

	observed := make(map[string][]any, len(names))
	for _, name := range names {
		selector := d.Selectors[name]
		values := []any{}
		for _, s := range states {
			v, err := normalize(selector(s))
			if err != nil {
				return nil, fmt.Errorf("selector %q: %w", name, err)
			}
			if len(values) > 0 && valuesEqual(values[len(values)-1], v) {
				continue
			}
			values = append(values, v)
		}
		observed[name] = values
	}
	return observed, nil
}

// normalize round-trips v through JSON so YAML literals and Go values
// compare equal (every number becomes float64).
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
