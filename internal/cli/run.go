package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/reduxengine/internal/engine"
	"github.com/roach88/reduxengine/internal/harness"
	"github.com/roach88/reduxengine/internal/store"
	"github.com/roach88/reduxengine/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	MaxDepth   int
	MaxEffects int

	// ChainGenerator allows overriding the chain token generator (for
	// testing). If nil, journaled runs use UUIDv7Generator and in-memory
	// runs use sequential tokens.
	ChainGenerator engine.ChainGenerator
}

// ScenarioOutcome is the run result of one scenario file.
type ScenarioOutcome struct {
	Scenario   string          `json:"scenario"`
	File       string          `json:"file"`
	Pass       bool            `json:"pass"`
	Commits    int             `json:"commits"`
	Faults     int             `json:"faults"`
	FinalState json.RawMessage `json:"final_state,omitempty"`
	Errors     []string        `json:"errors,omitempty"`
}

// RunResult holds the outcome of every scenario.
type RunResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Database  string            `json:"database,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts, MaxDepth: -1, MaxEffects: -1}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run counter scenarios through the engine",
		Long: `Run one or more scenario files through the dispatch engine with the
counter domain, and check their step expectations and assertions.

With a database the run is journaled: commits and faults are appended, seq
numbering continues after the last journaled commit, and chains get UUIDv7
tokens.

Exit codes:
  0 - All scenarios passed
  1 - At least one scenario failed
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  reduxctl run testdata/scenarios/counter_cascade.yaml
  reduxctl run --db ./journal.db testdata/scenarios/*.yaml
  reduxctl run --format json --max-depth 8 scenario.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (default $REDUX_DB)")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", -1, "cascade depth limit, 0 disables (default $REDUX_MAX_DEPTH)")
	cmd.Flags().IntVar(&opts.MaxEffects, "max-effects", -1, "concurrent epic runs, 0 unbounded (default $REDUX_MAX_EFFECTS)")

	return cmd
}

func runScenarios(opts *RunOptions, files []string, cmd *cobra.Command) error {
	logger := opts.logger()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, "reduxctl", opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Error("tracing shutdown failed", "error", err)
		}
	}()

	var st *store.Store
	dbPath := opts.databasePath(opts.Database)
	if dbPath != "" {
		logger.Info("opening database", "path", dbPath)
		st, err = store.Open(dbPath)
		if err != nil {
			return opts.fail(cmd, CodeDatabase, WrapExitError(ExitCommandError, "failed to open database", err))
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	result := RunResult{Scenarios: []ScenarioOutcome{}, Database: dbPath}
	for _, file := range files {
		outcome, err := runScenarioFile(ctx, opts, st, file)
		if err != nil {
			return opts.fail(cmd, CodeScenario, WrapExitError(ExitCommandError, "scenario "+file, err))
		}
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, outcome)
	}

	if err := opts.formatter(cmd).Emit(result, func(w io.Writer) { printRunText(w, result) }); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, len(result.Scenarios)))
	}
	return nil
}

// runScenarioFile loads and runs one scenario, journaling to st if set.
func runScenarioFile(ctx context.Context, opts *RunOptions, st *store.Store, file string) (ScenarioOutcome, error) {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioOutcome{}, err
	}

	runOpts := []harness.Option{
		harness.WithLogger(opts.logger()),
		harness.WithMaxDepth(opts.maxDepth()),
		harness.WithMaxConcurrentEffects(opts.maxEffects()),
		harness.WithStepTimeout(opts.Config.StepTimeout),
	}
	if opts.ChainGenerator != nil {
		runOpts = append(runOpts, harness.WithChainGenerator(opts.ChainGenerator))
	}
	if st != nil {
		last, ok, err := st.LastCommit(ctx)
		if err != nil {
			return ScenarioOutcome{}, err
		}
		var start int64
		if ok {
			start = last.Seq
		}
		runOpts = append(runOpts,
			harness.WithRecorder(st),
			harness.WithClock(engine.NewClockAt(start)),
			harness.WithRunBoundary(),
		)
		if opts.ChainGenerator == nil {
			runOpts = append(runOpts, harness.WithChainGenerator(engine.UUIDv7Generator{}))
		}
	}

	result, err := harness.Run(ctx, counterDomain(), scenario, runOpts...)
	if err != nil {
		return ScenarioOutcome{}, err
	}

	return ScenarioOutcome{
		Scenario:   scenario.Name,
		File:       filepath.Base(file),
		Pass:       result.Pass,
		Commits:    len(result.Commits),
		Faults:     len(result.Faults),
		FinalState: result.FinalState,
		Errors:     result.Errors,
	}, nil
}

// maxDepth resolves --max-depth against REDUX_MAX_DEPTH. The harness
// disables the limit for negative values.
func (o *RunOptions) maxDepth() int {
	depth := o.MaxDepth
	if depth < 0 {
		depth = o.Config.MaxDepth
	}
	if depth == 0 {
		return -1
	}
	return depth
}

func (o *RunOptions) maxEffects() int {
	if o.MaxEffects >= 0 {
		return o.MaxEffects
	}
	return o.Config.MaxEffects
}

func printRunText(w io.Writer, result RunResult) {
	for _, s := range result.Scenarios {
		status := "PASS"
		if !s.Pass {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%s %s (%d commits, %d faults)", status, s.Scenario, s.Commits, s.Faults)
		if s.FinalState != nil {
			fmt.Fprintf(w, " final=%s", s.FinalState)
		}
		fmt.Fprintln(w)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", result.Passed, result.Failed)
	if result.Database != "" {
		fmt.Fprintf(w, "journal: %s\n", result.Database)
	}
}
