package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/reduxengine/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
}

// VerifyResult holds the integrity check outcome.
type VerifyResult struct {
	Stats      store.Stats        `json:"stats"`
	Corruption []store.Corruption `json:"corruption"`
	OK         bool               `json:"ok"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check journal integrity",
		Long: `Recompute the state hash and commit ID of every journaled commit and
report seq gaps. Unlike replay this never runs a reducer.

Exit codes:
  0 - Journal is intact
  1 - Corruption detected
  2 - Command error

Examples:
  reduxctl verify --db ./journal.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (default $REDUX_DB)")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := opts.openJournal(cmd, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(ctx)
	if err != nil {
		return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to read stats", err))
	}
	corruption, err := st.Verify(ctx)
	if err != nil {
		return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to verify journal", err))
	}
	if corruption == nil {
		corruption = []store.Corruption{}
	}

	result := VerifyResult{Stats: stats, Corruption: corruption, OK: len(corruption) == 0}
	if err := opts.formatter(cmd).Emit(result, func(w io.Writer) { printVerifyText(w, result) }); err != nil {
		return err
	}

	if !result.OK {
		return NewExitError(ExitFailure, fmt.Sprintf("%d corrupt commit(s)", len(corruption)))
	}
	return nil
}

func printVerifyText(w io.Writer, result VerifyResult) {
	for _, c := range result.Corruption {
		fmt.Fprintf(w, "✗ seq %d (%s): %s\n", c.Seq, c.ID, c.Reason)
	}
	fmt.Fprintf(w, "%d commits, %d faults, %d chains\n",
		result.Stats.Commits, result.Stats.Faults, result.Stats.Chains)
	if result.OK {
		fmt.Fprintln(w, "✓ journal intact")
	}
}
