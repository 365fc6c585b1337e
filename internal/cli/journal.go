package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/reduxengine/internal/ir"
	"github.com/roach88/reduxengine/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database   string
	ActionType string // optional - filter to one action type
	Limit      int    // optional - last N commits only
}

// JournalResult holds the listed commits.
type JournalResult struct {
	Commits []ir.Commit `json:"commits"`
	Stats   store.Stats `json:"stats"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List journaled commits",
		Long: `List committed transitions in seq order.

Examples:
  reduxctl journal --db ./journal.db
  reduxctl journal --db ./journal.db --type counter/add
  reduxctl journal --db ./journal.db --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (default $REDUX_DB)")
	cmd.Flags().StringVar(&opts.ActionType, "type", "", "only commits of this action type")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "only the last N commits")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := opts.openJournal(cmd, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var commits []ir.Commit
	if opts.ActionType != "" {
		commits, err = st.ReadCommitsByType(ctx, opts.ActionType)
	} else {
		commits, err = st.ReadCommits(ctx)
	}
	if err != nil {
		return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to read commits", err))
	}
	if opts.Limit > 0 && len(commits) > opts.Limit {
		commits = commits[len(commits)-opts.Limit:]
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to read stats", err))
	}

	result := JournalResult{Commits: commits, Stats: stats}
	return opts.formatter(cmd).Emit(result, func(w io.Writer) { printJournalText(w, result) })
}

func printJournalText(w io.Writer, result JournalResult) {
	if len(result.Commits) == 0 {
		fmt.Fprintln(w, "No commits found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tCHAIN\tDEPTH\tACTION\tPAYLOAD\tSTATE")
	for _, c := range result.Commits {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", c.Seq, c.Chain, c.Depth, c.ActionType, c.Action, c.State)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d commits, %d faults, %d chains in journal\n",
		result.Stats.Commits, result.Stats.Faults, result.Stats.Chains)
}
