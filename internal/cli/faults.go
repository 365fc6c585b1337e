package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/reduxengine/internal/ir"
)

// FaultsOptions holds flags for the faults command.
type FaultsOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - "reducer" or "effect"
}

// FaultsResult holds the listed faults.
type FaultsResult struct {
	Faults  []ir.Fault `json:"faults"`
	Reducer int        `json:"reducer"`
	Effect  int        `json:"effect"`
}

// NewFaultsCommand creates the faults command.
func NewFaultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FaultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "faults",
		Short: "List reducer and effect faults",
		Long: `List journaled faults in the order they were reported.

A reducer fault means the action was refused and nothing was committed. An
effect fault means an epic failed after its triggering commit; the commit
stands.

Examples:
  reduxctl faults --db ./journal.db
  reduxctl faults --db ./journal.db --kind effect`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFaults(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (default $REDUX_DB)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only faults of this kind (reducer|effect)")

	return cmd
}

func runFaults(opts *FaultsOptions, cmd *cobra.Command) error {
	switch ir.FaultKind(opts.Kind) {
	case "", ir.FaultReducer, ir.FaultEffect:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be reducer or effect", opts.Kind))
	}

	st, err := opts.openJournal(cmd, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	all, err := st.ReadFaults(cmd.Context())
	if err != nil {
		return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to read faults", err))
	}

	result := FaultsResult{Faults: []ir.Fault{}}
	for _, f := range all {
		if opts.Kind != "" && string(f.Kind) != opts.Kind {
			continue
		}
		result.Faults = append(result.Faults, f)
		switch f.Kind {
		case ir.FaultReducer:
			result.Reducer++
		case ir.FaultEffect:
			result.Effect++
		}
	}

	return opts.formatter(cmd).Emit(result, func(w io.Writer) { printFaultsText(w, result) })
}

func printFaultsText(w io.Writer, result FaultsResult) {
	if len(result.Faults) == 0 {
		fmt.Fprintln(w, "No faults found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tCHAIN\tDEPTH\tSEQ\tACTION\tMESSAGE")
	for _, f := range result.Faults {
		seq := "-"
		if f.Kind == ir.FaultEffect {
			seq = fmt.Sprint(f.CommitSeq)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", f.Kind, f.Chain, f.Depth, seq, f.ActionType, f.Message)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d reducer, %d effect\n", result.Reducer, result.Effect)
}
