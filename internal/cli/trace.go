package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/reduxengine/internal/ir"
	"github.com/roach88/reduxengine/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Chain    string // optional - without it, every chain is summarized
}

// TraceResult holds one chain's causal sequence.
type TraceResult struct {
	Chain   string      `json:"chain"`
	Commits []ir.Commit `json:"commits"`
	Faults  []ir.Fault  `json:"faults"`
	Stats   TraceStats  `json:"stats"`
}

// TraceStats holds summary statistics for the chain.
type TraceStats struct {
	Commits  int  `json:"commits"`
	Faults   int  `json:"faults"`
	MaxDepth int  `json:"max_depth"`
	Rejected bool `json:"rejected"` // root action was refused by a reducer
}

// ChainsResult lists chain summaries.
type ChainsResult struct {
	Chains []store.ChainSummary `json:"chains"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the causal sequence of a chain",
		Long: `Show every commit and fault of one chain: the external dispatch that
started it and the actions its epics emitted, indented by depth.

Without --chain, list a summary of every chain in the journal.

Examples:
  reduxctl trace --db ./journal.db
  reduxctl trace --db ./journal.db --chain 0190b6e2-7a4c-7c1e-9d1a-3f0c2b9a8e11
  reduxctl trace --db ./journal.db --chain <token> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database (default $REDUX_DB)")
	cmd.Flags().StringVar(&opts.Chain, "chain", "", "chain token to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	st, err := opts.openJournal(cmd, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.Chain == "" {
		chains, err := st.Chains(ctx)
		if err != nil {
			return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to list chains", err))
		}
		result := ChainsResult{Chains: chains}
		return opts.formatter(cmd).Emit(result, func(w io.Writer) { printChainsText(w, result) })
	}

	commits, err := st.ReadChain(ctx, opts.Chain)
	if err != nil {
		return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to read chain", err))
	}
	faults, err := st.ReadChainFaults(ctx, opts.Chain)
	if err != nil {
		return opts.fail(cmd, CodeJournal, WrapExitError(ExitCommandError, "failed to read chain faults", err))
	}

	result := buildTrace(opts.Chain, commits, faults)
	return opts.formatter(cmd).Emit(result, func(w io.Writer) { printTraceText(w, result) })
}

// buildTrace assembles a chain's trace and statistics.
func buildTrace(chain string, commits []ir.Commit, faults []ir.Fault) TraceResult {
	result := TraceResult{
		Chain:   chain,
		Commits: commits,
		Faults:  faults,
		Stats: TraceStats{
			Commits: len(commits),
			Faults:  len(faults),
		},
	}
	for _, c := range commits {
		result.Stats.MaxDepth = max(result.Stats.MaxDepth, c.Depth)
	}
	for _, f := range faults {
		if f.Kind == ir.FaultReducer && f.Depth == 0 {
			result.Stats.Rejected = true
		}
	}
	return result
}

func printTraceText(w io.Writer, result TraceResult) {
	if len(result.Commits) == 0 && len(result.Faults) == 0 {
		fmt.Fprintf(w, "No events found for chain: %s\n", result.Chain)
		return
	}

	fmt.Fprintf(w, "Chain %s\n\n", result.Chain)

	// Effect faults are printed under the commit whose effects failed.
	bySeq := make(map[int64][]ir.Fault)
	var reducerFaults []ir.Fault
	for _, f := range result.Faults {
		if f.Kind == ir.FaultEffect {
			bySeq[f.CommitSeq] = append(bySeq[f.CommitSeq], f)
		} else {
			reducerFaults = append(reducerFaults, f)
		}
	}

	for _, c := range result.Commits {
		indent := strings.Repeat("  ", c.Depth)
		fmt.Fprintf(w, "%s[%d] %s %s -> %s\n", indent, c.Seq, c.ActionType, c.Action, c.State)
		for _, f := range bySeq[c.Seq] {
			fmt.Fprintf(w, "%s  ! effect fault: %s\n", indent, f.Message)
		}
	}
	for _, f := range reducerFaults {
		indent := strings.Repeat("  ", f.Depth)
		fmt.Fprintf(w, "%s! reducer fault on %s: %s\n", indent, f.ActionType, f.Message)
	}

	fmt.Fprintf(w, "\n%d commits, %d faults, max depth %d\n",
		result.Stats.Commits, result.Stats.Faults, result.Stats.MaxDepth)
}

func printChainsText(w io.Writer, result ChainsResult) {
	if len(result.Chains) == 0 {
		fmt.Fprintln(w, "No chains found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAIN\tROOT\tCOMMITS\tSEQ\tDEPTH\tFAULTS")
	for _, c := range result.Chains {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d-%d\t%d\t%d\n",
			c.Chain, c.Root, c.Commits, c.FirstSeq, c.LastSeq, c.MaxDepth, c.Faults)
	}
	_ = tw.Flush()
}
