package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/crm-merge-cli/internal/runlog"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect merge run history",
	Long:  "Commands for listing and viewing past merge runs recorded in the local run log.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded merge runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		log, err := runlog.Open(cfg.RunLog.Path)
		if err != nil {
			return err
		}
		defer log.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := log.List(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		formatRunsList(os.Stdout, entries)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		log, err := runlog.Open(cfg.RunLog.Path)
		if err != nil {
			return err
		}
		defer log.Close() //nolint:errcheck

		summary, err := log.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		if summary == nil {
			return eris.Errorf("run %s not found", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, entries []runlog.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tMODE\tSTARTED\tDURATION\tCUSTOMERS\tCANDIDATES\tDELETED\tERRORS")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			e.RunID,
			e.Mode,
			e.StartedAt.Format(time.RFC3339),
			e.FinishedAt.Sub(e.StartedAt).Round(time.Second),
			e.Customers,
			e.Candidates,
			e.Deleted,
			e.Errors,
		)
	}
	_ = w.Flush()
}
