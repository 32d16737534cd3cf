package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crm-merge-cli/internal/customer"
	"github.com/sells-group/crm-merge-cli/internal/dedupe"
	"github.com/sells-group/crm-merge-cli/internal/ledger"
	"github.com/sells-group/crm-merge-cli/internal/report"
	"github.com/sells-group/crm-merge-cli/internal/runlog"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Detect and merge duplicate customer records",
	Long:  "Builds the duplicate index, classifies merge candidates, writes the audit report and, with --execute, rewrites transactional references and deletes the absorbed records.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		execute, _ := cmd.Flags().GetBool("execute")
		reportDir, _ := cmd.Flags().GetString("report-dir")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		delay, _ := cmd.Flags().GetDuration("delay")

		if reportDir == "" {
			reportDir = cfg.Merge.ReportDir
		}
		if batchSize <= 0 {
			batchSize = cfg.Merge.BatchSize
		}
		if delay == 0 && cfg.Merge.BatchDelayMS > 0 {
			delay = time.Duration(cfg.Merge.BatchDelayMS) * time.Millisecond
		}

		pattern, err := regexp.Compile(cfg.Merge.IdentifierPattern)
		if err != nil {
			return eris.Wrapf(err, "merge: invalid identifier pattern %q", cfg.Merge.IdentifierPattern)
		}

		pool, err := initPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		writer := report.NewWriter(reportDir)

		var recorder dedupe.RunRecorder
		if cfg.RunLog.Path != "" {
			log, err := runlog.Open(cfg.RunLog.Path)
			if err != nil {
				return err
			}
			defer log.Close() //nolint:errcheck
			recorder = log
		}

		engine := dedupe.NewEngine(
			customer.NewPostgresStore(pool),
			ledger.NewPostgresStores(pool),
			writer,
			recorder,
			pattern,
			dedupe.ExecutorConfig{
				BatchSize:          batchSize,
				CandidateBatchSize: cfg.Merge.CandidateBatchSize,
				BatchDelay:         delay,
			},
		)

		summary, err := engine.Run(ctx, dedupe.Options{DryRun: !execute})
		if summary != nil {
			if _, werr := writer.WriteSummary(summary); werr != nil {
				zap.L().Warn("failed to write summary sidecar", zap.Error(werr))
			}
			formatSummary(summary)
		}
		return err
	},
}

func formatSummary(s *dedupe.Summary) {
	fmt.Printf("Run %s (%s)\n", s.RunID, s.Mode)
	fmt.Printf("  Customers scanned:              %d\n", s.CustomerCount)
	fmt.Printf("  Records without a match key:    %d\n", s.UnkeyedCount)
	fmt.Printf("  Merge candidates:               %d\n", s.Candidates)
	fmt.Printf("  Authoritative duplicate groups: %d\n", s.AuthoritativeDupGroups)
	fmt.Printf("  Provisional duplicate groups:   %d\n", s.ProvisionalDupGroups)
	if s.Cascade != nil {
		fmt.Printf("  Merged and deleted:             %d of %d\n", s.Cascade.Deleted, s.Cascade.Processed)
		for _, kind := range []ledger.Kind{ledger.KindInvoice, ledger.KindPayment, ledger.KindProductSale} {
			if n := s.Cascade.Rewritten[kind]; n > 0 {
				fmt.Printf("    %-16s rewritten: %d\n", kind, n)
			}
		}
		for _, e := range s.Cascade.Errors {
			fmt.Fprintf(os.Stderr, "  candidate %s <- %s failed: %s\n", e.Authoritative, e.Provisional, e.Message)
		}
	}
	if s.ReportPath != "" {
		fmt.Printf("  Audit report: %s\n", s.ReportPath)
	}
}

func init() {
	mergeCmd.Flags().Bool("execute", false, "apply merges; without this flag the run is a dry run")
	mergeCmd.Flags().String("report-dir", "", "directory for audit reports (default from config)")
	mergeCmd.Flags().Int("batch-size", 0, "rows per bulk rewrite (default from config)")
	mergeCmd.Flags().Duration("delay", 0, "pause between candidate batches (e.g. 200ms)")
	rootCmd.AddCommand(mergeCmd)
}
