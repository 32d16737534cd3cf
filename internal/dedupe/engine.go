package dedupe

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-merge-cli/internal/customer"
	"github.com/sells-group/crm-merge-cli/internal/ledger"
)

// Run modes.
const (
	ModeDryRun  = "dry-run"
	ModeExecute = "execute"
)

// Reporter persists the audit view of a classification for human review.
// The engine never reads the report back.
type Reporter interface {
	WriteAudit(cl *Classification, summary *Summary) (string, error)
}

// RunRecorder persists run summaries for later inspection. Optional.
type RunRecorder interface {
	Record(ctx context.Context, s *Summary) error
}

// Options selects the operating mode of one engine run.
type Options struct {
	// DryRun stops after classification and reporting; no mutation happens.
	DryRun bool
}

// Summary is the user-visible outcome of a run. Always produced for a
// completed run, whether or not every candidate succeeded.
type Summary struct {
	RunID      string    `yaml:"run_id" json:"run_id"`
	Mode       string    `yaml:"mode" json:"mode"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	FinishedAt time.Time `yaml:"finished_at" json:"finished_at"`

	CustomerCount          int `yaml:"customer_count" json:"customer_count"`
	UnkeyedCount           int `yaml:"unkeyed_count" json:"unkeyed_count"`
	Candidates             int `yaml:"candidates" json:"candidates"`
	AuthoritativeDupGroups int `yaml:"authoritative_dup_groups" json:"authoritative_dup_groups"`
	ProvisionalDupGroups   int `yaml:"provisional_dup_groups" json:"provisional_dup_groups"`

	// Cascade is nil for dry runs.
	Cascade *Results `yaml:"cascade,omitempty" json:"cascade,omitempty"`

	ReportPath string `yaml:"report_path,omitempty" json:"report_path,omitempty"`
}

// Engine wires the pipeline stages: index build, classification, audit
// reporting and, in execute mode, the merge cascade. Control flow is strictly
// sequential; each stage completes before the next begins.
type Engine struct {
	customers customer.Store
	ledgers   []ledger.Store
	reporter  Reporter
	recorder  RunRecorder
	pattern   *regexp.Regexp
	execCfg   ExecutorConfig
}

// NewEngine creates an engine. reporter is required; recorder may be nil.
// pattern nil means the default authoritative identifier format.
func NewEngine(customers customer.Store, ledgers []ledger.Store, reporter Reporter, recorder RunRecorder, pattern *regexp.Regexp, execCfg ExecutorConfig) *Engine {
	return &Engine{
		customers: customers,
		ledgers:   ledgers,
		reporter:  reporter,
		recorder:  recorder,
		pattern:   pattern,
		execCfg:   execCfg,
	}
}

// Run executes one full engine pass and returns its summary. Setup failures
// (unreachable store, unreadable customer stream) abort before any mutation.
func (e *Engine) Run(ctx context.Context, opts Options) (*Summary, error) {
	mode := ModeExecute
	if opts.DryRun {
		mode = ModeDryRun
	}
	log := zap.L().With(
		zap.String("component", "dedupe.engine"),
		zap.String("mode", mode),
	)

	summary := &Summary{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}

	idx, err := BuildIndex(ctx, e.customers, e.pattern)
	if err != nil {
		return nil, err
	}
	summary.CustomerCount = idx.Total
	summary.UnkeyedCount = idx.Unkeyed

	cl := Classify(idx)
	summary.Candidates = len(cl.Candidates)
	summary.AuthoritativeDupGroups = len(cl.AuthoritativeDuplicates)
	summary.ProvisionalDupGroups = len(cl.ProvisionalDuplicates)

	log.Info("classification complete",
		zap.Int("candidates", len(cl.Candidates)),
		zap.Int("authoritative_dup_groups", len(cl.AuthoritativeDuplicates)),
		zap.Int("provisional_dup_groups", len(cl.ProvisionalDuplicates)),
	)

	reportPath, err := e.reporter.WriteAudit(cl, summary)
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: write audit report")
	}
	summary.ReportPath = reportPath

	if !opts.DryRun {
		executor := NewExecutor(e.customers, e.ledgers, e.execCfg)
		results, err := executor.Execute(ctx, cl.Candidates)
		summary.Cascade = results
		if err != nil {
			return summary, err
		}
	}

	summary.FinishedAt = time.Now().UTC()

	if e.recorder != nil {
		if err := e.recorder.Record(ctx, summary); err != nil {
			log.Warn("failed to record run", zap.Error(err))
		}
	}

	log.Info("run complete",
		zap.String("run_id", summary.RunID),
		zap.String("report", summary.ReportPath),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	return summary, nil
}
