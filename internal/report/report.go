// Package report writes the audit artifacts of a run: an XLSX workbook for
// human review and a YAML summary sidecar.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crm-merge-cli/internal/dedupe"
)

// Sheet names of the audit workbook.
const (
	SheetCandidates       = "Merge Candidates"
	SheetAuthoritativeDup = "Authoritative Duplicates"
	SheetProvisionalDup   = "Provisional Duplicates"
	SheetSummary          = "Summary"
)

// Writer writes timestamped audit workbooks under Dir. It implements
// dedupe.Reporter.
type Writer struct {
	// Dir is created on first write if missing.
	Dir string

	// now is overridable for tests.
	now func() time.Time
}

// NewWriter creates a report writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, now: time.Now}
}

// WriteAudit writes the full audit workbook and returns its path.
func (w *Writer) WriteAudit(cl *dedupe.Classification, summary *dedupe.Summary) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create report directory")
	}

	f := xlsx.NewFile()
	if err := writeCandidateSheet(f, cl.Candidates); err != nil {
		return "", err
	}
	if err := writeGroupSheet(f, SheetAuthoritativeDup, cl.AuthoritativeDuplicates); err != nil {
		return "", err
	}
	if err := writeGroupSheet(f, SheetProvisionalDup, cl.ProvisionalDuplicates); err != nil {
		return "", err
	}
	if err := writeSummarySheet(f, summary); err != nil {
		return "", err
	}

	name := fmt.Sprintf("merge-audit-%s-%s.xlsx", summary.Mode, w.now().UTC().Format("20060102-150405"))
	path := filepath.Join(w.Dir, name)
	if err := f.Save(path); err != nil {
		return "", eris.Wrap(err, "report: save audit workbook")
	}

	zap.L().Info("audit report written",
		zap.String("component", "report"),
		zap.String("path", path),
		zap.Int("candidates", len(cl.Candidates)),
	)

	return path, nil
}

// WriteSummary writes the run summary next to the audit workbook as YAML.
func (w *Writer) WriteSummary(summary *dedupe.Summary) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create report directory")
	}

	data, err := yaml.Marshal(summary)
	if err != nil {
		return "", eris.Wrap(err, "report: marshal run summary")
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("merge-summary-%s.yaml", summary.RunID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "report: write run summary")
	}
	return path, nil
}

func writeCandidateSheet(f *xlsx.File, candidates []dedupe.Candidate) error {
	sheet, err := f.AddSheet(SheetCandidates)
	if err != nil {
		return eris.Wrap(err, "report: add candidate sheet")
	}
	addRow(sheet, "Match Key", "Surviving ID", "Surviving Name", "Absorbed ID", "Absorbed Name", "Absorbed Email")
	for _, cand := range candidates {
		addRow(sheet,
			cand.Key,
			cand.Authoritative.Identifier,
			cand.Authoritative.DisplayName,
			cand.Provisional.Identifier,
			cand.Provisional.DisplayName,
			cand.Provisional.Email,
		)
	}
	return nil
}

func writeGroupSheet(f *xlsx.File, name string, groups []dedupe.DuplicateGroup) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %s", name)
	}
	addRow(sheet, "Match Key", "Records", "Identifiers")
	for _, g := range groups {
		ids := make([]string, len(g.Customers))
		for i, c := range g.Customers {
			ids[i] = c.Identifier
		}
		addRow(sheet, g.Key, fmt.Sprintf("%d", len(g.Customers)), strings.Join(ids, ", "))
	}
	return nil
}

func writeSummarySheet(f *xlsx.File, summary *dedupe.Summary) error {
	sheet, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addRow(sheet, "Run ID", summary.RunID)
	addRow(sheet, "Mode", summary.Mode)
	addRow(sheet, "Started", summary.StartedAt.Format(time.RFC3339))
	addRow(sheet, "Customers", fmt.Sprintf("%d", summary.CustomerCount))
	addRow(sheet, "Unkeyed", fmt.Sprintf("%d", summary.UnkeyedCount))
	addRow(sheet, "Merge Candidates", fmt.Sprintf("%d", summary.Candidates))
	addRow(sheet, "Authoritative Duplicate Groups", fmt.Sprintf("%d", summary.AuthoritativeDupGroups))
	addRow(sheet, "Provisional Duplicate Groups", fmt.Sprintf("%d", summary.ProvisionalDupGroups))
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}
