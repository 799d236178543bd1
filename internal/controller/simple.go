package controller

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	m "gooze.dev/pkg/poison/internal/model"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd  *cobra.Command
	mu   sync.Mutex
	mode StartMode
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := &StartConfig{}
	for _, opt := range options {
		opt(cfg)
	}

	s.mu.Lock()
	s.mode = cfg.mode
	s.mu.Unlock()

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayFileClean reports a scanned file in check mode.
func (s *SimpleUI) DisplayFileClean(ctx context.Context, path m.Path) {
	if ctx.Err() != nil || s.currentMode() != ModeCheck {
		return
	}

	s.printf("  clean    %s\n", path)
}

// DisplayImports reports how many imports a file contributes in check mode.
func (s *SimpleUI) DisplayImports(ctx context.Context, path m.Path, imports m.ImportOccurrence) {
	if ctx.Err() != nil || s.currentMode() != ModeCheck || len(imports) == 0 {
		return
	}

	s.printf("  imports  %s: %s\n", path, strings.Join(imports.Names(), ", "))
}

// DisplayResolution reports imports that have no inspectable source.
func (s *SimpleUI) DisplayResolution(ctx context.Context, resolution m.Resolution) {
	if ctx.Err() != nil || s.currentMode() != ModeCheck || resolution.Resolved() {
		return
	}

	s.printf("  skipped  %s (no source)\n", resolution.ImportPath)
}

// DisplayTargets announces an audit run.
func (s *SimpleUI) DisplayTargets(ctx context.Context, targets []m.Path, threads int) {
	if ctx.Err() != nil {
		return
	}

	s.printf("Checking %d target(s) with %d worker(s)\n", len(targets), threads)
}

// DisplayReport prints the outcome of one target.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) {
	if ctx.Err() != nil {
		return
	}

	s.printf("%s\n", reportLine(report))
}

// DisplaySummary prints a table of reports.
func (s *SimpleUI) DisplaySummary(ctx context.Context, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderSummaryTable(reports))

	return nil
}

// DisplayImportTable prints how each import of path resolves.
func (s *SimpleUI) DisplayImportTable(ctx context.Context, path m.Path, rows []ImportRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Imports of %s\n\n%s", path, renderImportTable(rows))

	return nil
}

func (s *SimpleUI) currentMode() StartMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

func (s *SimpleUI) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func reportLine(report m.Report) string {
	switch report.Status {
	case m.StatusViolation:
		if report.Violation != nil {
			return fmt.Sprintf("POISONED %s: %q in %s on line %d",
				report.Target, report.Violation.Name, report.Violation.File, report.Violation.Line)
		}

		return fmt.Sprintf("POISONED %s", report.Target)
	case m.StatusError:
		return fmt.Sprintf("ERROR    %s: %s", report.Target, report.Error)
	case m.StatusClean:
	}

	return fmt.Sprintf("CLEAN    %s (%d file(s) scanned)", report.Target, len(report.Files))
}

func reportDetail(report m.Report) string {
	switch report.Status {
	case m.StatusViolation:
		if report.Violation == nil {
			return ""
		}

		return fmt.Sprintf("%q at %s:%d", report.Violation.Name, report.Violation.File, report.Violation.Line)
	case m.StatusError:
		return report.Error
	case m.StatusClean:
	}

	return ""
}

func renderSummaryTable(reports []m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Target", "Status", "Files", "Detail"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})

	poisoned := 0

	for _, report := range reports {
		if report.Status != m.StatusClean {
			poisoned++
		}

		table.Append([]string{
			string(report.Target),
			string(report.Status),
			fmt.Sprintf("%d", len(report.Files)),
			reportDetail(report),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Targets %d", len(reports)),
		fmt.Sprintf("%d not clean", poisoned),
		"",
		"",
	})

	table.Render()

	return tableBuffer.String()
}

func renderImportTable(rows []ImportRow) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Import", "Lines", "Origin", "Files", "Admitted"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT,
	})

	for _, row := range rows {
		origin := string(row.Origin)
		if origin == "" {
			origin = "(none)"
		}

		lines := make([]string, 0, len(row.Lines))
		for _, line := range row.Lines {
			lines = append(lines, fmt.Sprintf("%d", line))
		}

		table.Append([]string{
			row.ImportPath,
			strings.Join(lines, ","),
			origin,
			fmt.Sprintf("%d", row.Files),
			fmt.Sprintf("%d", row.Admitted),
		})
	}

	table.SetFooter([]string{fmt.Sprintf("Total Imports %d", len(rows)), "", "", "", ""})

	table.Render()

	return tableBuffer.String()
}
