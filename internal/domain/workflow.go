package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gooze.dev/pkg/poison/internal/adapter"
	"gooze.dev/pkg/poison/internal/controller"
	m "gooze.dev/pkg/poison/internal/model"
)

// CheckArgs contains the arguments for checking a single target.
type CheckArgs struct {
	File    m.Path
	Names   []string
	Options Options
	// Reports is the directory the report is saved to. Empty disables saving.
	Reports m.Path
}

// AuditArgs contains the arguments for checking every source file under a set of paths.
type AuditArgs struct {
	Paths   []m.Path
	Exclude []string
	Names   []string
	Options Options
	Reports m.Path
	Threads int
}

// ImportsArgs contains the arguments for listing the imports of a file.
type ImportsArgs struct {
	File    m.Path
	Options Options
}

// ViewArgs contains the arguments for viewing saved reports.
type ViewArgs struct {
	Reports m.Path
	// Only keeps reports with this status. Empty keeps all.
	Only m.Status
}

// WatchArgs contains the arguments for re-running a check on file changes.
type WatchArgs struct {
	CheckArgs
	Debounce time.Duration
}

// Workflow defines the commands offered on top of the traversal orchestrator.
type Workflow interface {
	Check(ctx context.Context, args CheckArgs) error
	Audit(ctx context.Context, args AuditArgs) error
	Imports(ctx context.Context, args ImportsArgs) error
	View(ctx context.Context, args ViewArgs) error
	Watch(ctx context.Context, args WatchArgs) error
}

type workflow struct {
	adapter.ReportStore
	adapter.SourceFSAdapter
	controller.UI
	Orchestrator

	imports  ImportExtractor
	resolver adapter.ImportResolver
	watcher  adapter.FileWatcher
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	orchestrator Orchestrator,
	imports ImportExtractor,
	resolver adapter.ImportResolver,
	watcher adapter.FileWatcher,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		UI:              ui,
		Orchestrator:    orchestrator,
		imports:         imports,
		resolver:        resolver,
		watcher:         watcher,
	}
}

func (w *workflow) Check(ctx context.Context, args CheckArgs) error {
	if err := w.Start(ctx, controller.WithCheckMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	report, checkErr := w.checkTarget(ctx, args.File, args.Names, args.Options)
	w.DisplayReport(ctx, report)

	if err := w.saveReports(ctx, args.Reports, []m.Report{report}); err != nil {
		w.Close(ctx)
		return err
	}

	w.Wait(ctx)
	w.Close(ctx)

	return checkErr
}

func (w *workflow) Audit(ctx context.Context, args AuditArgs) error {
	threads := args.Threads
	if threads < 1 {
		threads = 1
	}

	targets, err := w.Sources(ctx, args.Paths, args.Exclude...)
	if err != nil {
		slog.Error("Failed to collect audit targets", "error", err)
		return fmt.Errorf("get sources: %w", err)
	}

	if err := w.Start(ctx, controller.WithAuditMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	w.DisplayTargets(ctx, targets, threads)

	reports := make([]m.Report, len(targets))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	for i, target := range targets {
		group.Go(func() error {
			// Each target gets its own session; a violation in one does not stop the others.
			report, _ := w.checkTarget(groupCtx, target, args.Names, args.Options)
			reports[i] = report
			w.DisplayReport(groupCtx, report)

			return groupCtx.Err()
		})
	}

	if err := group.Wait(); err != nil {
		w.Close(ctx)
		return err
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Target < reports[j].Target
	})

	if err := w.DisplaySummary(ctx, reports); err != nil {
		w.Close(ctx)
		slog.Error("Failed to display summary", "error", err)

		return fmt.Errorf("display: %w", err)
	}

	if err := w.saveReports(ctx, args.Reports, reports); err != nil {
		w.Close(ctx)
		return err
	}

	w.Wait(ctx)
	w.Close(ctx)

	return auditOutcome(reports)
}

func auditOutcome(reports []m.Report) error {
	violations, failures := 0, 0

	for _, report := range reports {
		switch report.Status {
		case m.StatusViolation:
			violations++
		case m.StatusError:
			failures++
		case m.StatusClean:
		}
	}

	if violations > 0 {
		return fmt.Errorf("%d of %d target(s) poisoned: %w", violations, len(reports), ErrViolation)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d target(s) could not be checked", failures, len(reports))
	}

	return nil
}

func (w *workflow) Imports(ctx context.Context, args ImportsArgs) error {
	file, err := w.Abs(ctx, args.File)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", args.File, err)
	}

	occurrences, err := w.imports.Extract(ctx, file)
	if err != nil {
		slog.Error("Failed to extract imports", "path", file, "error", err)
		return fmt.Errorf("extract imports: %w", err)
	}

	filtered := FilterImports(occurrences, 0, args.Options.SelfImports...)

	// Admission is simulated against a fresh ledger, as the first level of a
	// traversal from file would see it.
	ledger := NewLedger(file)
	rows := make([]controller.ImportRow, 0, len(filtered))

	for _, name := range filtered.Names() {
		resolution, err := w.resolver.Resolve(ctx, name, file)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", name, err)
		}

		row := controller.ImportRow{
			ImportPath: name,
			Lines:      filtered.Lines(name),
			Origin:     resolution.Origin,
			Files:      len(resolution.Files),
		}

		for _, source := range resolution.Files {
			if ledger.Admit(source, args.Options.IgnoreInstalled, args.Options.StdlibRoot) {
				row.Admitted++
			}
		}

		rows = append(rows, row)
	}

	if err := w.Start(ctx, controller.WithImportsMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplayImportTable(ctx, file, rows); err != nil {
		w.Close(ctx)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	reports, err := w.LoadReports(ctx, args.Reports)
	if err != nil {
		slog.Error("Failed to load reports", "path", args.Reports, "error", err)
		return fmt.Errorf("load reports: %w", err)
	}

	if args.Only != "" {
		kept := reports[:0]

		for _, report := range reports {
			if report.Status == args.Only {
				kept = append(kept, report)
			}
		}

		reports = kept
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplaySummary(ctx, reports); err != nil {
		w.Close(ctx)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

// Watch checks args.File, then re-checks every time one of the files scanned
// by the previous run changes content. It returns when ctx is done.
func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	if err := w.Start(ctx, controller.WithCheckMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(ctx)

	for {
		report, _ := w.checkTarget(ctx, args.File, args.Names, args.Options)
		if ctx.Err() != nil {
			return nil
		}

		w.DisplayReport(ctx, report)

		if err := w.saveReports(ctx, args.Reports, []m.Report{report}); err != nil {
			return err
		}

		if err := w.waitForContentChange(ctx, report, args.Debounce); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}

			return err
		}
	}
}

func (w *workflow) waitForContentChange(ctx context.Context, report m.Report, debounce time.Duration) error {
	known := make(map[m.Path]string, len(report.Files)+1)
	for _, file := range report.Files {
		known[file.Path] = file.Hash
	}

	if report.Violation != nil {
		if _, ok := known[report.Violation.File]; !ok {
			known[report.Violation.File] = ""
		}
	}

	if len(known) == 0 {
		known[report.Target] = ""
	}

	watched := make([]m.Path, 0, len(known))
	for path := range known {
		watched = append(watched, path)
	}

	sort.Slice(watched, func(i, j int) bool { return watched[i] < watched[j] })

	for {
		changed, err := w.watcher.WaitForChange(ctx, watched, debounce)
		if err != nil {
			return err
		}

		for _, path := range changed {
			hash, err := w.HashFile(ctx, path)
			if err != nil || hash != known[path] {
				slog.Info("watched file changed", "path", path)
				return nil
			}
		}

		slog.Debug("ignoring change without content difference", "files", len(changed))
	}
}

// checkTarget runs one top-level traversal and turns its outcome into a report.
// The returned error is the traversal error, if any.
func (w *workflow) checkTarget(ctx context.Context, target m.Path, names []string, opts Options) (m.Report, error) {
	forbidden := m.NewForbiddenNames(names...)
	report := m.Report{
		Target: target,
		Names:  forbidden.Sorted(),
		Status: m.StatusClean,
	}

	session, err := w.Traverse(ctx, TraverseArgs{
		File:    target,
		Names:   forbidden,
		Options: opts,
	})
	if session != nil {
		report.Files = w.hashFiles(ctx, session.Scanned)
	}

	var violation *ViolationError

	switch {
	case err == nil:
	case errors.As(err, &violation):
		report.Status = m.StatusViolation
		report.Violation = &violation.Violation
	default:
		report.Status = m.StatusError
		report.Error = err.Error()
	}

	return report, err
}

func (w *workflow) hashFiles(ctx context.Context, paths []m.Path) []m.File {
	files := make([]m.File, 0, len(paths))

	for _, path := range paths {
		hash, err := w.HashFile(ctx, path)
		if err != nil {
			slog.Debug("failed to hash scanned file", "path", path, "error", err)
		}

		files = append(files, m.File{Path: path, Hash: hash})
	}

	return files
}

func (w *workflow) saveReports(ctx context.Context, dir m.Path, reports []m.Report) error {
	if dir == "" {
		return nil
	}

	if err := w.SaveReports(ctx, dir, reports); err != nil {
		slog.Error("Failed to save reports", "path", dir, "error", err)
		return fmt.Errorf("save reports: %w", err)
	}

	return nil
}
