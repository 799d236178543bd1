package domain

import (
	"context"
	"fmt"
	"log/slog"

	"gooze.dev/pkg/poison/internal/adapter"
	"gooze.dev/pkg/poison/internal/controller"
	m "gooze.dev/pkg/poison/internal/model"
)

// TraverseArgs describes one top-level traversal.
type TraverseArgs struct {
	// File is the explicit target. When empty the caller's file is found on the stack.
	File m.Path
	// WholeFile scans an implicitly found file from its first line.
	WholeFile bool
	Names     m.ForbiddenNames
	Options   Options
}

// Orchestrator drives the scan-then-descend traversal over the import graph.
type Orchestrator interface {
	// Traverse checks the target and, when recursive, every file it transitively
	// imports. The returned session is valid even when an error is returned and
	// lists what was found clean before the traversal stopped.
	Traverse(ctx context.Context, args TraverseArgs) (*Session, error)
}

type orchestrator struct {
	contexts ContextResolver
	names    NameScanner
	imports  ImportExtractor
	resolver adapter.ImportResolver
	progress controller.Progress
}

// NewOrchestrator constructs an Orchestrator from its collaborators.
func NewOrchestrator(
	contexts ContextResolver,
	names NameScanner,
	imports ImportExtractor,
	resolver adapter.ImportResolver,
	progress controller.Progress,
) Orchestrator {
	return &orchestrator{
		contexts: contexts,
		names:    names,
		imports:  imports,
		resolver: resolver,
		progress: progress,
	}
}

func (o *orchestrator) Traverse(ctx context.Context, args TraverseArgs) (*Session, error) {
	session := NewSession(args.Names, args.Options)

	err := o.traverse(ctx, session, args.File, args.WholeFile)
	if err != nil {
		return session, err
	}

	return session, nil
}

func (o *orchestrator) traverse(ctx context.Context, session *Session, file m.Path, wholeFile bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sc, err := o.contexts.Resolve(ctx, file, wholeFile)
	if err != nil {
		return err
	}

	violation, err := o.names.ScanNames(ctx, sc, session.Names)
	if err != nil {
		slog.Error("Failed to scan file", "path", sc.Path, "error", err)
		return err
	}

	if violation != nil {
		slog.Info("poisoned name found", "name", violation.Name, "path", violation.File, "line", violation.Line)
		return &ViolationError{Violation: *violation}
	}

	o.progress.DisplayFileClean(ctx, sc.Path)
	session.markClean(sc.Path)

	if !session.Options.Recursive {
		return nil
	}

	occurrences, err := o.imports.Extract(ctx, sc.Path)
	if err != nil {
		slog.Error("Failed to extract imports", "path", sc.Path, "error", err)
		return err
	}

	filtered := FilterImports(occurrences, sc.StartLine, session.Options.SelfImports...)
	o.progress.DisplayImports(ctx, sc.Path, filtered)

	for _, name := range filtered.Names() {
		if err := o.descend(ctx, session, sc.Path, name); err != nil {
			return err
		}
	}

	return nil
}

func (o *orchestrator) descend(ctx context.Context, session *Session, from m.Path, importPath string) error {
	resolution, err := o.resolver.Resolve(ctx, importPath, from)
	if err != nil {
		slog.Error("Failed to resolve import", "import", importPath, "from", from, "error", err)
		return fmt.Errorf("resolve %q from %s: %w", importPath, from, err)
	}

	o.progress.DisplayResolution(ctx, resolution)

	if !resolution.Resolved() {
		slog.Debug("skipping import without source", "import", importPath)
		return nil
	}

	if resolution.Sentinel() {
		// Seeded in every ledger, so this is always refused.
		session.Ledger.Admit(resolution.Origin, session.Options.IgnoreInstalled, session.Options.StdlibRoot)
		return nil
	}

	for _, file := range resolution.Files {
		if !session.Ledger.Admit(file, session.Options.IgnoreInstalled, session.Options.StdlibRoot) {
			slog.Debug("skipping already visited or installed file", "path", file)
			continue
		}

		if err := o.traverse(ctx, session, file, false); err != nil {
			return err
		}
	}

	return nil
}
