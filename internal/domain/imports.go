package domain

import (
	"context"
	"fmt"
	"go/token"

	"gooze.dev/pkg/poison/internal/adapter"
	m "gooze.dev/pkg/poison/internal/model"
)

// ImportExtractor collects the imports of a source file.
type ImportExtractor interface {
	// Extract parses path and returns every import it declares, in any scope,
	// with file-absolute line numbers.
	Extract(ctx context.Context, path m.Path) (m.ImportOccurrence, error)
}

type importExtractor struct {
	fsAdapter     adapter.SourceFSAdapter
	goFileAdapter adapter.GoFileAdapter
}

// NewImportExtractor constructs an ImportExtractor.
func NewImportExtractor(fsAdapter adapter.SourceFSAdapter, goFileAdapter adapter.GoFileAdapter) ImportExtractor {
	return &importExtractor{
		fsAdapter:     fsAdapter,
		goFileAdapter: goFileAdapter,
	}
}

func (e *importExtractor) Extract(ctx context.Context, path m.Path) (m.ImportOccurrence, error) {
	src, err := e.fsAdapter.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fileSet := token.NewFileSet()

	file, err := e.goFileAdapter.Parse(ctx, fileSet, string(path), src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return ExtractImports(e.goFileAdapter.ExtractScopes(fileSet, file)), nil
}

// ExtractImports walks root and every scope reachable from it. Each scope is
// walked at most once; identity, not structure, decides what was seen.
func ExtractImports(root *m.Scope) m.ImportOccurrence {
	imports := make(m.ImportOccurrence)
	if root == nil {
		return imports
	}

	visited := map[*m.Scope]struct{}{root: {}}
	walkScope(root, imports, visited)

	return imports
}

func walkScope(scope *m.Scope, imports m.ImportOccurrence, visited map[*m.Scope]struct{}) {
	for _, spec := range scope.Imports {
		imports.Add(spec.Path, spec.Line)
	}

	for _, child := range scope.Children {
		if child == nil {
			continue
		}

		if _, ok := visited[child]; ok {
			continue
		}

		visited[child] = struct{}{}

		nested := make(m.ImportOccurrence)
		walkScope(child, nested, visited)
		imports.Merge(nested)
	}
}

// FilterImports drops the scanner's own packages and every import line at or
// before startLine. Imports left without lines are removed. The input is not
// modified.
func FilterImports(imports m.ImportOccurrence, startLine int, self ...string) m.ImportOccurrence {
	excluded := make(map[string]struct{}, len(self))
	for _, name := range self {
		excluded[name] = struct{}{}
	}

	filtered := make(m.ImportOccurrence, len(imports))

	for name, lines := range imports {
		if _, ok := excluded[name]; ok {
			continue
		}

		for line := range lines {
			if line > startLine {
				filtered.Add(name, line)
			}
		}
	}

	return filtered
}
