package domain

import (
	"context"
	"fmt"
	"go/token"

	"gooze.dev/pkg/poison/internal/adapter"
	m "gooze.dev/pkg/poison/internal/model"
)

// NameScanner finds the first forbidden identifier token of a file.
type NameScanner interface {
	// ScanNames returns the first forbidden identifier found after
	// sc.StartLine, or nil when the rest of the file is clean.
	ScanNames(ctx context.Context, sc m.ScanContext, names m.ForbiddenNames) (*m.Violation, error)
}

type nameScanner struct {
	fsAdapter     adapter.SourceFSAdapter
	goFileAdapter adapter.GoFileAdapter
}

// NewNameScanner constructs a NameScanner.
func NewNameScanner(fsAdapter adapter.SourceFSAdapter, goFileAdapter adapter.GoFileAdapter) NameScanner {
	return &nameScanner{
		fsAdapter:     fsAdapter,
		goFileAdapter: goFileAdapter,
	}
}

func (s *nameScanner) ScanNames(ctx context.Context, sc m.ScanContext, names m.ForbiddenNames) (*m.Violation, error) {
	src, err := s.fsAdapter.ReadFile(ctx, sc.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sc.Path, err)
	}

	if len(names) == 0 {
		return nil, nil
	}

	var violation *m.Violation

	// The whole file is tokenized so that strings and comments opened before
	// the start line keep their meaning; tokens up to StartLine are ignored.
	err = s.goFileAdapter.ScanIdentifiers(ctx, string(sc.Path), src, func(name string, pos token.Position) bool {
		if pos.Line <= sc.StartLine || !names.Has(name) {
			return true
		}

		violation = &m.Violation{
			Name:   name,
			File:   sc.Path,
			Line:   pos.Line,
			Column: pos.Column,
		}

		return false
	})
	if err != nil {
		return nil, fmt.Errorf("tokenize %s: %w", sc.Path, err)
	}

	return violation, nil
}
