// Package controller provides output adapters for displaying scan progress and results.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	m "gooze.dev/pkg/poison/internal/model"
	"golang.org/x/term"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeCheck StartMode = iota
	ModeAudit
	ModeImports
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithCheckMode sets the UI to single-target check mode.
func WithCheckMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCheck
	}
}

// WithAuditMode sets the UI to multi-target audit mode.
func WithAuditMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeAudit
	}
}

// WithImportsMode sets the UI to import listing mode.
func WithImportsMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeImports
	}
}

// WithViewMode sets the UI to report viewing mode.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

// ImportRow describes how one import of a file resolves.
type ImportRow struct {
	ImportPath string
	Lines      []int
	Origin     m.Path
	Files      int
	Admitted   int
}

// Progress receives advisory status messages from a running traversal.
// Implementations must be safe for concurrent use.
type Progress interface {
	DisplayFileClean(ctx context.Context, path m.Path)
	DisplayImports(ctx context.Context, path m.Path, imports m.ImportOccurrence)
	DisplayResolution(ctx context.Context, resolution m.Resolution)
}

// UI defines the interface for displaying scan progress and results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Progress
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayTargets(ctx context.Context, targets []m.Path, threads int)
	DisplayReport(ctx context.Context, report m.Report)
	DisplaySummary(ctx context.Context, reports []m.Report) error
	DisplayImportTable(ctx context.Context, path m.Path, rows []ImportRow) error
}

// NewUI returns a TUI when writing to a terminal and a SimpleUI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
