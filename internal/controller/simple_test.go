package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	m "gooze.dev/pkg/poison/internal/model"
)

func newTestSimpleUI(t *testing.T, options ...StartOption) (*SimpleUI, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	ui := NewSimpleUI(cmd)
	require.NoError(t, ui.Start(context.Background(), options...))

	return ui, &buf
}

func TestSimpleUI_ProgressOnlyInCheckMode(t *testing.T) {
	ctx := context.Background()
	imports := make(m.ImportOccurrence)
	imports.Add("os", 3)
	imports.Add("fmt", 4)

	ui, buf := newTestSimpleUI(t, WithCheckMode())
	ui.DisplayFileClean(ctx, "main.go")
	ui.DisplayImports(ctx, "main.go", imports)
	ui.DisplayImports(ctx, "empty.go", make(m.ImportOccurrence))
	ui.DisplayResolution(ctx, m.Resolution{ImportPath: "example.com/gone"})
	ui.DisplayResolution(ctx, m.Resolution{ImportPath: "fmt", Origin: "/go/src/fmt"})

	assert.Equal(t,
		"  clean    main.go\n"+
			"  imports  main.go: fmt, os\n"+
			"  skipped  example.com/gone (no source)\n",
		buf.String())

	ui, buf = newTestSimpleUI(t, WithAuditMode())
	ui.DisplayFileClean(ctx, "main.go")
	ui.DisplayImports(ctx, "main.go", imports)
	ui.DisplayResolution(ctx, m.Resolution{ImportPath: "example.com/gone"})

	assert.Empty(t, buf.String())
}

func TestSimpleUI_StartCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui := NewSimpleUI(&cobra.Command{})
	require.ErrorIs(t, ui.Start(ctx), context.Canceled)
	require.ErrorIs(t, ui.DisplaySummary(ctx, nil), context.Canceled)
	require.ErrorIs(t, ui.DisplayImportTable(ctx, "main.go", nil), context.Canceled)
}

func TestSimpleUI_DisplayReport(t *testing.T) {
	ctx := context.Background()
	ui, buf := newTestSimpleUI(t, WithAuditMode())

	ui.DisplayTargets(ctx, []m.Path{"a.go", "b.go", "c.go"}, 2)
	ui.DisplayReport(ctx, m.Report{Target: "a.go", Status: m.StatusClean, Files: []m.File{{Path: "a.go"}, {Path: "lib.go"}}})
	ui.DisplayReport(ctx, m.Report{
		Target:    "b.go",
		Status:    m.StatusViolation,
		Violation: &m.Violation{Name: "panic", File: "lib.go", Line: 12},
	})
	ui.DisplayReport(ctx, m.Report{Target: "c.go", Status: m.StatusError, Error: "read c.go: permission denied"})

	assert.Equal(t,
		"Checking 3 target(s) with 2 worker(s)\n"+
			"CLEAN    a.go (2 file(s) scanned)\n"+
			"POISONED b.go: \"panic\" in lib.go on line 12\n"+
			"ERROR    c.go: read c.go: permission denied\n",
		buf.String())
}

func TestSimpleUI_DisplaySummary(t *testing.T) {
	ui, buf := newTestSimpleUI(t, WithViewMode())

	err := ui.DisplaySummary(context.Background(), []m.Report{
		{Target: "cmd/a.go", Status: m.StatusClean, Files: []m.File{{Path: "cmd/a.go"}}},
		{Target: "cmd/b.go", Status: m.StatusViolation, Violation: &m.Violation{Name: "exit", File: "lib/x.go", Line: 3}},
		{Target: "cmd/c.go", Status: m.StatusError, Error: "boom"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "cmd/a.go")
	assert.Contains(t, out, `"exit" at lib/x.go:3`)
	assert.Contains(t, out, "boom")

	upper := strings.ToUpper(out)
	assert.Contains(t, upper, "TARGET")
	assert.Contains(t, upper, "TOTAL TARGETS 3")
	assert.Contains(t, upper, "2 NOT CLEAN")
}

func TestSimpleUI_DisplayImportTable(t *testing.T) {
	ui, buf := newTestSimpleUI(t, WithImportsMode())

	err := ui.DisplayImportTable(context.Background(), "main.go", []ImportRow{
		{ImportPath: "fmt", Lines: []int{3, 17}, Origin: "/go/src/fmt", Files: 4, Admitted: 0},
		{ImportPath: "example.com/gone", Lines: []int{4}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Imports of main.go\n\n"))
	assert.Contains(t, out, "3,17")
	assert.Contains(t, out, "/go/src/fmt")
	assert.Contains(t, out, "(none)")
	assert.Contains(t, strings.ToUpper(out), "TOTAL IMPORTS 2")
}

func TestReportDetail(t *testing.T) {
	assert.Empty(t, reportDetail(m.Report{Status: m.StatusClean}))
	assert.Empty(t, reportDetail(m.Report{Status: m.StatusViolation}))
	assert.Equal(t, "oops", reportDetail(m.Report{Status: m.StatusError, Error: "oops"}))
	assert.Equal(t, "POISONED x.go", reportLine(m.Report{Target: "x.go", Status: m.StatusViolation}))
}

func TestNewUI(t *testing.T) {
	cmd := &cobra.Command{}

	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
	assert.IsType(t, &TUI{}, NewUI(cmd, true))
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestLogProgress_NilLogger(t *testing.T) {
	ctx := context.Background()
	progress := NewLogProgress(nil)

	assert.NotPanics(t, func() {
		progress.DisplayFileClean(ctx, "main.go")
		progress.DisplayImports(ctx, "main.go", make(m.ImportOccurrence))
		progress.DisplayResolution(ctx, m.Resolution{ImportPath: "fmt", Origin: "/go/src/fmt"})
		progress.DisplayResolution(ctx, m.Resolution{ImportPath: "example.com/gone"})
	})
}
