package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/poison/internal/model"
)

func TestYAMLReportStore_SaveAndLoad(t *testing.T) {
	store := NewReportStore()
	dir := m.Path(filepath.Join(t.TempDir(), "nested", "reports"))

	reports := []m.Report{
		{
			Target: "a.go",
			Names:  []string{"panic"},
			Status: m.StatusViolation,
			Violation: &m.Violation{
				Name: "panic", File: "/src/b.go", Line: 7, Column: 2,
			},
			Files: []m.File{{Path: "/src/a.go", Hash: "abc"}},
		},
		{
			Target: "c.go",
			Names:  []string{"exit"},
			Status: m.StatusError,
			Error:  "parse c.go: boom",
		},
	}

	require.NoError(t, store.SaveReports(context.Background(), dir, reports))

	data, err := os.ReadFile(filepath.Join(string(dir), ReportFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 1")
	assert.Contains(t, string(data), "status: violation")

	loaded, err := store.LoadReports(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, reports, loaded)
}

func TestYAMLReportStore_LoadMissing(t *testing.T) {
	_, err := NewReportStore().LoadReports(context.Background(), m.Path(t.TempDir()))
	require.Error(t, err)
}

func TestYAMLReportStore_RejectsUnknownVersion(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, ReportFileName), "version: 99\nreports: []\n")

	_, err := NewReportStore().LoadReports(context.Background(), m.Path(dir))
	require.ErrorContains(t, err, "unsupported report version")
}
