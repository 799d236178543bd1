package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "gooze.dev/pkg/poison/internal/model"
)

// ReportFileName is the file written inside the reports directory.
const ReportFileName = "report.yaml"

// ReportStore persists traversal reports.
type ReportStore interface {
	SaveReports(ctx context.Context, dir m.Path, reports []m.Report) error
	LoadReports(ctx context.Context, dir m.Path) ([]m.Report, error)
}

type reportDocument struct {
	Version int        `yaml:"version"`
	Reports []m.Report `yaml:"reports"`
}

const reportDocumentVersion = 1

// YAMLReportStore stores reports as a single YAML document.
type YAMLReportStore struct{}

// NewReportStore constructs the default ReportStore.
func NewReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

// SaveReports writes reports to dir/report.yaml, creating dir when needed.
func (s *YAMLReportStore) SaveReports(ctx context.Context, dir m.Path, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	data, err := yaml.Marshal(reportDocument{Version: reportDocumentVersion, Reports: reports})
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}

	path := filepath.Join(string(dir), ReportFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	slog.Debug("saved reports", "path", path, "count", len(reports))

	return nil
}

// LoadReports reads dir/report.yaml.
func (s *YAMLReportStore) LoadReports(ctx context.Context, dir m.Path) ([]m.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(string(dir), ReportFileName)

	// #nosec G304 - the reports directory is chosen by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reports: %w", err)
	}

	var doc reportDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}

	if doc.Version != reportDocumentVersion {
		return nil, fmt.Errorf("unsupported report version %d", doc.Version)
	}

	return doc.Reports, nil
}
