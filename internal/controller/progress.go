package controller

import (
	"context"
	"log/slog"

	m "gooze.dev/pkg/poison/internal/model"
)

// LogProgress reports traversal progress to a slog logger at debug level.
type LogProgress struct {
	logger *slog.Logger
}

// NewLogProgress creates a LogProgress. A nil logger means slog.Default.
func NewLogProgress(logger *slog.Logger) *LogProgress {
	return &LogProgress{logger: logger}
}

func (p *LogProgress) log() *slog.Logger {
	if p.logger == nil {
		return slog.Default()
	}

	return p.logger
}

// DisplayFileClean logs a file found clean.
func (p *LogProgress) DisplayFileClean(ctx context.Context, path m.Path) {
	p.log().DebugContext(ctx, "file clean", "path", path)
}

// DisplayImports logs the imports retained for a file.
func (p *LogProgress) DisplayImports(ctx context.Context, path m.Path, imports m.ImportOccurrence) {
	p.log().DebugContext(ctx, "imports found", "path", path, "imports", imports.Names())
}

// DisplayResolution logs where an import resolved to.
func (p *LogProgress) DisplayResolution(ctx context.Context, resolution m.Resolution) {
	if !resolution.Resolved() {
		p.log().DebugContext(ctx, "import has no source", "import", resolution.ImportPath)
		return
	}

	p.log().DebugContext(ctx, "import resolved",
		"import", resolution.ImportPath,
		"origin", resolution.Origin,
		"files", len(resolution.Files))
}
