// Package poison fails a program when a forbidden identifier appears in the
// calling source file or in any Go source it transitively imports.
//
// The typical use is a guard at the top of a file or in an init function:
//
//	import "gooze.dev/pkg/poison"
//
//	func init() {
//		poison.MustCheck("panic", "unsafe")
//	}
//
// Only identifier tokens count. Names inside strings and comments are never
// reported, and anything that is not a valid Go identifier is ignored. When no
// file is given, the file and line of the caller are used and only the lines
// after the call are scanned.
package poison

import (
	"context"
	"go/build"
	"log/slog"
	"path/filepath"
	"reflect"

	"gooze.dev/pkg/poison/internal/adapter"
	"gooze.dev/pkg/poison/internal/controller"
	"gooze.dev/pkg/poison/internal/domain"
	m "gooze.dev/pkg/poison/internal/model"
)

// ErrUsage is returned when no file was given and no calling source file could be found.
var ErrUsage = domain.ErrUsage

// ErrPoisoned matches every ViolationError through errors.Is.
var ErrPoisoned = domain.ErrViolation

// ViolationError reports the first forbidden identifier found. Use errors.As
// to inspect its name, file and line.
type ViolationError = domain.ViolationError

// ImportPath is the import path of this package. Imports of it are never
// followed, and its frames are never taken as the caller.
var ImportPath = reflect.TypeOf(Checker{}).PkgPath()

// Checker runs traversals with a fixed configuration. A Checker may be used
// from several goroutines; every Check call gets its own visited set.
type Checker struct {
	file            string
	wholeFile       bool
	recursive       bool
	ignoreInstalled bool
	stdlibRoot      string
	logger          *slog.Logger
	frames          adapter.FrameSource

	orchestrator domain.Orchestrator
}

// Option configures a Checker.
type Option func(*Checker)

// WithFile scans path from its first line instead of the calling file.
func WithFile(path string) Option {
	return func(c *Checker) {
		c.file = path
	}
}

// WithWholeFile scans the calling file from its first line instead of from
// the line after the call. Imports are declared above any call, so this is
// what makes an implicit check follow the caller's imports.
func WithWholeFile() Option {
	return func(c *Checker) {
		c.wholeFile = true
	}
}

// WithRecursive controls whether imports are followed. Defaults to true.
func WithRecursive(recursive bool) Option {
	return func(c *Checker) {
		c.recursive = recursive
	}
}

// WithIgnoreInstalled controls whether standard library sources are skipped.
// Defaults to true.
func WithIgnoreInstalled(ignore bool) Option {
	return func(c *Checker) {
		c.ignoreInstalled = ignore
	}
}

// WithStdlibRoot sets the directory treated as the standard library source
// root. Defaults to GOROOT/src.
func WithStdlibRoot(dir string) Option {
	return func(c *Checker) {
		c.stdlibRoot = dir
	}
}

// WithLogger sends traversal progress to logger at debug level. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// New returns a Checker configured by opts.
func New(opts ...Option) *Checker {
	c := &Checker{
		recursive:       true,
		ignoreInstalled: true,
		frames:          adapter.NewRuntimeFrameSource(),
	}

	if build.Default.GOROOT != "" {
		c.stdlibRoot = filepath.Join(build.Default.GOROOT, "src")
	}

	for _, opt := range opts {
		opt(c)
	}

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	goFileAdapter := adapter.NewLocalGoFileAdapter()

	c.orchestrator = domain.NewOrchestrator(
		domain.NewContextResolver(fsAdapter, c.frames, domain.DefaultIgnoreList(ImportPath)),
		domain.NewNameScanner(fsAdapter, goFileAdapter),
		domain.NewImportExtractor(fsAdapter, goFileAdapter),
		adapter.NewLocalImportResolver(fsAdapter),
		controller.NewLogProgress(c.logger),
	)

	return c
}

// Check scans for names and returns a *ViolationError at the first one found.
func (c *Checker) Check(ctx context.Context, names ...string) error {
	_, err := c.orchestrator.Traverse(ctx, domain.TraverseArgs{
		File:      m.Path(c.file),
		WholeFile: c.wholeFile,
		Names:     m.NewForbiddenNames(names...),
		Options: domain.Options{
			Recursive:       c.recursive,
			IgnoreInstalled: c.ignoreInstalled,
			StdlibRoot:      m.Path(c.stdlibRoot),
			SelfImports:     []string{ImportPath},
		},
	})

	return err
}

// Check scans the rest of the calling file, after the line of the call, and
// what it imports there.
func Check(names ...string) error {
	return New().Check(context.Background(), names...)
}

// CheckFile scans path and everything it imports.
func CheckFile(path string, names ...string) error {
	return New(WithFile(path)).Check(context.Background(), names...)
}

// MustCheck is like Check but panics on any error.
func MustCheck(names ...string) {
	if err := Check(names...); err != nil {
		panic(err)
	}
}
