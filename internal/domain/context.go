package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"

	"gooze.dev/pkg/poison/internal/adapter"
	m "gooze.dev/pkg/poison/internal/model"
)

// runtimePackage owns program bootstrap frames (runtime.main, runtime.doInit,
// runtime.goexit) that never count as a caller.
const runtimePackage = "runtime"

// ContextResolver determines which file to scan and from which line.
type ContextResolver interface {
	// Resolve returns (file, 0) for an explicit file. Otherwise it returns the
	// file and line of the first caller frame outside the ignore list, with the
	// start line forced to 0 when wholeFile is set.
	Resolve(ctx context.Context, file m.Path, wholeFile bool) (m.ScanContext, error)
}

// IgnoreList names the frames that belong to the scanner itself.
type IgnoreList struct {
	Files    []m.Path
	Packages []string
}

// DefaultIgnoreList ignores the runtime, the scanner's own packages and any
// extra package paths (typically the public API package).
func DefaultIgnoreList(extraPackages ...string) IgnoreList {
	packages := []string{
		runtimePackage,
		reflect.TypeOf(contextResolver{}).PkgPath(),
		reflect.TypeOf(adapter.RuntimeFrameSource{}).PkgPath(),
	}

	return IgnoreList{Packages: append(packages, extraPackages...)}
}

type contextResolver struct {
	fsAdapter    adapter.SourceFSAdapter
	frames       adapter.FrameSource
	ignoredFiles map[m.Path]struct{}
	ignoredPkgs  map[string]struct{}
}

// NewContextResolver constructs a ContextResolver reading the stack from frames.
func NewContextResolver(fsAdapter adapter.SourceFSAdapter, frames adapter.FrameSource, ignore IgnoreList) ContextResolver {
	r := &contextResolver{
		fsAdapter:    fsAdapter,
		frames:       frames,
		ignoredFiles: make(map[m.Path]struct{}, len(ignore.Files)),
		ignoredPkgs:  make(map[string]struct{}, len(ignore.Packages)),
	}

	for _, file := range ignore.Files {
		r.ignoredFiles[m.Path(filepath.Clean(string(file)))] = struct{}{}
	}

	for _, pkg := range ignore.Packages {
		r.ignoredPkgs[pkg] = struct{}{}
	}

	return r
}

func (r *contextResolver) Resolve(ctx context.Context, file m.Path, wholeFile bool) (m.ScanContext, error) {
	if file != "" {
		abs, err := r.fsAdapter.Abs(ctx, file)
		if err != nil {
			return m.ScanContext{}, fmt.Errorf("resolve %s: %w", file, err)
		}

		return m.ScanContext{Path: abs}, nil
	}

	for _, frame := range r.frames.Frames() {
		if r.ignored(frame) {
			continue
		}

		sc := m.ScanContext{
			Path:      m.Path(filepath.Clean(filepath.FromSlash(string(frame.File)))),
			StartLine: frame.Line,
		}
		if wholeFile {
			sc.StartLine = 0
		}

		slog.Debug("resolved scan context from caller", "file", sc.Path, "line", frame.Line, "function", frame.Function)

		return sc, nil
	}

	return m.ScanContext{}, ErrUsage
}

func (r *contextResolver) ignored(frame m.Frame) bool {
	if frame.File == "" {
		return true
	}

	if _, ok := r.ignoredFiles[m.Path(filepath.Clean(string(frame.File)))]; ok {
		return true
	}

	_, ok := r.ignoredPkgs[functionPackage(frame.Function)]

	return ok
}

// functionPackage extracts the import path from a fully qualified function
// name such as "example.com/pkg.(*T).Method.func1". The runtime escapes dots
// in the last path element as %2e.
func functionPackage(function string) string {
	slash := strings.LastIndex(function, "/")

	dot := strings.Index(function[slash+1:], ".")
	if dot < 0 {
		return function
	}

	return strings.ReplaceAll(function[:slash+1+dot], "%2e", ".")
}
