package domain

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gooze.dev/pkg/poison/internal/adapter"
	m "gooze.dev/pkg/poison/internal/model"
)

// stubResolver maps import paths to fixed resolutions regardless of the importing file.
type stubResolver struct {
	resolutions map[string]m.Resolution
	err         error
}

func (r *stubResolver) Resolve(_ context.Context, importPath string, _ m.Path) (m.Resolution, error) {
	if r.err != nil {
		return m.Resolution{}, r.err
	}

	resolution, ok := r.resolutions[importPath]
	if !ok {
		return m.Resolution{ImportPath: importPath}, nil
	}

	resolution.ImportPath = importPath

	return resolution, nil
}

type recordingProgress struct {
	mu         sync.Mutex
	clean      []m.Path
	unresolved []string
}

func (p *recordingProgress) DisplayFileClean(_ context.Context, path m.Path) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clean = append(p.clean, path)
}

func (p *recordingProgress) DisplayImports(context.Context, m.Path, m.ImportOccurrence) {}

func (p *recordingProgress) DisplayResolution(_ context.Context, resolution m.Resolution) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !resolution.Resolved() {
		p.unresolved = append(p.unresolved, resolution.ImportPath)
	}
}

type orchestratorFixture struct {
	dir      string
	frames   adapter.StaticFrameSource
	resolver *stubResolver
	progress *recordingProgress
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()

	return &orchestratorFixture{
		dir:      t.TempDir(),
		resolver: &stubResolver{resolutions: map[string]m.Resolution{}},
		progress: &recordingProgress{},
	}
}

// pkg writes a one-file package and registers it under importPath.
func (f *orchestratorFixture) pkg(t *testing.T, importPath, content string) m.Path {
	t.Helper()

	file := writeSource(t, f.dir, filepath.Join(filepath.FromSlash(importPath), "pkg.go"), content)
	f.resolver.resolutions[importPath] = m.Resolution{
		Origin: m.Path(filepath.Dir(string(file))),
		Files:  []m.Path{file},
	}

	return file
}

func (f *orchestratorFixture) orchestrator() Orchestrator {
	fsAdapter := adapter.NewLocalSourceFSAdapter()
	goFileAdapter := adapter.NewLocalGoFileAdapter()

	return NewOrchestrator(
		NewContextResolver(fsAdapter, f.frames, IgnoreList{}),
		NewNameScanner(fsAdapter, goFileAdapter),
		NewImportExtractor(fsAdapter, goFileAdapter),
		f.resolver,
		f.progress,
	)
}

func recursive() Options {
	return Options{Recursive: true}
}

func TestOrchestrator_CleanCycle(t *testing.T) {
	f := newOrchestratorFixture(t)
	a := f.pkg(t, "example.com/a", "package a\n\nimport _ \"example.com/b\"\n")
	b := f.pkg(t, "example.com/b", "package b\n\nimport _ \"example.com/a\"\n")

	session, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:    a,
		Names:   m.NewForbiddenNames("panic"),
		Options: recursive(),
	})
	require.NoError(t, err)

	assert.Equal(t, []m.Path{a, b}, session.Scanned)
	assert.Equal(t, []m.Path{a, b}, f.progress.clean)
}

func TestOrchestrator_ViolationInImport(t *testing.T) {
	f := newOrchestratorFixture(t)
	main := writeSource(t, f.dir, "main.go", "package main\n\nimport \"example.com/b\"\n\nfunc main() { b.Run() }\n")
	b := f.pkg(t, "example.com/b", "package b\n\nfunc Run() {\n\tpanic(\"no\")\n}\n")

	session, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:    main,
		Names:   m.NewForbiddenNames("panic"),
		Options: recursive(),
	})

	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	assert.ErrorIs(t, err, ErrViolation)
	assert.Equal(t, m.Violation{Name: "panic", File: b, Line: 4, Column: 2}, violation.Violation)
	assert.Equal(t, []m.Path{main}, session.Scanned)
}

func TestOrchestrator_ViolationInTarget(t *testing.T) {
	f := newOrchestratorFixture(t)
	main := writeSource(t, f.dir, "main.go", "package main\n\nimport \"os\"\n\nfunc main() { os.Exit(1) }\n")

	session, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:    main,
		Names:   m.NewForbiddenNames("Exit"),
		Options: recursive(),
	})

	require.ErrorIs(t, err, ErrViolation)
	assert.Empty(t, session.Scanned)
}

func TestOrchestrator_UnresolvedAndSentinelImports(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.resolver.resolutions["unsafe"] = m.Resolution{Origin: m.OriginBuiltin}
	f.resolver.resolutions["example.com/asm"] = m.Resolution{Origin: m.OriginFrozen}

	main := writeSource(t, f.dir, "main.go", `package main

import (
	_ "example.com/asm"
	_ "example.com/missing"
	_ "unsafe"
)
`)

	session, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:    main,
		Names:   m.NewForbiddenNames("panic"),
		Options: recursive(),
	})
	require.NoError(t, err)

	assert.Equal(t, []m.Path{main}, session.Scanned)
	assert.Equal(t, []string{"example.com/missing"}, f.progress.unresolved)
	assert.Equal(t, 3, session.Ledger.Len())
}

func TestOrchestrator_IgnoreInstalled(t *testing.T) {
	f := newOrchestratorFixture(t)
	stdlibRoot := m.Path(filepath.Join(f.dir, "goroot", "src"))
	fmtFile := writeSource(t, string(stdlibRoot), filepath.Join("fmt", "print.go"), "package fmt\n\nfunc Println() { panic(0) }\n")
	f.resolver.resolutions["fmt"] = m.Resolution{Origin: m.Path(filepath.Dir(string(fmtFile))), Files: []m.Path{fmtFile}}

	main := writeSource(t, f.dir, "main.go", "package main\n\nimport \"fmt\"\n")

	args := TraverseArgs{
		File:  main,
		Names: m.NewForbiddenNames("panic"),
		Options: Options{
			Recursive:       true,
			IgnoreInstalled: true,
			StdlibRoot:      stdlibRoot,
		},
	}

	session, err := f.orchestrator().Traverse(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, []m.Path{main}, session.Scanned)

	args.Options.IgnoreInstalled = false

	_, err = f.orchestrator().Traverse(context.Background(), args)
	require.ErrorIs(t, err, ErrViolation)
}

func TestOrchestrator_NonRecursive(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.pkg(t, "example.com/b", "package b\n\nfunc Run() { panic(1) }\n")
	main := writeSource(t, f.dir, "main.go", "package main\n\nimport _ \"example.com/b\"\n")

	session, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:  main,
		Names: m.NewForbiddenNames("panic"),
	})
	require.NoError(t, err)
	assert.Equal(t, []m.Path{main}, session.Scanned)
}

func TestOrchestrator_MultiFilePackageScannedOncePerFile(t *testing.T) {
	f := newOrchestratorFixture(t)
	one := writeSource(t, f.dir, filepath.Join("lib", "one.go"), "package lib\n")
	two := writeSource(t, f.dir, filepath.Join("lib", "two.go"), "package lib\n\nimport _ \"example.com/lib\"\n")
	f.resolver.resolutions["example.com/lib"] = m.Resolution{
		Origin: m.Path(filepath.Join(f.dir, "lib")),
		Files:  []m.Path{one, two},
	}

	main := writeSource(t, f.dir, "main.go", "package main\n\nimport _ \"example.com/lib\"\n\nvar _ = 1\n")

	session, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:    main,
		Names:   m.NewForbiddenNames("panic"),
		Options: recursive(),
	})
	require.NoError(t, err)
	assert.Equal(t, []m.Path{main, one, two}, session.Scanned)
}

func TestOrchestrator_SelfImportsNotDescended(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.pkg(t, "example.com/poison", "package poison\n\nfunc Check() { panic(1) }\n")
	main := writeSource(t, f.dir, "main.go", "package main\n\nimport _ \"example.com/poison\"\n")

	opts := recursive()
	opts.SelfImports = []string{"example.com/poison"}

	_, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:    main,
		Names:   m.NewForbiddenNames("panic"),
		Options: opts,
	})
	require.NoError(t, err)
}

func TestOrchestrator_ImplicitCallerSkipsEarlierImports(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.pkg(t, "example.com/b", "package b\n\nfunc Run() { panic(1) }\n")
	main := writeSource(t, f.dir, "main.go", `package main

import "example.com/b"

func main() {
	b.Run()
	check()
}
`)
	f.frames = adapter.StaticFrameSource{{Function: "main.main", File: main, Line: 7}}

	args := TraverseArgs{
		Names:   m.NewForbiddenNames("panic", "Run"),
		Options: recursive(),
	}

	session, err := f.orchestrator().Traverse(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, []m.Path{main}, session.Scanned)

	args.WholeFile = true

	_, err = f.orchestrator().Traverse(context.Background(), args)

	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, main, violation.Violation.File)
	assert.Equal(t, 6, violation.Violation.Line)
}

func TestOrchestrator_NoCaller(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{Names: m.NewForbiddenNames("panic")})
	require.ErrorIs(t, err, ErrUsage)
}

func TestOrchestrator_ResolverError(t *testing.T) {
	f := newOrchestratorFixture(t)
	f.resolver.err = errors.New("module cache unreadable")
	main := writeSource(t, f.dir, "main.go", "package main\n\nimport _ \"example.com/b\"\n")

	session, err := f.orchestrator().Traverse(context.Background(), TraverseArgs{
		File:    main,
		Names:   m.NewForbiddenNames("panic"),
		Options: recursive(),
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrViolation)
	assert.Contains(t, err.Error(), "module cache unreadable")
	assert.Equal(t, []m.Path{main}, session.Scanned)
}

func TestOrchestrator_Cancelled(t *testing.T) {
	f := newOrchestratorFixture(t)
	main := writeSource(t, f.dir, "main.go", "package main\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session, err := f.orchestrator().Traverse(ctx, TraverseArgs{
		File:    main,
		Names:   m.NewForbiddenNames("panic"),
		Options: recursive(),
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, session.Scanned)
}
