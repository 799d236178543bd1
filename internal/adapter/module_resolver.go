package adapter

import (
	"context"
	"errors"
	"fmt"
	"go/build"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	m "gooze.dev/pkg/poison/internal/model"
)

// ImportResolver maps an import path, as seen from a given source file, to the
// Go source files that implement it.
type ImportResolver interface {
	Resolve(ctx context.Context, importPath string, fromFile m.Path) (m.Resolution, error)
}

// builtinPackages have no inspectable Go source.
var builtinPackages = map[string]struct{}{
	"C":      {},
	"unsafe": {},
}

// moduleInfo is the subset of a go.mod file the resolver needs.
type moduleInfo struct {
	root     string
	path     string
	requires map[string]string
	replaces []*modfile.Replace
}

// LocalImportResolver resolves imports against GOROOT, the nearest go.mod of the
// importing file and the module cache, without invoking the go command.
type LocalImportResolver struct {
	fs       SourceFSAdapter
	goroot   string
	modCache string
	build    build.Context

	mu      sync.Mutex
	modules map[string]*moduleInfo
}

// ResolverOption customises a LocalImportResolver.
type ResolverOption func(*LocalImportResolver)

// WithGOROOT overrides the toolchain root used for standard library lookups.
func WithGOROOT(goroot string) ResolverOption {
	return func(r *LocalImportResolver) {
		r.goroot = goroot
		r.build.GOROOT = goroot
	}
}

// WithModCache overrides the module cache directory.
func WithModCache(dir string) ResolverOption {
	return func(r *LocalImportResolver) {
		r.modCache = dir
	}
}

// NewLocalImportResolver constructs a resolver using the default build context.
func NewLocalImportResolver(fs SourceFSAdapter, opts ...ResolverOption) *LocalImportResolver {
	r := &LocalImportResolver{
		fs:       fs,
		goroot:   build.Default.GOROOT,
		modCache: defaultModCache(),
		build:    build.Default,
		modules:  make(map[string]*moduleInfo),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func defaultModCache() string {
	if dir := os.Getenv("GOMODCACHE"); dir != "" {
		return dir
	}

	gopath := filepath.SplitList(build.Default.GOPATH)
	if len(gopath) == 0 || gopath[0] == "" {
		return ""
	}

	return filepath.Join(gopath[0], "pkg", "mod")
}

// Resolve returns the package directory and Go files of importPath, a sentinel
// origin for packages without Go source, or an empty Resolution when nothing
// on disk corresponds to the import.
func (r *LocalImportResolver) Resolve(ctx context.Context, importPath string, fromFile m.Path) (m.Resolution, error) {
	if err := ctx.Err(); err != nil {
		return m.Resolution{}, err
	}

	resolution := m.Resolution{ImportPath: importPath}

	if _, ok := builtinPackages[importPath]; ok {
		resolution.Origin = m.OriginBuiltin
		return resolution, nil
	}

	dir, err := r.locate(ctx, importPath, fromFile)
	if err != nil {
		return resolution, err
	}

	if dir == "" {
		slog.Debug("import has no source on disk", "import", importPath, "from", fromFile)
		return resolution, nil
	}

	files, err := r.goFiles(dir)
	if err != nil {
		var noGo *build.NoGoError
		if errors.As(err, &noGo) {
			resolution.Origin = m.OriginFrozen
			return resolution, nil
		}

		return resolution, fmt.Errorf("list go files of %s: %w", dir, err)
	}

	resolution.Origin = m.Path(dir)
	resolution.Files = files

	return resolution, nil
}

func (r *LocalImportResolver) locate(ctx context.Context, importPath string, fromFile m.Path) (string, error) {
	if isStandardImport(importPath) {
		if dir := existingDir(filepath.Join(r.goroot, "src", filepath.FromSlash(importPath))); dir != "" {
			return dir, nil
		}
	}

	mod, err := r.moduleFor(ctx, fromFile)
	if err != nil {
		return "", err
	}

	if mod != nil {
		if dir := r.locateInModule(mod, importPath); dir != "" {
			return dir, nil
		}
	}

	return r.locateInCache(importPath), nil
}

func (r *LocalImportResolver) locateInModule(mod *moduleInfo, importPath string) string {
	if dir := existingDir(filepath.Join(mod.root, "vendor", filepath.FromSlash(importPath))); dir != "" {
		return dir
	}

	if rest, ok := trimModulePrefix(importPath, mod.path); ok {
		if dir := existingDir(filepath.Join(mod.root, filepath.FromSlash(rest))); dir != "" {
			return dir
		}
	}

	for _, rep := range mod.replaces {
		rest, ok := trimModulePrefix(importPath, rep.Old.Path)
		if !ok {
			continue
		}

		if rep.New.Version == "" {
			base := rep.New.Path
			if !filepath.IsAbs(base) {
				base = filepath.Join(mod.root, base)
			}

			if dir := existingDir(filepath.Join(base, filepath.FromSlash(rest))); dir != "" {
				return dir
			}

			continue
		}

		if dir := r.cacheDir(rep.New.Path, rep.New.Version, rest); dir != "" {
			return dir
		}
	}

	best := ""
	for modPath := range mod.requires {
		if _, ok := trimModulePrefix(importPath, modPath); ok && len(modPath) > len(best) {
			best = modPath
		}
	}

	if best != "" {
		rest, _ := trimModulePrefix(importPath, best)
		if dir := r.cacheDir(best, mod.requires[best], rest); dir != "" {
			return dir
		}
	}

	return ""
}

// locateInCache tries every path prefix of importPath as a module path and
// picks the highest cached version that contains the package.
func (r *LocalImportResolver) locateInCache(importPath string) string {
	if r.modCache == "" {
		return ""
	}

	elems := strings.Split(importPath, "/")
	for i := len(elems); i > 0; i-- {
		modPath := strings.Join(elems[:i], "/")
		rest := strings.Join(elems[i:], "/")

		for _, version := range r.cachedVersions(modPath) {
			if dir := r.cacheDir(modPath, version, rest); dir != "" {
				return dir
			}
		}
	}

	return ""
}

// cachedVersions lists the versions of modPath present in the module cache,
// highest first.
func (r *LocalImportResolver) cachedVersions(modPath string) []string {
	escaped, err := module.EscapePath(modPath)
	if err != nil {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(r.modCache, filepath.FromSlash(escaped)+"@*"))
	if err != nil {
		return nil
	}

	versions := make([]string, 0, len(matches))

	for _, match := range matches {
		at := strings.LastIndex(match, "@")
		version, err := module.UnescapeVersion(match[at+1:])
		if err != nil || !semver.IsValid(version) {
			continue
		}

		versions = append(versions, version)
	}

	sort.Slice(versions, func(i, j int) bool {
		return semver.Compare(versions[i], versions[j]) > 0
	})

	return versions
}

func (r *LocalImportResolver) cacheDir(modPath, version, rest string) string {
	if r.modCache == "" {
		return ""
	}

	escapedPath, err := module.EscapePath(modPath)
	if err != nil {
		return ""
	}

	escapedVersion, err := module.EscapeVersion(version)
	if err != nil {
		return ""
	}

	dir := filepath.Join(r.modCache, filepath.FromSlash(escapedPath)+"@"+escapedVersion, filepath.FromSlash(rest))

	return existingDir(dir)
}

// moduleFor returns the parsed go.mod governing fromFile, or nil when the file
// is outside any module.
func (r *LocalImportResolver) moduleFor(ctx context.Context, fromFile m.Path) (*moduleInfo, error) {
	root, err := r.fs.FindProjectRoot(ctx, fromFile)
	if errors.Is(err, ErrNoProjectRoot) {
		slog.Debug("file is outside any module", "path", fromFile)
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("find module of %s: %w", fromFile, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if mod, ok := r.modules[string(root)]; ok {
		return mod, nil
	}

	goModPath := filepath.Join(string(root), "go.mod")

	data, err := r.fs.ReadFile(ctx, m.Path(goModPath))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", goModPath, err)
	}

	// Dependencies in the module cache are read like the go command reads them,
	// without their replace and exclude directives.
	parse := modfile.Parse
	if r.inModCache(string(root)) {
		parse = modfile.ParseLax
	}

	file, err := parse(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", goModPath, err)
	}

	mod := &moduleInfo{
		root:     string(root),
		requires: make(map[string]string, len(file.Require)),
		replaces: file.Replace,
	}

	if file.Module != nil {
		mod.path = file.Module.Mod.Path
	}

	for _, req := range file.Require {
		mod.requires[req.Mod.Path] = req.Mod.Version
	}

	r.modules[string(root)] = mod

	slog.Debug("loaded module", "root", mod.root, "module", mod.path, "requires", len(mod.requires))

	return mod, nil
}

func (r *LocalImportResolver) inModCache(dir string) bool {
	if r.modCache == "" {
		return false
	}

	rel, err := filepath.Rel(r.modCache, dir)

	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// goFiles lists the buildable Go sources of dir under the resolver's build context.
func (r *LocalImportResolver) goFiles(dir string) ([]m.Path, error) {
	pkg, err := r.build.ImportDir(dir, 0)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(pkg.GoFiles)+len(pkg.CgoFiles))
	names = append(names, pkg.GoFiles...)
	names = append(names, pkg.CgoFiles...)
	sort.Strings(names)

	files := make([]m.Path, 0, len(names))
	for _, name := range names {
		files = append(files, m.Path(filepath.Join(dir, name)))
	}

	return files, nil
}

// isStandardImport follows the go command's rule: standard library paths have
// no dot in their first element.
func isStandardImport(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}

func trimModulePrefix(importPath, modPath string) (string, bool) {
	if modPath == "" {
		return "", false
	}

	if importPath == modPath {
		return "", true
	}

	if strings.HasPrefix(importPath, modPath+"/") {
		return strings.TrimPrefix(importPath, modPath+"/"), true
	}

	return "", false
}

func existingDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	return dir
}
