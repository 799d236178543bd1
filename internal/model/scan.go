package model

import (
	"go/token"
	"sort"
)

// ScanContext identifies what to scan and from where. Lines up to and
// including StartLine are out of scope.
type ScanContext struct {
	Path      Path
	StartLine int
}

// ForbiddenNames is the set of identifiers policed by one traversal.
type ForbiddenNames map[string]struct{}

// NewForbiddenNames builds a name set, silently dropping anything that is not
// a Go identifier (including keywords).
func NewForbiddenNames(names ...string) ForbiddenNames {
	set := make(ForbiddenNames, len(names))

	for _, name := range names {
		if !token.IsIdentifier(name) {
			continue
		}

		set[name] = struct{}{}
	}

	return set
}

// Has reports whether name is forbidden.
func (f ForbiddenNames) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Sorted returns the names in lexical order.
func (f ForbiddenNames) Sorted() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ImportOccurrence maps an import path to the set of 1-based, file-absolute
// lines where it is imported.
type ImportOccurrence map[string]map[int]struct{}

// Add records an import of name on line.
func (o ImportOccurrence) Add(name string, line int) {
	lines, ok := o[name]
	if !ok {
		lines = make(map[int]struct{})
		o[name] = lines
	}

	lines[line] = struct{}{}
}

// Merge folds other into o.
func (o ImportOccurrence) Merge(other ImportOccurrence) {
	for name, lines := range other {
		for line := range lines {
			o.Add(name, line)
		}
	}
}

// Names returns the import paths in lexical order.
func (o ImportOccurrence) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Lines returns the recorded lines of name in ascending order.
func (o ImportOccurrence) Lines(name string) []int {
	lines := make([]int, 0, len(o[name]))
	for line := range o[name] {
		lines = append(lines, line)
	}

	sort.Ints(lines)

	return lines
}

// Violation is a forbidden identifier found in a scanned file.
type Violation struct {
	Name   string `yaml:"name"`
	File   Path   `yaml:"file"`
	Line   int    `yaml:"line"`
	Column int    `yaml:"column,omitempty"`
}

const (
	// OriginBuiltin marks packages that are compiled into the toolchain.
	OriginBuiltin Path = "built-in"
	// OriginFrozen marks packages whose directory carries no buildable Go source.
	OriginFrozen Path = "frozen"
)

// Resolution is the outcome of mapping an import path to source files.
// An empty Origin means the import has no inspectable source.
type Resolution struct {
	ImportPath string
	Origin     Path
	Files      []Path
}

// Resolved reports whether the import mapped to anything at all.
func (r Resolution) Resolved() bool {
	return r.Origin != ""
}

// Sentinel reports whether Origin is one of the no-source markers.
func (r Resolution) Sentinel() bool {
	return r.Origin == OriginBuiltin || r.Origin == OriginFrozen
}
