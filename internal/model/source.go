// Package model defines the data structures shared by the scanner layers.
package model

// Path represents a file system path.
type Path string

// ScopeType identifies the kind of a node in a file's scope tree.
type ScopeType string

const (
	// ScopeFile is the root scope of a source file. Import declarations live here.
	ScopeFile ScopeType = "file"

	// ScopeInit represents init() functions.
	ScopeInit ScopeType = "init"

	// ScopeFunction represents regular function and method bodies.
	ScopeFunction ScopeType = "function"

	// ScopeClosure represents function literals nested in another scope.
	ScopeClosure ScopeType = "closure"
)

// ImportSpec is a single import declared directly inside a scope.
type ImportSpec struct {
	Path string
	Line int
}

// Scope is one node of a parsed file's scope tree. Children are shared by
// pointer, so the same node may be reachable more than once.
type Scope struct {
	Type      ScopeType
	Name      string
	StartLine int
	EndLine   int
	Imports   []ImportSpec
	Children  []*Scope
}

// File represents a scanned source file.
type File struct {
	Path Path   `yaml:"path"`
	Hash string `yaml:"hash,omitempty"`
}

// Frame is a single entry of the active call stack.
type Frame struct {
	Function string
	File     Path
	Line     int
}
