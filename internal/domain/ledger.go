package domain

import (
	"path/filepath"
	"strings"

	m "gooze.dev/pkg/poison/internal/model"
)

// Ledger records every source path admitted into one traversal. It only grows.
// A Ledger belongs to a single Session and is not safe for concurrent use.
type Ledger struct {
	admitted map[m.Path]struct{}
}

// NewLedger returns a ledger seeded with the no-source sentinels and seed.
func NewLedger(seed ...m.Path) *Ledger {
	l := &Ledger{admitted: map[m.Path]struct{}{
		m.OriginBuiltin: {},
		m.OriginFrozen:  {},
	}}

	for _, path := range seed {
		l.Mark(path)
	}

	return l
}

// Mark records path. Marking twice is a no-op.
func (l *Ledger) Mark(path m.Path) {
	l.admitted[path] = struct{}{}
}

// Contains reports whether path was admitted or marked.
func (l *Ledger) Contains(path m.Path) bool {
	_, ok := l.admitted[path]
	return ok
}

// Admit records path and reports true if it still needs scanning. Paths
// already present are refused, and so are paths under stdlibRoot when
// ignoreInstalled is set.
func (l *Ledger) Admit(path m.Path, ignoreInstalled bool, stdlibRoot m.Path) bool {
	if l.Contains(path) {
		return false
	}

	if ignoreInstalled && withinRoot(path, stdlibRoot) {
		return false
	}

	l.Mark(path)

	return true
}

// Len returns the number of recorded entries, sentinels included.
func (l *Ledger) Len() int {
	return len(l.admitted)
}

func withinRoot(path, root m.Path) bool {
	if root == "" {
		return false
	}

	rel, err := filepath.Rel(string(root), string(path))
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Options configures one traversal.
type Options struct {
	// Recursive enables import extraction and descent.
	Recursive bool
	// IgnoreInstalled refuses files under StdlibRoot.
	IgnoreInstalled bool
	// StdlibRoot is the standard library source root, usually GOROOT/src.
	StdlibRoot m.Path
	// SelfImports are import paths never descended into: the scanner's own.
	SelfImports []string
}

// Session is the state of one top-level traversal: the names being policed,
// its configuration and the ledger of admitted files.
type Session struct {
	Names   m.ForbiddenNames
	Options Options
	Ledger  *Ledger
	// Scanned lists files found clean, in scan order.
	Scanned []m.Path
}

// NewSession creates a session with a fresh ledger.
func NewSession(names m.ForbiddenNames, opts Options) *Session {
	return &Session{
		Names:   names,
		Options: opts,
		Ledger:  NewLedger(),
	}
}

func (s *Session) markClean(path m.Path) {
	s.Ledger.Mark(path)
	s.Scanned = append(s.Scanned, path)
}
