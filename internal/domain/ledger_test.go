package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	m "gooze.dev/pkg/poison/internal/model"
)

func TestNewLedger_SeedsSentinels(t *testing.T) {
	ledger := NewLedger("/src/app/main.go")

	assert.True(t, ledger.Contains(m.OriginBuiltin))
	assert.True(t, ledger.Contains(m.OriginFrozen))
	assert.True(t, ledger.Contains("/src/app/main.go"))
	assert.Equal(t, 3, ledger.Len())

	assert.False(t, ledger.Admit(m.OriginBuiltin, false, ""))
	assert.False(t, ledger.Admit(m.OriginFrozen, false, ""))
}

func TestLedger_AdmitOnce(t *testing.T) {
	ledger := NewLedger()

	assert.True(t, ledger.Admit("/src/lib/a.go", false, ""))
	assert.False(t, ledger.Admit("/src/lib/a.go", false, ""))
	assert.True(t, ledger.Contains("/src/lib/a.go"))

	ledger.Mark("/src/lib/a.go")
	assert.Equal(t, 3, ledger.Len())
}

func TestLedger_IgnoreInstalled(t *testing.T) {
	root := filepath.FromSlash("/usr/local/go/src")
	inside := m.Path(filepath.Join(root, "fmt", "print.go"))
	sibling := m.Path(filepath.FromSlash("/usr/local/go/srcx/fmt.go"))
	outside := m.Path(filepath.FromSlash("/home/dev/app/main.go"))

	ledger := NewLedger()

	assert.False(t, ledger.Admit(inside, true, m.Path(root)))
	assert.False(t, ledger.Contains(inside), "refused installed files are not recorded")
	assert.True(t, ledger.Admit(sibling, true, m.Path(root)))
	assert.True(t, ledger.Admit(outside, true, m.Path(root)))

	// Without the flag the same file is admitted.
	assert.True(t, ledger.Admit(inside, false, m.Path(root)))
}

func TestLedger_IgnoreInstalledWithoutRoot(t *testing.T) {
	ledger := NewLedger()

	assert.True(t, ledger.Admit("/usr/local/go/src/fmt/print.go", true, ""))
}

func TestNewSession(t *testing.T) {
	names := m.NewForbiddenNames("panic")
	opts := Options{Recursive: true}

	session := NewSession(names, opts)
	session.markClean("/src/app/main.go")
	session.markClean("/src/app/util.go")

	assert.Equal(t, names, session.Names)
	assert.Equal(t, opts, session.Options)
	assert.Equal(t, []m.Path{"/src/app/main.go", "/src/app/util.go"}, session.Scanned)
	assert.True(t, session.Ledger.Contains("/src/app/main.go"))
	assert.False(t, session.Ledger.Admit("/src/app/util.go", false, ""))
}

func TestViolationError(t *testing.T) {
	err := &ViolationError{Violation: m.Violation{Name: "panic", File: "/src/app/main.go", Line: 7}}

	assert.ErrorIs(t, err, ErrViolation)
	assert.NotErrorIs(t, err, ErrUsage)
	assert.Equal(t, `poisoned name "panic" found in /src/app/main.go on line 7`, err.Error())
}
