package adapter

import (
	"context"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "gooze.dev/pkg/poison/internal/model"
)

const scopedSource = `package sample

import (
	"fmt"
	str "strings"
)

import "os"

func init() {
	fmt.Println("init")
}

func Run() {
	f := func() {
		g := func() {}
		g()
	}
	f()
	_ = str.ToUpper(os.Args[0])
}

func (s *T) Method() {}

type T struct{}
`

func TestLocalGoFileAdapter_Parse(t *testing.T) {
	adapter := NewLocalGoFileAdapter()
	fset := token.NewFileSet()

	file, err := adapter.Parse(context.Background(), fset, "sample.go", []byte(scopedSource))
	require.NoError(t, err)
	assert.Equal(t, "sample", file.Name.Name)
}

func TestLocalGoFileAdapter_Parse_InvalidSource(t *testing.T) {
	adapter := NewLocalGoFileAdapter()
	fset := token.NewFileSet()

	_, err := adapter.Parse(context.Background(), fset, "broken.go", []byte("package foo\n func"))
	require.Error(t, err)
}

func TestLocalGoFileAdapter_Parse_ContextCancellation(t *testing.T) {
	adapter := NewLocalGoFileAdapter()
	fset := token.NewFileSet()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := adapter.Parse(ctx, fset, "example.go", []byte("package main\n func main() {}"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalGoFileAdapter_ExtractScopes(t *testing.T) {
	adapter := NewLocalGoFileAdapter()
	fset := token.NewFileSet()

	file, err := adapter.Parse(context.Background(), fset, "sample.go", []byte(scopedSource))
	require.NoError(t, err)

	root := adapter.ExtractScopes(fset, file)

	assert.Equal(t, m.ScopeFile, root.Type)
	assert.Equal(t, []m.ImportSpec{
		{Path: "fmt", Line: 4},
		{Path: "strings", Line: 5},
		{Path: "os", Line: 8},
	}, root.Imports)

	require.Len(t, root.Children, 3)

	initScope := root.Children[0]
	assert.Equal(t, m.ScopeInit, initScope.Type)
	assert.Equal(t, 10, initScope.StartLine)
	assert.Equal(t, 12, initScope.EndLine)

	run := root.Children[1]
	assert.Equal(t, m.ScopeFunction, run.Type)
	assert.Equal(t, "Run", run.Name)
	require.Len(t, run.Children, 1)

	closure := run.Children[0]
	assert.Equal(t, m.ScopeClosure, closure.Type)
	assert.Equal(t, 15, closure.StartLine)
	require.Len(t, closure.Children, 1)
	assert.Equal(t, m.ScopeClosure, closure.Children[0].Type)
	assert.Equal(t, 16, closure.Children[0].StartLine)

	method := root.Children[2]
	assert.Equal(t, m.ScopeFunction, method.Type)
	assert.Equal(t, "Method", method.Name)
}

func TestLocalGoFileAdapter_ScanIdentifiers(t *testing.T) {
	src := `package p

// panic in a comment
var s = "panic in a string"
var r = 'p'

func f() {
	panic(s)
}
`

	adapter := NewLocalGoFileAdapter()

	type ident struct {
		name string
		line int
	}

	var got []ident

	err := adapter.ScanIdentifiers(context.Background(), "p.go", []byte(src), func(name string, pos token.Position) bool {
		got = append(got, ident{name: name, line: pos.Line})
		return true
	})
	require.NoError(t, err)

	assert.Equal(t, []ident{
		{"p", 1},
		{"s", 4},
		{"r", 5},
		{"f", 7},
		{"panic", 8},
		{"s", 8},
	}, got)
}

func TestLocalGoFileAdapter_ScanIdentifiers_Stops(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	calls := 0
	err := adapter.ScanIdentifiers(context.Background(), "p.go", []byte("package p\nvar a, b, c int\n"), func(name string, _ token.Position) bool {
		calls++
		return name != "a"
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLocalGoFileAdapter_ScanIdentifiers_ToleratesBrokenSource(t *testing.T) {
	adapter := NewLocalGoFileAdapter()

	var names []string
	err := adapter.ScanIdentifiers(context.Background(), "p.go", []byte("package p\n@@ x := \"unterminated\n"), func(name string, _ token.Position) bool {
		names = append(names, name)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "x"}, names)
}
