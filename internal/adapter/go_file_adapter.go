package adapter

import (
	"context"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"

	m "gooze.dev/pkg/poison/internal/model"
)

// IdentFunc receives every identifier token of a file in source order.
// Returning false stops the scan.
type IdentFunc func(name string, pos token.Position) bool

// GoFileAdapter encapsulates Go-specific tokenizing, parsing and
// scope-detection logic so the domain layer can focus on traversal rules while
// delegating compiler details to an infrastructure component.
type GoFileAdapter interface {
	// Parse builds an AST using the provided file set and optional source bytes.
	Parse(ctx context.Context, fileSet *token.FileSet, filename string, src []byte) (*ast.File, error)

	// ExtractScopes builds the scope tree of a parsed file: the file scope
	// holding the import declarations, functions and nested closures below it.
	ExtractScopes(fileSet *token.FileSet, file *ast.File) *m.Scope

	// ScanIdentifiers tokenizes src and reports each identifier token.
	// Identifiers inside strings, runes and comments are never reported.
	ScanIdentifiers(ctx context.Context, filename string, src []byte, fn IdentFunc) error
}

// LocalGoFileAdapter provides a concrete GoFileAdapter backed by go/parser
// and go/scanner.
type LocalGoFileAdapter struct{}

// NewLocalGoFileAdapter constructs a LocalGoFileAdapter.
func NewLocalGoFileAdapter() *LocalGoFileAdapter {
	return &LocalGoFileAdapter{}
}

// Parse builds an AST for the provided filename/source pair.
func (a *LocalGoFileAdapter) Parse(ctx context.Context, fileSet *token.FileSet, filename string, src []byte) (*ast.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return parser.ParseFile(fileSet, filename, src, parser.SkipObjectResolution)
}

// ExtractScopes walks the AST and records one scope per function body.
func (a *LocalGoFileAdapter) ExtractScopes(fileSet *token.FileSet, file *ast.File) *m.Scope {
	root := &m.Scope{
		Type:      m.ScopeFile,
		Name:      file.Name.Name,
		StartLine: fileSet.Position(file.Pos()).Line,
		EndLine:   fileSet.Position(file.End()).Line,
	}

	for _, spec := range file.Imports {
		if spec.Path == nil {
			continue
		}

		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}

		root.Imports = append(root.Imports, m.ImportSpec{
			Path: path,
			Line: fileSet.Position(spec.Path.Pos()).Line,
		})
	}

	a.collectScopes(fileSet, file, root)

	return root
}

// collectScopes attaches every function scope found under node to parent and
// descends into each function body with that function as the new parent.
func (a *LocalGoFileAdapter) collectScopes(fileSet *token.FileSet, node ast.Node, parent *m.Scope) {
	ast.Inspect(node, func(n ast.Node) bool {
		var (
			scope *m.Scope
			body  *ast.BlockStmt
		)

		switch fn := n.(type) {
		case *ast.FuncDecl:
			scopeType := m.ScopeFunction
			if fn.Recv == nil && fn.Name.Name == "init" {
				scopeType = m.ScopeInit
			}

			scope = &m.Scope{Type: scopeType, Name: fn.Name.Name}
			body = fn.Body
		case *ast.FuncLit:
			scope = &m.Scope{Type: m.ScopeClosure, Name: parent.Name + ".func"}
			body = fn.Body
		default:
			return true
		}

		scope.StartLine = fileSet.Position(n.Pos()).Line
		scope.EndLine = fileSet.Position(n.End()).Line
		parent.Children = append(parent.Children, scope)

		if body != nil {
			a.collectScopes(fileSet, body, scope)
		}

		return false
	})
}

// ScanIdentifiers runs go/scanner over src. Malformed input is tolerated:
// the scanner recovers and continues, and identifiers are still reported.
func (a *LocalGoFileAdapter) ScanIdentifiers(ctx context.Context, filename string, src []byte, fn IdentFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fileSet := token.NewFileSet()
	file := fileSet.AddFile(filename, -1, len(src))

	var s scanner.Scanner

	s.Init(file, src, nil, 0)

	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			return nil
		}

		if tok != token.IDENT {
			continue
		}

		if !fn(lit, fileSet.Position(pos)) {
			return nil
		}
	}
}
