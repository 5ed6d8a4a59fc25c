package controllers

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlersCarrySwaggerBlocks(t *testing.T) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, ".", func(fi fs.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, parser.ParseComments)
	require.NoError(t, err)

	handlers := 0
	for _, pkg := range pkgs {
		for _, file := range pkg.Files {
			for _, decl := range file.Decls {
				fn, ok := decl.(*ast.FuncDecl)
				if !ok || fn.Recv == nil || !fn.Name.IsExported() || !isHandler(fn) {
					continue
				}
				handlers++
				doc := fn.Doc.Text()
				for _, tag := range []string{fn.Name.Name + " godoc", "@Summary", "@Tags", "@Success", "@Router"} {
					assert.Contains(t, doc, tag, "%s is missing %s", fn.Name.Name, tag)
				}
			}
		}
	}
	assert.Greater(t, handlers, 30)
}

// isHandler matches func(c *fiber.Ctx) error.
func isHandler(fn *ast.FuncDecl) bool {
	params := fn.Type.Params.List
	if len(params) != 1 || fn.Type.Results == nil || len(fn.Type.Results.List) != 1 {
		return false
	}
	star, ok := params[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	sel, ok := star.X.(*ast.SelectorExpr)
	return ok && sel.Sel.Name == "Ctx"
}
