// Package validation structurally checks generated Go source: it must parse,
// and it must define every expected name. Results are human-readable
// error strings suitable for retry prompts; validation itself never fails.
package validation

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"

	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// ValidateGeneratedSource parses source and verifies the expected names
// exist: top-level functions, types, consts and vars by name, methods as
// receiver-qualified "Type.Method". An empty result means valid.
func ValidateGeneratedSource(source string, expectedNames []string) []string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "generated.go", source, parser.SkipObjectResolution)
	if err != nil {
		return syntaxErrors(err)
	}

	defined := sets.New[string]()
	for _, d := range file.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			if decl.Recv == nil {
				defined.Add(decl.Name.Name)
			} else if recv := receiverTypeName(decl.Recv); recv != "" {
				defined.Add(recv + "." + decl.Name.Name)
			}
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					defined.Add(s.Name.Name)
				case *ast.ValueSpec:
					for _, ident := range s.Names {
						defined.Add(ident.Name)
					}
				}
			}
		}
	}

	var errs []string
	for _, name := range expectedNames {
		if !defined.Has(name) {
			errs = append(errs, "Missing top-level definition: "+name)
		}
	}
	return errs
}

// receiverTypeName resolves the base type name of a method receiver,
// unwrapping pointers and type parameters.
func receiverTypeName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	return baseTypeName(recv.List[0].Type)
}

func baseTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return baseTypeName(t.X)
	case *ast.IndexExpr:
		return baseTypeName(t.X)
	case *ast.IndexListExpr:
		return baseTypeName(t.X)
	}
	return ""
}

// syntaxErrors keeps formatting stable and readable for retry prompts.
func syntaxErrors(err error) []string {
	if list, ok := err.(scanner.ErrorList); ok {
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, fmt.Sprintf("SyntaxError: %s (line %d:%d)", e.Msg, e.Pos.Line, e.Pos.Column))
		}
		return out
	}
	return []string{"SyntaxError: " + err.Error()}
}
