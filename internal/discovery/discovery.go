// Package discovery walks source roots for declaration files and builds the
// declaration table.
//
// Units live in *_specs.go files. A top-level declaration becomes a unit when
// its doc comment carries a jaunt directive:
//
//	// Sum adds two values.
//	//
//	//jaunt:build deps=mathlib.core:Add
//	//jaunt:prompt keep it allocation free
//	func Sum(a, b int) int
//
// The module name is the file's root-relative path with separators replaced
// by dots and the _specs.go suffix stripped, e.g. proj/feature_specs.go
// declares units in module proj.feature.
package discovery

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/specs"
)

const fileSuffix = "_specs.go"

// Discover walks the given roots and returns the declaration table for one
// kind. Files whose name does not end in _specs.go are ignored. Duplicate
// references across files are an error.
func Discover(roots []string, kind specs.Kind) (specs.Table, error) {
	table := make(specs.Table)
	for _, root := range roots {
		if err := discoverRoot(root, kind, table); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func discoverRoot(root string, kind specs.Kind, table specs.Table) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(err, errors.CategoryDiscovery, "walk "+root)
		}
		if d.IsDir() {
			if name := d.Name(); name != "." && (strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), fileSuffix) {
			return nil
		}

		module, err := moduleName(root, path)
		if err != nil {
			return err
		}
		return parseFile(path, module, kind, table)
	})
}

// moduleName derives the dotted module name from the file's root-relative path.
func moduleName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryDiscovery, "relativize "+path)
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, fileSuffix))
	return strings.ReplaceAll(rel, "/", "."), nil
}

func parseFile(path, module string, kind specs.Kind, table specs.Table) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryDiscovery, "read "+path)
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return errors.Wrap(err, errors.CategoryDiscovery, "parse "+path)
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			dir, ok := parseDirectives(d.Doc, kind)
			if !ok {
				continue
			}
			qualname := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				if recv := receiverName(d.Recv.List[0].Type); recv != "" {
					qualname = recv + "." + qualname
				}
			}
			if err := addEntry(table, kind, module, qualname, path, declText(src, fset, d), dir); err != nil {
				return err
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE && d.Tok != token.VAR && d.Tok != token.CONST {
				continue
			}
			for _, spec := range d.Specs {
				doc := d.Doc
				var names []string
				switch sp := spec.(type) {
				case *ast.TypeSpec:
					if sp.Doc != nil {
						doc = sp.Doc
					}
					names = []string{sp.Name.Name}
				case *ast.ValueSpec:
					if sp.Doc != nil {
						doc = sp.Doc
					}
					for _, n := range sp.Names {
						names = append(names, n.Name)
					}
				}
				dir, ok := parseDirectives(doc, kind)
				if !ok {
					continue
				}
				for _, name := range names {
					if err := addEntry(table, kind, module, name, path, declText(src, fset, d), dir); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func addEntry(table specs.Table, kind specs.Kind, module, qualname, path, text string, dir directives) error {
	ref, err := specref.Make(module, qualname)
	if err != nil {
		return errors.Wrap(err, errors.CategoryDiscovery, "declaration in "+path)
	}
	if _, exists := table[ref]; exists {
		return errors.Newf(errors.CategoryDiscovery, "duplicate declaration %s in %s", ref, path)
	}
	table[ref] = specs.Entry{
		Kind:       kind,
		Ref:        ref,
		Module:     module,
		Qualname:   qualname,
		SourceFile: path,
		Text:       text,
		Prompt:     dir.prompt,
		Deps:       dir.deps,
		Infer:      dir.infer,
	}
	return nil
}

// declText is the source segment of the declaration including its doc comment.
func declText(src []byte, fset *token.FileSet, decl ast.Decl) string {
	start := decl.Pos()
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Doc != nil {
			start = d.Doc.Pos()
		}
	case *ast.GenDecl:
		if d.Doc != nil {
			start = d.Doc.Pos()
		}
	}
	return string(src[fset.Position(start).Offset:fset.Position(decl.End()).Offset])
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

type directives struct {
	deps   []string
	prompt string
	infer  *bool
}

// parseDirectives scans a doc comment for jaunt directives and reports
// whether the declaration is tagged for the requested kind.
func parseDirectives(doc *ast.CommentGroup, kind specs.Kind) (directives, bool) {
	var dir directives
	tagged := false
	if doc == nil {
		return dir, false
	}
	for _, c := range doc.List {
		line := strings.TrimPrefix(c.Text, "//")
		if !strings.HasPrefix(line, "jaunt:") {
			continue
		}
		line = strings.TrimPrefix(line, "jaunt:")

		switch {
		case line == string(kind) || strings.HasPrefix(line, string(kind)+" "):
			tagged = true
			for _, field := range strings.Fields(strings.TrimPrefix(line, string(kind))) {
				switch {
				case strings.HasPrefix(field, "deps="):
					for _, d := range strings.Split(strings.TrimPrefix(field, "deps="), ",") {
						if d = strings.TrimSpace(d); d != "" {
							dir.deps = append(dir.deps, d)
						}
					}
				case field == "infer=true":
					v := true
					dir.infer = &v
				case field == "infer=false":
					v := false
					dir.infer = &v
				}
			}
		case strings.HasPrefix(line, "prompt "):
			hint := strings.TrimSpace(strings.TrimPrefix(line, "prompt "))
			if dir.prompt == "" {
				dir.prompt = hint
			} else {
				dir.prompt += "\n" + hint
			}
		}
	}
	return dir, tagged
}
