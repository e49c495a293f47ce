package deps

import (
	"fmt"
	"go/ast"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/specs"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// inferDeps proposes additional edges for entry by static analysis of its
// source file. It resolves, in order: imported package selectors, bare
// same-module sibling names, multi-level selector chains against known
// import aliases, and one level of re-export indirection. It never fails;
// anything it cannot resolve yields no edge, optionally surfacing a warning.
func inferDeps(entry specs.Entry, table specs.Table, cache *ParseCache, roots []string, warnings *[]string) sets.Set[specref.Ref] {
	inferred := sets.New[specref.Ref]()

	parsed := cache.Parse(entry.SourceFile)
	if parsed == nil {
		return inferred
	}
	decl := findDecl(parsed.file, entry.Qualname)
	if decl == nil {
		return inferred
	}

	var c nameCollector
	c.names = sets.New[string]()
	ast.Inspect(decl, c.visit)

	// Bare names: same-module sibling resolution.
	for name := range c.names {
		if candidate, err := specref.Make(entry.Module, name); err == nil {
			if _, known := table[candidate]; known && candidate != entry.Ref {
				inferred.Add(candidate)
			}
		}
	}

	// Selector chains rooted at an import alias.
	for _, chain := range c.chains {
		module, ok := parsed.importAliases[chain.root]
		if !ok {
			continue
		}

		if len(chain.attrs) == 1 {
			attr := chain.attrs[0]
			candidate, err := specref.Make(module, attr)
			if err != nil {
				continue
			}
			if _, known := table[candidate]; known && candidate != entry.Ref {
				inferred.Add(candidate)
				continue
			}
			// One level of re-export indirection.
			if target := resolveReexport(module, attr, roots, cache); target != "" {
				if _, known := table[target]; known && target != entry.Ref {
					inferred.Add(target)
					continue
				}
			}
			if warnings != nil {
				*warnings = append(*warnings, fmt.Sprintf(
					"unresolved inferred dep: %s uses %s.%s but it is not a known spec",
					string(entry.Ref), chain.root, attr))
			}
			continue
		}

		// Multi-level chains: for [sub, inner, Foo] with module "pkg", try
		// pkg.sub.inner:Foo, then pkg.sub:inner.Foo, then pkg:sub.inner.Foo.
		for split := len(chain.attrs) - 1; split >= 0; split-- {
			modPart := module
			if split > 0 {
				modPart = module + "." + strings.Join(chain.attrs[:split], ".")
			}
			qualPart := strings.Join(chain.attrs[split:], ".")
			candidate, err := specref.Make(modPart, qualPart)
			if err != nil {
				continue
			}
			if _, known := table[candidate]; known && candidate != entry.Ref {
				inferred.Add(candidate)
				break
			}
		}
	}

	return inferred
}

type selectorChain struct {
	root  string
	attrs []string
}

type nameCollector struct {
	names  sets.Set[string]
	chains []selectorChain
}

func (c *nameCollector) visit(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.SelectorExpr:
		if root, attrs, ok := flattenSelector(node); ok {
			c.chains = append(c.chains, selectorChain{root: root, attrs: attrs})
			return false
		}
	case *ast.Ident:
		c.names.Add(node.Name)
	}
	return true
}

// flattenSelector walks a selector chain and returns its root identifier
// plus the attribute path, e.g. pkg.Sub.Thing -> ("pkg", [Sub, Thing]).
func flattenSelector(sel *ast.SelectorExpr) (string, []string, bool) {
	attrs := []string{sel.Sel.Name}
	current := sel.X
	for {
		inner, ok := current.(*ast.SelectorExpr)
		if !ok {
			break
		}
		attrs = append([]string{inner.Sel.Name}, attrs...)
		current = inner.X
	}
	if ident, ok := current.(*ast.Ident); ok {
		return ident.Name, attrs, true
	}
	return "", nil, false
}

// findDecl locates the declaration named by qualname in a file. Dotted
// qualnames resolve methods ("Type.Method"); plain names match top-level
// functions, types, and values.
func findDecl(file *ast.File, qualname string) ast.Node {
	recv, name, isMethod := strings.Cut(qualname, ".")
	if !isMethod {
		name = qualname
		recv = ""
	}

	for _, d := range file.Decls {
		switch decl := d.(type) {
		case *ast.FuncDecl:
			if isMethod {
				if decl.Name.Name == name && receiverType(decl) == recv {
					return decl
				}
				continue
			}
			if decl.Recv == nil && decl.Name.Name == name {
				return decl
			}
		case *ast.GenDecl:
			if isMethod {
				continue
			}
			for _, spec := range decl.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Name.Name == name {
						return s
					}
				case *ast.ValueSpec:
					for _, ident := range s.Names {
						if ident.Name == name {
							return s
						}
					}
				}
			}
		}
	}
	return nil
}

func receiverType(decl *ast.FuncDecl) string {
	if decl.Recv == nil || len(decl.Recv.List) == 0 {
		return ""
	}
	t := decl.Recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	if ident, ok := t.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// resolveReexport follows one level of re-export: an alias declaration
// (type Name = other.Target or var Name = other.Target) in the package
// directory of module under one of the source roots.
func resolveReexport(module, name string, roots []string, cache *ParseCache) specref.Ref {
	rel := filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))
	for _, root := range roots {
		dir := filepath.Join(root, rel)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, de := range entries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".go") || strings.HasSuffix(de.Name(), "_test.go") {
				continue
			}
			parsed := cache.Parse(filepath.Join(dir, de.Name()))
			if parsed == nil {
				continue
			}
			if target := reexportTarget(parsed, name); target != "" {
				return target
			}
		}
	}
	return ""
}

// reexportTarget finds "type Name = pkg.Target" or "var Name = pkg.Target"
// in parsed and resolves pkg through the file's imports.
func reexportTarget(parsed *parsedFile, name string) specref.Ref {
	resolve := func(expr ast.Expr) specref.Ref {
		sel, ok := expr.(*ast.SelectorExpr)
		if !ok {
			return ""
		}
		root, ok := sel.X.(*ast.Ident)
		if !ok {
			return ""
		}
		module, ok := parsed.importAliases[root.Name]
		if !ok {
			return ""
		}
		ref, err := specref.Make(module, sel.Sel.Name)
		if err != nil {
			return ""
		}
		return ref
	}

	for _, d := range parsed.file.Decls {
		decl, ok := d.(*ast.GenDecl)
		if !ok {
			continue
		}
		for _, spec := range decl.Specs {
			switch s := spec.(type) {
			case *ast.TypeSpec:
				if s.Name.Name == name && s.Assign.IsValid() {
					if ref := resolve(s.Type); ref != "" {
						return ref
					}
				}
			case *ast.ValueSpec:
				for i, ident := range s.Names {
					if ident.Name != name || i >= len(s.Values) {
						continue
					}
					if ref := resolve(s.Values[i]); ref != "" {
						return ref
					}
				}
			}
		}
	}
	return ""
}
