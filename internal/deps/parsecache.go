package deps

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultParseCacheSize = 256

// parsedFile is a parsed Go source file plus the import bindings inference
// needs for name resolution.
type parsedFile struct {
	fset    *token.FileSet
	file    *ast.File
	modTime time.Time

	// importAliases maps a file-local package name to the dotted module name
	// derived from its import path.
	importAliases map[string]string
}

// ParseCache memoizes parsed source files across inference runs, keyed by
// path and invalidated on modification time changes.
type ParseCache struct {
	cache *lru.Cache[string, *parsedFile]
}

// NewParseCache creates a cache bounded to size entries (0 uses the default).
func NewParseCache(size int) *ParseCache {
	if size <= 0 {
		size = defaultParseCacheSize
	}
	c, err := lru.New[string, *parsedFile](size)
	if err != nil {
		// lru.New only fails on non-positive sizes.
		c, _ = lru.New[string, *parsedFile](defaultParseCacheSize)
	}
	return &ParseCache{cache: c}
}

// Parse returns the parsed file for path, or nil when the file cannot be
// read or parsed. Parsing is strictly best-effort.
func (c *ParseCache) Parse(p string) *parsedFile {
	info, err := os.Stat(p)
	if err != nil {
		return nil
	}
	if cached, ok := c.cache.Get(p); ok && cached.modTime.Equal(info.ModTime()) {
		return cached
	}

	src, err := os.ReadFile(p)
	if err != nil {
		return nil
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, p, src, parser.ParseComments)
	if err != nil {
		return nil
	}

	parsed := &parsedFile{
		fset:          fset,
		file:          file,
		modTime:       info.ModTime(),
		importAliases: importAliases(file),
	}
	c.cache.Add(p, parsed)
	return parsed
}

// importAliases maps local package names to dotted module names.
func importAliases(file *ast.File) map[string]string {
	out := make(map[string]string)
	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil || importPath == "" {
			continue
		}
		local := path.Base(importPath)
		if imp.Name != nil {
			local = imp.Name.Name
		}
		if local == "_" || local == "." {
			continue
		}
		out[local] = strings.ReplaceAll(importPath, "/", ".")
	}
	return out
}
