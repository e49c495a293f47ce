// Package specref provides stable spec identity references.
//
// A Ref is a stable string identifier for a spec-carrying declaration.
// Canonical format is "pkg.mod:Qualname". Qualnames may be dotted
// (e.g. "Outer.Method").
package specref

import (
	"fmt"
	"strings"
	"unicode"
)

// Ref is a canonical "module:qualname" spec reference.
type Ref string

// Module returns the module part of the reference.
func (r Ref) Module() string {
	s := string(r)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// Qualname returns the qualified name part of the reference.
func (r Ref) Qualname() string {
	s := string(r)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return ""
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if c == '_' || unicode.IsLetter(c) {
			continue
		}
		if i > 0 && unicode.IsDigit(c) {
			continue
		}
		return false
	}
	return true
}

func validModule(module string) bool {
	if module == "" || strings.TrimSpace(module) != module {
		return false
	}
	for _, p := range strings.Split(module, ".") {
		if !isIdentifier(p) {
			return false
		}
	}
	return true
}

func validQualname(qualname string) bool {
	if qualname == "" || strings.TrimSpace(qualname) != qualname {
		return false
	}
	for _, p := range strings.Split(qualname, ".") {
		if !isIdentifier(p) {
			return false
		}
	}
	return true
}

// Normalize converts a spec reference string to canonical "module:qualname" form.
//
// Rules:
//   - Colon form is kept as-is after sanity checks.
//   - Dot shorthand ("pkg.mod.Qualname") splits on the last dot.
//   - Dotted qualnames are allowed in colon form ("pkg.mod:Outer.Inner").
func Normalize(s string) (Ref, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return "", fmt.Errorf("spec ref must be non-empty")
	}

	if strings.Contains(raw, ":") {
		if strings.Count(raw, ":") != 1 {
			return "", fmt.Errorf("spec ref %q must contain at most one ':'", raw)
		}
		parts := strings.SplitN(raw, ":", 2)
		if !validModule(parts[0]) || !validQualname(parts[1]) {
			return "", fmt.Errorf("invalid spec ref %q", raw)
		}
		return Ref(parts[0] + ":" + parts[1]), nil
	}

	// Dot shorthand: split on the last dot.
	i := strings.LastIndexByte(raw, '.')
	if i < 0 {
		return "", fmt.Errorf("dot shorthand spec ref %q must contain at least one '.'", raw)
	}
	module, qualname := raw[:i], raw[i+1:]
	if !validModule(module) || !validQualname(qualname) {
		return "", fmt.Errorf("invalid spec ref %q", raw)
	}
	return Ref(module + ":" + qualname), nil
}

// Make builds a canonical Ref from a module and qualname pair.
func Make(module, qualname string) (Ref, error) {
	return Normalize(module + ":" + qualname)
}
