// Package specs defines the declaration table consumed by the build core.
//
// The table is built once per invocation by the discovery pass and passed by
// value into the graph builder; there is no ambient global registry.
package specs

import (
	"sort"

	"git.home.luguber.info/inful/jaunt/internal/specref"
)

// Kind distinguishes build specs from test specs.
type Kind string

const (
	KindBuild Kind = "build"
	KindTest  Kind = "test"
)

// Entry is one declared unit of work: a spec-carrying declaration together
// with its metadata.
type Entry struct {
	Kind       Kind
	Ref        specref.Ref
	Module     string
	Qualname   string
	SourceFile string

	// Text is the declared spec source segment for this unit.
	Text string

	// Prompt is an optional free-text generation hint.
	Prompt string

	// Deps holds the raw declared dependency references (unnormalized).
	Deps []string

	// Infer overrides the global inference default when non-nil.
	Infer *bool
}

// Table maps canonical references to their entries.
type Table map[specref.Ref]Entry

// ByModule groups entries by module with stable ordering within each module
// (by name, then reference).
func (t Table) ByModule() map[string][]Entry {
	grouped := make(map[string][]Entry)
	for _, e := range t {
		grouped[e.Module] = append(grouped[e.Module], e)
	}
	for module, entries := range grouped {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Qualname != entries[j].Qualname {
				return entries[i].Qualname < entries[j].Qualname
			}
			return entries[i].Ref < entries[j].Ref
		})
		grouped[module] = entries
	}
	return grouped
}

// Modules returns the sorted module names present in the table.
func (t Table) Modules() []string {
	seen := make(map[string]struct{})
	for _, e := range t {
		seen[e.Module] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
