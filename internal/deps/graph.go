// Package deps builds the unit-level dependency graph from declared
// metadata, optionally enriched by best-effort static inference, and
// provides the module-level collapse plus ordering helpers.
//
// Graph representation convention:
//   - A graph is a map[node]Set[depNodes] (edges point to dependencies).
//   - Toposort returns a list where dependencies come before dependents.
package deps

import (
	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/specs"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// Graph is the unit-level dependency graph.
type Graph = map[specref.Ref]sets.Set[specref.Ref]

// ModuleDAG is the module-level collapse of a Graph.
type ModuleDAG = map[string]sets.Set[string]

// Options controls graph construction.
type Options struct {
	// InferDefault enables best-effort inference for entries without an
	// explicit override.
	InferDefault bool

	// SourceRoots are the directories searched when following re-exports.
	SourceRoots []string

	// ParseCache is used by inference; a private cache is created when nil.
	ParseCache *ParseCache

	// Warnings, when non-nil, collects non-fatal inference diagnostics.
	Warnings *[]string
}

// BuildGraph builds the unit dependency graph for the table.
//
// Explicit dependencies are normalized to canonical references; self-edges
// and references that do not resolve to a known unit are silently dropped.
// Inference never raises: any analyzer failure degrades to "no additional
// edge".
func BuildGraph(table specs.Table, opts Options) Graph {
	graph := make(Graph, len(table))
	for ref := range table {
		graph[ref] = sets.New[specref.Ref]()
	}

	cache := opts.ParseCache
	if cache == nil {
		cache = NewParseCache(0)
	}

	for ref, entry := range table {
		out := graph[ref]

		for _, raw := range entry.Deps {
			depRef, err := specref.Normalize(raw)
			if err != nil || depRef == ref {
				continue
			}
			if _, known := table[depRef]; known {
				out.Add(depRef)
			}
		}

		inferEnabled := opts.InferDefault
		if entry.Infer != nil {
			inferEnabled = *entry.Infer
		}
		if !inferEnabled {
			continue
		}

		for dep := range inferDeps(entry, table, cache, opts.SourceRoots, opts.Warnings) {
			if dep != ref {
				out.Add(dep)
			}
		}
	}

	return graph
}

// CollapseToModuleDAG collapses a unit graph to module granularity.
// Intra-module edges vanish; cross-module edges remain.
func CollapseToModuleDAG(graph Graph) ModuleDAG {
	dag := make(ModuleDAG)
	for ref, depRefs := range graph {
		m := ref.Module()
		if _, ok := dag[m]; !ok {
			dag[m] = sets.New[string]()
		}
		for dep := range depRefs {
			dm := dep.Module()
			if _, ok := dag[dm]; !ok {
				dag[dm] = sets.New[string]()
			}
			if dm != m {
				dag[m].Add(dm)
			}
		}
	}
	return dag
}
