package deps

import (
	"cmp"
	"fmt"

	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// Toposort topologically sorts a dependency graph (deps before dependents).
// It returns a CycleError naming the participants when the graph is cyclic.
func Toposort[K cmp.Ordered](graph map[K]sets.Set[K]) ([]K, error) {
	perm := sets.New[K]()
	temp := sets.New[K]()
	var order []K
	var stack []K

	var visit func(n K) error
	visit = func(n K) error {
		if perm.Has(n) {
			return nil
		}
		if temp.Has(n) {
			// Extract the cycle path from the current traversal stack.
			start := 0
			for i, v := range stack {
				if v == n {
					start = i
					break
				}
			}
			path := make([]string, 0, len(stack)-start+1)
			for _, v := range stack[start:] {
				path = append(path, fmt.Sprint(v))
			}
			path = append(path, fmt.Sprint(n))
			return errors.NewCycleError(path)
		}

		temp.Add(n)
		stack = append(stack, n)
		for _, dep := range sets.Sorted(graph[n]) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		temp.Delete(n)
		perm.Add(n)
		order = append(order, n)
		return nil
	}

	for _, n := range allNodes(graph) {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// FindCycles returns all distinct elementary cycles in graph, or nil if
// acyclic. Each cycle is reported once, rotated so its smallest element
// comes first.
func FindCycles[K cmp.Ordered](graph map[K]sets.Set[K]) [][]K {
	perm := sets.New[K]()
	temp := sets.New[K]()
	var stack []K
	seen := sets.New[string]()
	var cycles [][]K

	var visit func(n K)
	visit = func(n K) {
		if perm.Has(n) {
			return
		}
		if temp.Has(n) {
			start := -1
			for i, v := range stack {
				if v == n {
					start = i
					break
				}
			}
			if start < 0 {
				return
			}
			cycle := append([]K(nil), stack[start:]...)
			minIdx := 0
			for i := range cycle {
				if cycle[i] < cycle[minIdx] {
					minIdx = i
				}
			}
			normalized := append(append([]K(nil), cycle[minIdx:]...), cycle[:minIdx]...)
			key := fmt.Sprint(normalized)
			if !seen.Has(key) {
				seen.Add(key)
				cycles = append(cycles, normalized)
			}
			return
		}

		temp.Add(n)
		stack = append(stack, n)
		for _, dep := range sets.Sorted(graph[n]) {
			visit(dep)
		}
		stack = stack[:len(stack)-1]
		temp.Delete(n)
		perm.Add(n)
	}

	for _, n := range allNodes(graph) {
		visit(n)
	}
	return cycles
}

// allNodes includes nodes that only appear as dependencies.
func allNodes[K cmp.Ordered](graph map[K]sets.Set[K]) []K {
	all := sets.New[K]()
	for n, depSet := range graph {
		all.Add(n)
		for d := range depSet {
			all.Add(d)
		}
	}
	return sets.Sorted(all)
}
