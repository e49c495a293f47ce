package builder

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/jaunt/internal/deps"
	"git.home.luguber.info/inful/jaunt/internal/digest"
	"git.home.luguber.info/inful/jaunt/internal/header"
	"git.home.luguber.info/inful/jaunt/internal/logfields"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// DetectStale compares persisted artifact digests against freshly computed
// module digests. A module is stale when its artifact is missing, unreadable,
// carries no parseable digest, or the digests differ. With Force set every
// module with queued units is stale unconditionally.
//
// Unreadable or malformed artifacts are conservatively stale, never errors;
// the only error path is a dependency cycle found while digesting.
func (s *Service) DetectStale() (sets.Set[string], error) {
	s.applyDefaults()

	stale := sets.New[string]()
	if s.Force {
		for module := range s.ModuleSpecs {
			stale.Add(module)
		}
		return stale, nil
	}

	for module, entries := range s.ModuleSpecs {
		path := filepath.Join(s.PackageDir, GeneratedRelPath(module, s.GeneratedDir))
		existing, err := os.ReadFile(path)
		if err != nil {
			stale.Add(module)
			continue
		}

		onDisk := header.NormalizeDigest(header.ExtractModuleDigest(string(existing)))
		computed, err := digest.Module(entries, s.Table, s.SpecGraph)
		if err != nil {
			return nil, err
		}
		if onDisk == "" || onDisk != computed {
			s.Logger.Debug("Module artifact is stale",
				logfields.Module(module),
				logfields.Digest(computed))
			stale.Add(module)
		}
	}
	return stale, nil
}

// ExpandStale adds every transitive dependent of a stale module to the stale
// set: a dependency's regeneration may change what its dependents should
// reference even when their own digests still match.
func ExpandStale(dag deps.ModuleDAG, stale sets.Set[string]) sets.Set[string] {
	dependents := make(map[string]sets.Set[string])
	for module, depSet := range dag {
		for dep := range depSet {
			if _, ok := dependents[dep]; !ok {
				dependents[dep] = sets.New[string]()
			}
			dependents[dep].Add(module)
		}
	}

	expanded := stale.Clone()
	queue := sets.Sorted(stale)
	for len(queue) > 0 {
		m := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for dep := range dependents[m] {
			if expanded.Has(dep) {
				continue
			}
			expanded.Add(dep)
			queue = append(queue, dep)
		}
	}
	return expanded
}

// SelectTargets restricts a build to the requested modules plus their
// transitive dependency closure over the module DAG. An empty target list
// selects everything.
func SelectTargets(dag deps.ModuleDAG, targets []string) sets.Set[string] {
	if len(targets) == 0 {
		selected := sets.New[string]()
		for m := range dag {
			selected.Add(m)
		}
		return selected
	}

	selected := sets.New[string]()
	queue := append([]string(nil), targets...)
	for len(queue) > 0 {
		m := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if selected.Has(m) {
			continue
		}
		selected.Add(m)
		for dep := range dag[m] {
			queue = append(queue, dep)
		}
	}
	return selected
}
