package builder

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/jaunt/internal/generate"
	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// moduleContext assembles the generation context for one module: its own
// spec texts and hints, plus API reference texts and produced content from
// every directly-depended-upon module. Produced content comes from this
// run's in-memory cache when available, else from whatever is persisted on
// disk; absence is just missing context, never an error.
//
// Called from the scheduler loop only, so reading generatedSources is safe:
// every dependency has already reported a terminal outcome.
func (s *Service) moduleContext(module string, generatedSources map[string]string) generate.ModuleContext {
	entries := s.ModuleSpecs[module]

	expected := make([]string, 0, len(entries))
	specSources := make(map[specref.Ref]string, len(entries))
	promptHints := make(map[specref.Ref]string)
	for _, e := range entries {
		expected = append(expected, e.Qualname)
		specSources[e.Ref] = e.Text
		if e.Prompt != "" {
			promptHints[e.Ref] = e.Prompt
		}
	}

	depAPIs := make(map[specref.Ref]string)
	depGenerated := make(map[string]string)
	for _, depModule := range sets.Sorted(s.ModuleDAG[module]) {
		for _, depEntry := range s.ModuleSpecs[depModule] {
			depAPIs[depEntry.Ref] = depEntry.Text
		}

		if src, ok := generatedSources[depModule]; ok {
			depGenerated[depModule] = src
			continue
		}
		path := filepath.Join(s.PackageDir, GeneratedRelPath(depModule, s.GeneratedDir))
		if data, err := os.ReadFile(path); err == nil {
			depGenerated[depModule] = string(data)
		}
	}

	return generate.ModuleContext{
		Kind:                string(s.Kind),
		SpecModule:          module,
		GeneratedModule:     GeneratedModuleName(module, s.GeneratedDir),
		ExpectedNames:       expected,
		SpecSources:         specSources,
		PromptHints:         promptHints,
		DependencyAPIs:      depAPIs,
		DependencyGenerated: depGenerated,
	}
}
