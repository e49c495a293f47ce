package builder

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jaunt/internal/deps"
	"git.home.luguber.info/inful/jaunt/internal/digest"
	"git.home.luguber.info/inful/jaunt/internal/header"
	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/specs"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// fixture builds a service over modules app.a <- app.b (b depends on a),
// each with a single unit.
func twoModuleService(t *testing.T) *Service {
	t.Helper()
	table := specs.Table{
		"app.a:FnA": {Kind: specs.KindBuild, Ref: "app.a:FnA", Module: "app.a", Qualname: "FnA", Text: "spec a"},
		"app.b:FnB": {Kind: specs.KindBuild, Ref: "app.b:FnB", Module: "app.b", Qualname: "FnB", Text: "spec b", Deps: []string{"app.a:FnA"}},
	}
	graph := deps.Graph{
		"app.a:FnA": sets.New[specref.Ref](),
		"app.b:FnB": sets.New[specref.Ref]("app.a:FnA"),
	}
	return &Service{
		PackageDir:   t.TempDir(),
		GeneratedDir: "gen",
		Table:        table,
		ModuleSpecs:  table.ByModule(),
		SpecGraph:    graph,
		ModuleDAG:    deps.CollapseToModuleDAG(graph),
	}
}

func writeFreshArtifact(t *testing.T, s *Service, module string) {
	t.Helper()
	d, err := digest.Module(s.ModuleSpecs[module], s.Table, s.SpecGraph)
	require.NoError(t, err)
	fields := header.Fields{ToolVersion: "test", Kind: "build", SourceModule: module, ModuleDigest: d}
	require.NoError(t, writeArtifact(s.PackageDir, GeneratedRelPath(module, s.GeneratedDir), fields, "package gen\n"))
}

func TestDetectStale_MissingArtifact(t *testing.T) {
	s := twoModuleService(t)
	stale, err := s.DetectStale()
	require.NoError(t, err)
	require.True(t, stale.Has("app.a"))
	require.True(t, stale.Has("app.b"))
}

func TestDetectStale_FreshAfterWrite(t *testing.T) {
	s := twoModuleService(t)
	writeFreshArtifact(t, s, "app.a")
	writeFreshArtifact(t, s, "app.b")

	stale, err := s.DetectStale()
	require.NoError(t, err)
	require.Empty(t, stale)
}

func TestDetectStale_DigestMismatch(t *testing.T) {
	s := twoModuleService(t)
	writeFreshArtifact(t, s, "app.a")
	writeFreshArtifact(t, s, "app.b")

	// Change a's spec: a's digest no longer matches, and b's module digest
	// also shifts because it embeds a's graph digest.
	e := s.Table["app.a:FnA"]
	e.Text = "spec a v2"
	s.Table["app.a:FnA"] = e
	s.ModuleSpecs = s.Table.ByModule()

	stale, err := s.DetectStale()
	require.NoError(t, err)
	require.True(t, stale.Has("app.a"))
	require.True(t, stale.Has("app.b"))
}

func TestDetectStale_MalformedArtifactIsStale(t *testing.T) {
	s := twoModuleService(t)
	path := filepath.Join(s.PackageDir, GeneratedRelPath("app.a", "gen"))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("garbage, no header\n"), 0o644))
	writeFreshArtifact(t, s, "app.b")

	stale, err := s.DetectStale()
	require.NoError(t, err)
	require.True(t, stale.Has("app.a"))
	require.False(t, stale.Has("app.b"))
}

func TestDetectStale_Force(t *testing.T) {
	s := twoModuleService(t)
	writeFreshArtifact(t, s, "app.a")
	writeFreshArtifact(t, s, "app.b")
	s.Force = true

	stale, err := s.DetectStale()
	require.NoError(t, err)
	require.Len(t, stale, 2)
}

func TestExpandStale_TransitiveDependents(t *testing.T) {
	dag := deps.ModuleDAG{
		"a": sets.New[string](),
		"b": sets.New("a"),
		"c": sets.New("b"),
		"d": sets.New[string](),
	}

	expanded := ExpandStale(dag, sets.New("a"))
	require.True(t, expanded.Has("a"))
	require.True(t, expanded.Has("b"))
	require.True(t, expanded.Has("c"))
	require.False(t, expanded.Has("d"))
}

func TestSelectTargets_DependencyClosure(t *testing.T) {
	dag := deps.ModuleDAG{
		"a": sets.New[string](),
		"b": sets.New("a"),
		"c": sets.New("b"),
		"d": sets.New[string](),
	}

	selected := SelectTargets(dag, []string{"c"})
	require.True(t, selected.Has("c"))
	require.True(t, selected.Has("b"))
	require.True(t, selected.Has("a"))
	require.False(t, selected.Has("d"))

	all := SelectTargets(dag, nil)
	require.Len(t, all, 4)
}

// Changing one module's spec must shift exactly the module digests of that
// module and its transitive dependents. Checked over randomized layered DAGs
// so digest-based detection and reverse-edge expansion always agree.
func TestStaleness_DigestMatchesExpansion(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		const n = 10
		table := make(specs.Table)
		graph := make(deps.Graph)
		modules := make([]string, n)

		for i := 0; i < n; i++ {
			modules[i] = fmt.Sprintf("m%02d", i)
			ref := specref.Ref(modules[i] + ":Fn")
			table[ref] = specs.Entry{
				Kind: specs.KindBuild, Ref: ref, Module: modules[i], Qualname: "Fn",
				Text: fmt.Sprintf("spec %d", i),
			}
			depSet := sets.New[specref.Ref]()
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					depSet.Add(specref.Ref(modules[j] + ":Fn"))
				}
			}
			graph[ref] = depSet
		}
		dag := deps.CollapseToModuleDAG(graph)
		byModule := table.ByModule()

		before := make(map[string]string, n)
		for _, m := range modules {
			d, err := digest.Module(byModule[m], table, graph)
			require.NoError(t, err)
			before[m] = d
		}

		mutated := modules[rng.Intn(n)]
		ref := specref.Ref(mutated + ":Fn")
		e := table[ref]
		e.Text += " changed"
		table[ref] = e
		byModule = table.ByModule()

		changed := sets.New[string]()
		for _, m := range modules {
			d, err := digest.Module(byModule[m], table, graph)
			require.NoError(t, err)
			if d != before[m] {
				changed.Add(m)
			}
		}

		expanded := ExpandStale(dag, sets.New(mutated))
		require.Equal(t, sets.Sorted(expanded), sets.Sorted(changed),
			"round %d: mutating %s", round, mutated)
	}
}
