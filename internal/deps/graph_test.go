package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/specs"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

func tableOf(entries ...specs.Entry) specs.Table {
	t := make(specs.Table)
	for _, e := range entries {
		t[e.Ref] = e
	}
	return t
}

func entry(ref string, deps ...string) specs.Entry {
	r := specref.Ref(ref)
	return specs.Entry{Kind: specs.KindBuild, Ref: r, Module: r.Module(), Qualname: r.Qualname(), Deps: deps}
}

func TestBuildGraph_ExplicitDeps(t *testing.T) {
	table := tableOf(
		entry("a.m:X", "a.m:Y", "b.n:Z"),
		entry("a.m:Y"),
		entry("b.n:Z"),
	)

	g := BuildGraph(table, Options{})
	require.True(t, g["a.m:X"].Has("a.m:Y"))
	require.True(t, g["a.m:X"].Has("b.n:Z"))
	require.Empty(t, g["a.m:Y"])
}

func TestBuildGraph_NormalizesDotShorthand(t *testing.T) {
	table := tableOf(
		entry("a.m:X", "a.m.Y"),
		entry("a.m:Y"),
	)

	g := BuildGraph(table, Options{})
	require.True(t, g["a.m:X"].Has("a.m:Y"))
}

func TestBuildGraph_DropsSelfAndDangling(t *testing.T) {
	table := tableOf(
		entry("a.m:X", "a.m:X", "ghost.mod:Nope", "not a ref"),
	)

	g := BuildGraph(table, Options{})
	require.Empty(t, g["a.m:X"])
}

func TestBuildGraph_InferOverridePerEntry(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "feature_specs.go")
	require.NoError(t, os.WriteFile(src, []byte(`package feature

func Helper() int { return 1 }

func Sum(a, b int) int { return Helper() + a + b }
`), 0o644))

	off := false
	sum := entry("proj.feature:Sum")
	sum.SourceFile = src
	helper := entry("proj.feature:Helper")
	helper.SourceFile = src
	table := tableOf(sum, helper)

	g := BuildGraph(table, Options{InferDefault: true})
	require.True(t, g["proj.feature:Sum"].Has("proj.feature:Helper"))

	sum.Infer = &off
	table = tableOf(sum, helper)
	g = BuildGraph(table, Options{InferDefault: true})
	require.False(t, g["proj.feature:Sum"].Has("proj.feature:Helper"))
}

func TestBuildGraph_InfersImportedSelector(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "feature_specs.go")
	require.NoError(t, os.WriteFile(src, []byte(`package feature

import "proj/mathlib"

func Sum(a, b int) int { return mathlib.Add(a, b) }
`), 0o644))

	sum := entry("proj.feature:Sum")
	sum.SourceFile = src
	add := entry("proj.mathlib:Add")
	table := tableOf(sum, add)

	g := BuildGraph(table, Options{InferDefault: true})
	require.True(t, g["proj.feature:Sum"].Has("proj.mathlib:Add"))
}

func TestBuildGraph_UnresolvedSelectorWarns(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "feature_specs.go")
	require.NoError(t, os.WriteFile(src, []byte(`package feature

import "proj/mathlib"

func Sum(a, b int) int { return mathlib.Missing(a, b) }
`), 0o644))

	sum := entry("proj.feature:Sum")
	sum.SourceFile = src
	table := tableOf(sum)

	var warnings []string
	g := BuildGraph(table, Options{InferDefault: true, Warnings: &warnings})
	require.Empty(t, g["proj.feature:Sum"])
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "mathlib.Missing")
}

func TestCollapseToModuleDAG(t *testing.T) {
	g := Graph{
		"a.m:X": sets.New[specref.Ref]("a.m:Y", "b.n:Z"),
		"a.m:Y": sets.New[specref.Ref](),
		"b.n:Z": sets.New[specref.Ref](),
	}

	dag := CollapseToModuleDAG(g)
	require.True(t, dag["a.m"].Has("b.n"))
	require.False(t, dag["a.m"].Has("a.m"), "intra-module edges must vanish")
	require.Empty(t, dag["b.n"])
}

func TestToposort_DepsFirst(t *testing.T) {
	g := map[string]sets.Set[string]{
		"c": sets.New("b"),
		"b": sets.New("a"),
		"a": sets.New[string](),
	}

	order, err := Toposort(g)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestToposort_CycleNamesParticipants(t *testing.T) {
	g := map[string]sets.Set[string]{
		"a": sets.New("b"),
		"b": sets.New("a"),
	}

	_, err := Toposort(g)
	require.Error(t, err)
	require.True(t, errors.IsCycle(err))
	require.Contains(t, err.Error(), "a")
	require.Contains(t, err.Error(), "b")
}

func TestFindCycles(t *testing.T) {
	g := map[string]sets.Set[string]{
		"a": sets.New("b"),
		"b": sets.New("a"),
		"c": sets.New[string](),
	}

	cycles := FindCycles(g)
	require.Len(t, cycles, 1)
	require.Equal(t, []string{"a", "b"}, cycles[0])

	require.Nil(t, FindCycles(map[string]sets.Set[string]{"x": sets.New[string]()}))
}
