// Package digest computes stable content fingerprints for incremental
// rebuild decisions.
//
// All digests are pure functions of the declaration table and spec graph:
// no I/O happens here. A digest is the lowercase hex sha256 of a canonical
// payload, so two runs over an unchanged unit set always agree regardless of
// iteration order.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/specs"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// Graph is the unit-level dependency graph (edges point at dependencies).
type Graph = map[specref.Ref]sets.Set[specref.Ref]

func sum(payload string) string {
	h := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(h[:])
}

// NormalizeText canonicalizes spec text for hashing: line endings become \n,
// per-line trailing whitespace is trimmed, and trailing blank lines dropped.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func normalizeDeps(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, d := range raw {
		if ref, err := specref.Normalize(d); err == nil {
			out = append(out, string(ref))
		} else {
			// Keep unparsable values verbatim so they still affect the hash.
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// Local computes a stable sha256 for an entry's declared text plus a
// canonical serialization of its metadata. Dependency lists are normalized
// and sorted; JSON map keys are emitted in sorted order by encoding/json.
func Local(e specs.Entry) string {
	meta := map[string]any{
		"deps":   normalizeDeps(e.Deps),
		"prompt": e.Prompt,
	}
	if e.Infer != nil {
		meta["infer"] = *e.Infer
	}
	stable, err := json.Marshal(meta)
	if err != nil {
		// Only reachable with non-serializable values, which the map above
		// cannot contain.
		stable = []byte("{}")
	}
	return sum(NormalizeText(e.Text) + "\n" + string(stable))
}

type frame struct {
	ref  specref.Ref
	deps []specref.Ref
	next int
}

// GraphDigest computes the digest for ref including transitive dependency
// digests. The traversal is an iterative depth-first walk with an explicit
// in-progress set; re-entering a reference currently being computed reports
// a dependency cycle naming the participants. Results are memoized into memo
// (which may be shared across calls).
func GraphDigest(ref specref.Ref, table specs.Table, graph Graph, memo map[specref.Ref]string) (string, error) {
	if memo == nil {
		memo = make(map[specref.Ref]string)
	}
	if d, ok := memo[ref]; ok {
		return d, nil
	}

	visiting := sets.New[specref.Ref]()
	stack := []*frame{newFrame(ref, graph)}
	visiting.Add(ref)

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		descended := false
		for f.next < len(f.deps) {
			dep := f.deps[f.next]
			f.next++
			if _, ok := memo[dep]; ok {
				continue
			}
			if visiting.Has(dep) {
				return "", errors.NewCycleError(cyclePath(stack, dep))
			}
			stack = append(stack, newFrame(dep, graph))
			visiting.Add(dep)
			descended = true
			break
		}
		if descended {
			continue
		}

		entry, ok := table[f.ref]
		if !ok {
			return "", errors.Newf(errors.CategoryInternal, "unknown spec reference %q", string(f.ref))
		}
		parts := make([]string, 0, len(f.deps)+1)
		parts = append(parts, Local(entry))
		for _, dep := range f.deps {
			parts = append(parts, memo[dep])
		}
		memo[f.ref] = sum(strings.Join(parts, "\n"))
		visiting.Delete(f.ref)
		stack = stack[:len(stack)-1]
	}

	return memo[ref], nil
}

func newFrame(ref specref.Ref, graph Graph) *frame {
	return &frame{ref: ref, deps: sets.Sorted(graph[ref])}
}

func cyclePath(stack []*frame, repeat specref.Ref) []string {
	start := 0
	for i, f := range stack {
		if f.ref == repeat {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, string(f.ref))
	}
	return append(path, string(repeat))
}

// Module computes the digest for a module from the sorted graph digests of
// its entries. A shared memo keeps the computation linear in graph size.
func Module(entries []specs.Entry, table specs.Table, graph Graph) (string, error) {
	sorted := make([]specs.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ref < sorted[j].Ref })

	memo := make(map[specref.Ref]string)
	digests := make([]string, 0, len(sorted))
	for _, e := range sorted {
		d, err := GraphDigest(e.Ref, table, graph, memo)
		if err != nil {
			return "", err
		}
		digests = append(digests, d)
	}
	sort.Strings(digests)
	return sum(strings.Join(digests, "\n")), nil
}
