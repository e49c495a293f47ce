// Package builder drives incremental module generation: staleness detection,
// dependency-ordered scheduling with bounded concurrency, per-module
// generation with retry, and atomic artifact persistence.
package builder

import (
	"container/heap"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/jaunt/internal/deps"
	"git.home.luguber.info/inful/jaunt/internal/digest"
	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/generate"
	"git.home.luguber.info/inful/jaunt/internal/header"
	"git.home.luguber.info/inful/jaunt/internal/logfields"
	"git.home.luguber.info/inful/jaunt/internal/metrics"
	"git.home.luguber.info/inful/jaunt/internal/specs"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
	"git.home.luguber.info/inful/jaunt/internal/version"
)

// Service executes builds over an immutable declaration table and its
// graphs. All execution paths (CLI, watch mode, tests) route through here.
type Service struct {
	PackageDir   string
	GeneratedDir string
	Kind         specs.Kind
	Table        specs.Table
	ModuleSpecs  map[string][]specs.Entry
	SpecGraph    deps.Graph
	ModuleDAG    deps.ModuleDAG

	Backend     generate.Backend
	Jobs        int
	MaxAttempts int
	Force       bool
	ToolVersion string

	Logger   *slog.Logger
	Recorder metrics.Recorder
}

func (s *Service) applyDefaults() {
	if s.GeneratedDir == "" {
		s.GeneratedDir = "gen"
	}
	if s.Kind == "" {
		s.Kind = specs.KindBuild
	}
	if s.ModuleSpecs == nil {
		s.ModuleSpecs = s.Table.ByModule()
	}
	if s.Jobs < 1 {
		s.Jobs = 1
	}
	if s.MaxAttempts < 1 {
		s.MaxAttempts = generate.DefaultMaxAttempts
	}
	if s.ToolVersion == "" {
		s.ToolVersion = version.Version
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Recorder == nil {
		s.Recorder = metrics.NoopRecorder{}
	}
}

// completion is one task's terminal outcome, reported to the scheduler loop.
type completion struct {
	module   string
	ok       bool
	source   string
	attempts int
	errs     []string
}

// runState is the scheduler bookkeeping for one Run invocation.
type runState struct {
	depsInStale map[string]sets.Set[string]
	dependents  map[string]sets.Set[string]
	indeg       map[string]int
	prio        map[string]int

	ready     *readyQueue
	completed sets.Set[string]
	generated sets.Set[string]
	failed    map[string][]string

	// generatedSources caches content produced this run; each entry is
	// written exactly once by the scheduler loop after the owning task
	// completes, and read only when assembling dependents' contexts.
	generatedSources map[string]string
}

// Run executes one build over the given stale set and returns the report.
// It never dispatches a module before every stale dependency has reported a
// terminal outcome, and it never invokes generation for a module whose
// stale dependency failed.
func (s *Service) Run(ctx context.Context, staleModules sets.Set[string]) (*Report, error) {
	s.applyDefaults()
	start := time.Now()

	report := &Report{
		RunID:     uuid.NewString(),
		Generated: sets.New[string](),
		Skipped:   sets.New[string](),
		Failed:    make(map[string][]string),
	}

	// Expand the rebuild set and restrict to modules we actually have specs for.
	expanded := ExpandStale(s.ModuleDAG, staleModules)
	stale := sets.New[string]()
	for m := range expanded {
		if _, ok := s.ModuleSpecs[m]; ok {
			stale.Add(m)
		}
	}
	for m := range s.ModuleSpecs {
		if !stale.Has(m) {
			report.Skipped.Add(m)
			s.Recorder.ModuleSkipped()
		}
	}

	if len(stale) == 0 {
		s.Logger.Info("Nothing to build", logfields.RunID(report.RunID))
		s.Recorder.BuildCompleted(time.Since(start))
		return report, nil
	}

	st, err := s.newRunState(stale)
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Starting build",
		logfields.RunID(report.RunID),
		logfields.Stale(len(stale)),
		logfields.Jobs(s.Jobs))

	results := make(chan completion)
	inFlight := 0

	for st.ready.Len() > 0 || inFlight > 0 {
		for st.ready.Len() > 0 && inFlight < s.Jobs {
			m := heap.Pop(st.ready).(readyItem).name
			if st.completed.Has(m) {
				continue
			}
			mc := s.moduleContext(m, st.generatedSources)
			inFlight++
			s.Logger.Debug("Dispatching module", logfields.RunID(report.RunID), logfields.Module(m))
			go func(m string, mc generate.ModuleContext) {
				results <- s.buildOne(ctx, m, mc)
			}(m, mc)
		}

		if inFlight == 0 {
			break
		}

		res := <-results
		inFlight--
		st.completed.Add(res.module)
		if res.attempts > 0 {
			s.Recorder.GenerationAttempts(res.attempts)
		}
		if res.ok {
			st.generated.Add(res.module)
			st.generatedSources[res.module] = res.source
			s.Recorder.ModuleGenerated()
			s.Logger.Info("Module generated",
				logfields.RunID(report.RunID),
				logfields.Module(res.module),
				logfields.Attempt(res.attempts))
		} else {
			st.failed[res.module] = res.errs
			s.Recorder.ModuleFailed()
			s.Logger.Warn("Module failed",
				logfields.RunID(report.RunID),
				logfields.Module(res.module),
				slog.Any("errors", res.errs))
		}
		s.settleDependents(res.module, st, report.RunID)
	}

	// An acyclic induced subgraph always drains; leftovers mean a cycle.
	remaining := sets.New[string]()
	for m := range stale {
		if !st.completed.Has(m) {
			remaining.Add(m)
		}
	}
	if len(remaining) > 0 {
		return nil, remainingCycleError(st.depsInStale, remaining)
	}

	report.Generated = st.generated
	report.Failed = st.failed
	s.Recorder.BuildCompleted(time.Since(start))
	s.Logger.Info("Build finished",
		logfields.RunID(report.RunID),
		slog.Int("generated", len(report.Generated)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("failed", len(report.Failed)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return report, nil
}

// newRunState induces the subgraph over the stale set, verifies it is
// acyclic, computes priorities, and seeds the ready queue.
func (s *Service) newRunState(stale sets.Set[string]) (*runState, error) {
	st := &runState{
		depsInStale:      make(map[string]sets.Set[string], len(stale)),
		dependents:       make(map[string]sets.Set[string], len(stale)),
		indeg:            make(map[string]int, len(stale)),
		ready:            &readyQueue{},
		completed:        sets.New[string](),
		generated:        sets.New[string](),
		failed:           make(map[string][]string),
		generatedSources: make(map[string]string),
	}

	for m := range stale {
		st.dependents[m] = sets.New[string]()
	}
	for m := range stale {
		inStale := sets.New[string]()
		for d := range s.ModuleDAG[m] {
			if stale.Has(d) {
				inStale.Add(d)
			}
		}
		st.depsInStale[m] = inStale
		st.indeg[m] = len(inStale)
		for d := range inStale {
			st.dependents[d].Add(m)
		}
	}

	if _, err := deps.Toposort(st.depsInStale); err != nil {
		return nil, err
	}

	st.prio = criticalPathLengths(stale, s.ModuleDAG)

	heap.Init(st.ready)
	for m, n := range st.indeg {
		if n == 0 {
			heap.Push(st.ready, readyItem{prio: st.prio[m], name: m})
		}
	}
	return st, nil
}

// settleDependents decrements dependents' indegrees and either fails them
// (when a stale dependency failed, recursively, without invoking
// generation) or moves them to the ready queue.
func (s *Service) settleDependents(m string, st *runState, runID string) {
	for _, dep := range sets.Sorted(st.dependents[m]) {
		if st.completed.Has(dep) {
			continue
		}
		st.indeg[dep]--
		if st.indeg[dep] != 0 {
			continue
		}

		var bad []string
		for _, d := range sets.Sorted(st.depsInStale[dep]) {
			if _, failed := st.failed[d]; failed {
				bad = append(bad, d)
			}
		}
		if len(bad) > 0 {
			reasons := make([]string, 0, len(bad))
			for _, d := range bad {
				reasons = append(reasons, "Dependency failed: "+d)
			}
			st.failed[dep] = reasons
			st.completed.Add(dep)
			s.Recorder.ModuleFailed()
			s.Logger.Warn("Module failed via dependency",
				logfields.RunID(runID),
				logfields.Module(dep),
				slog.Any("errors", reasons))
			s.settleDependents(dep, st, runID)
		} else {
			heap.Push(st.ready, readyItem{prio: st.prio[dep], name: dep})
		}
	}
}

// buildOne runs the generate-validate loop for one module and persists the
// artifact on success. It only reads immutable state and its own context;
// the scheduler loop owns all shared bookkeeping.
func (s *Service) buildOne(ctx context.Context, module string, mc generate.ModuleContext) completion {
	res := generate.WithRetry(ctx, s.Backend, mc, s.MaxAttempts)
	if len(res.Errors) > 0 {
		return completion{module: module, attempts: res.Attempts, errs: res.Errors}
	}

	entries := s.ModuleSpecs[module]
	moduleDigest, err := digest.Module(entries, s.Table, s.SpecGraph)
	if err != nil {
		return completion{module: module, attempts: res.Attempts, errs: []string{err.Error()}}
	}

	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, string(e.Ref))
	}
	fields := header.Fields{
		ToolVersion:  s.ToolVersion,
		Kind:         string(s.Kind),
		SourceModule: module,
		ModuleDigest: moduleDigest,
		SpecRefs:     refs,
	}
	if err := writeArtifact(s.PackageDir, GeneratedRelPath(module, s.GeneratedDir), fields, res.Source); err != nil {
		return completion{module: module, attempts: res.Attempts, errs: []string{err.Error()}}
	}

	return completion{module: module, ok: true, source: res.Source, attempts: res.Attempts}
}

// criticalPathLengths assigns each module 1 + the longest chain of
// dependents within the set (0 for sinks): modules unblocking longer
// downstream chains are scheduled first.
func criticalPathLengths(modules sets.Set[string], dag deps.ModuleDAG) map[string]int {
	dependents := make(map[string]sets.Set[string], len(modules))
	for m := range modules {
		dependents[m] = sets.New[string]()
	}
	for m := range modules {
		for dep := range dag[m] {
			if modules.Has(dep) {
				dependents[dep].Add(m)
			}
		}
	}

	memo := make(map[string]int, len(modules))
	var length func(m string) int
	length = func(m string) int {
		if v, ok := memo[m]; ok {
			return v
		}
		best := 0
		for c := range dependents[m] {
			if v := 1 + length(c); v > best {
				best = v
			}
		}
		memo[m] = best
		return best
	}
	for m := range modules {
		length(m)
	}
	return memo
}

// remainingCycleError names the cycle among modules that never completed.
func remainingCycleError(depsInStale map[string]sets.Set[string], remaining sets.Set[string]) error {
	sub := make(map[string]sets.Set[string], len(remaining))
	for m := range remaining {
		inRemaining := sets.New[string]()
		for d := range depsInStale[m] {
			if remaining.Has(d) {
				inRemaining.Add(d)
			}
		}
		sub[m] = inRemaining
	}
	if _, err := deps.Toposort(sub); err != nil {
		return err
	}
	return errors.NewCycleError(sets.Sorted(remaining))
}

// readyItem orders the ready queue: highest priority first, then name.
type readyItem struct {
	prio int
	name string
}

type readyQueue []readyItem

func (q readyQueue) Len() int { return len(q) }
func (q readyQueue) Less(i, j int) bool {
	if q[i].prio != q[j].prio {
		return q[i].prio > q[j].prio
	}
	return q[i].name < q[j].name
}
func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(readyItem)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
