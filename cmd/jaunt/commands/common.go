package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/jaunt/internal/builder"
	"git.home.luguber.info/inful/jaunt/internal/config"
	"git.home.luguber.info/inful/jaunt/internal/deps"
	"git.home.luguber.info/inful/jaunt/internal/discovery"
	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/generate"
	"git.home.luguber.info/inful/jaunt/internal/specs"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"jaunt.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Generate code for stale modules"`
	Status StatusCmd `cmd:"" help:"Show per-module fresh/stale state"`
	Clean  CleanCmd  `cmd:"" help:"Remove generated artifacts"`
	Watch  WatchCmd  `cmd:"" help:"Rebuild continuously on source changes"`
	Init   InitCmd   `cmd:"" help:"Initialize a new jaunt project"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// pipeline bundles the loaded config with the discovery and graph outputs
// every command operates on.
type pipeline struct {
	cfg         *config.Config
	table       specs.Table
	moduleSpecs map[string][]specs.Entry
	specGraph   deps.Graph
	moduleDAG   deps.ModuleDAG
}

// loadPipeline runs discovery over the configured roots and builds both
// graphs. Inference warnings are logged, never fatal.
func loadPipeline(configPath string, noInferDeps bool) (*pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "load "+configPath)
	}

	table, err := discovery.Discover(cfg.Paths.SourceRoots, specs.KindBuild)
	if err != nil {
		return nil, err
	}

	var warnings []string
	graph := deps.BuildGraph(table, deps.Options{
		InferDefault: cfg.Build.InferDepsEnabled() && !noInferDeps,
		SourceRoots:  cfg.Paths.SourceRoots,
		Warnings:     &warnings,
	})
	for _, w := range warnings {
		slog.Warn(w)
	}

	return &pipeline{
		cfg:         cfg,
		table:       table,
		moduleSpecs: table.ByModule(),
		specGraph:   graph,
		moduleDAG:   deps.CollapseToModuleDAG(graph),
	}, nil
}

// newService assembles a builder service around the pipeline. The backend
// may be nil for read-only operations like status.
func (p *pipeline) newService(backend generate.Backend, jobs int, force bool) *builder.Service {
	if jobs <= 0 {
		jobs = p.cfg.Build.Jobs
	}
	return &builder.Service{
		PackageDir:   p.cfg.Paths.PackageDir,
		GeneratedDir: p.cfg.Paths.GeneratedDir,
		Kind:         specs.KindBuild,
		Table:        p.table,
		ModuleSpecs:  p.moduleSpecs,
		SpecGraph:    p.specGraph,
		ModuleDAG:    p.moduleDAG,
		Backend:      backend,
		Jobs:         jobs,
		MaxAttempts:  p.cfg.LLM.MaxAttempts,
		Force:        force,
	}
}

// newBackend builds the configured generation backend.
func (p *pipeline) newBackend(ctx context.Context) (generate.Backend, error) {
	backend, err := generate.NewGeminiBackend(ctx, generate.Settings{
		Model:            p.cfg.LLM.Model,
		APIKeyEnv:        p.cfg.LLM.APIKeyEnv,
		Policy:           p.cfg.LLM.RetryPolicy(),
		SystemPromptPath: p.cfg.Prompts.System,
		ModulePromptPath: p.cfg.Prompts.Module,
	})
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// restrictToTargets intersects the stale set with the dependency closure of
// the requested target modules. No targets means no restriction.
func restrictToTargets(p *pipeline, stale sets.Set[string], targets []string) sets.Set[string] {
	if len(targets) == 0 {
		return stale
	}
	allowed := builder.SelectTargets(p.moduleDAG, targets)
	restricted := sets.New[string]()
	for m := range stale {
		if allowed.Has(m) {
			restricted.Add(m)
		}
	}
	return restricted
}
