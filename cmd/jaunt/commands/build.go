package commands

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/jaunt/internal/diagnostics"
	"git.home.luguber.info/inful/jaunt/internal/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Jobs        int      `short:"j" help:"Concurrency override"`
	Force       bool     `help:"Force regeneration of every module"`
	Target      []string `short:"t" help:"Restrict to the given modules plus their dependencies (repeatable)"`
	NoInferDeps bool     `name:"no-infer-deps" help:"Disable dependency inference (explicit deps only)"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	p, err := loadPipeline(root.Config, b.NoInferDeps)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}
	if len(p.table) == 0 {
		fmt.Println("No declarations found; nothing to build")
		return nil
	}

	ctx := context.Background()

	svc := p.newService(nil, b.Jobs, b.Force)
	stale, err := svc.DetectStale()
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}
	stale = restrictToTargets(p, stale, b.Target)

	if len(stale) > 0 {
		backend, err := p.newBackend(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
			return err
		}
		svc.Backend = backend
	}

	report, err := svc.Run(ctx, stale)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}

	fmt.Printf("Generated %d, skipped %d, failed %d module(s)\n",
		len(report.Generated), len(report.Skipped), len(report.Failed))
	if !report.OK() {
		fmt.Fprint(os.Stderr, diagnostics.FormatBuildFailures(report.Failed, "build"))
		return errors.Newf(errors.CategoryGeneration, "build failed for %d module(s)", len(report.Failed))
	}
	return nil
}
