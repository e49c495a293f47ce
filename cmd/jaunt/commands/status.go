package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/jaunt/internal/diagnostics"
	"git.home.luguber.info/inful/jaunt/internal/digest"
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Force       bool     `help:"Treat every module as stale"`
	Target      []string `short:"t" help:"Restrict to the given modules plus their dependencies (repeatable)"`
	NoInferDeps bool     `name:"no-infer-deps" help:"Disable dependency inference (explicit deps only)"`
}

func (s *StatusCmd) Run(_ *Global, root *CLI) error {
	p, err := loadPipeline(root.Config, s.NoInferDeps)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}
	if len(p.table) == 0 {
		fmt.Println("No declarations found")
		return nil
	}

	svc := p.newService(nil, 0, s.Force)
	stale, err := svc.DetectStale()
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}

	selected := sets.New[string]()
	for m := range p.moduleSpecs {
		selected.Add(m)
	}
	if len(s.Target) > 0 {
		selected = restrictToTargets(p, selected, s.Target)
	}

	for _, m := range sets.Sorted(selected) {
		state := "fresh"
		if stale.Has(m) {
			state = "stale"
		}
		d, err := digest.Module(p.moduleSpecs[m], p.table, p.specGraph)
		if err != nil {
			fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
			return err
		}
		fmt.Printf("%-7s %-12s %s\n", state, d[:12], m)
	}
	return nil
}
