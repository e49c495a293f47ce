package builder

import (
	"git.home.luguber.info/inful/jaunt/internal/util/sets"
)

// Report is the terminal output of one scheduler run. It is not mutated
// after Run returns.
type Report struct {
	// RunID identifies this build run in logs.
	RunID string

	// Generated holds modules whose artifacts were produced this run.
	Generated sets.Set[string]

	// Skipped holds modules that were fresh and required no work.
	Skipped sets.Set[string]

	// Failed maps modules to their collected error strings.
	Failed map[string][]string
}

// OK reports whether the run completed without module failures.
func (r *Report) OK() bool { return len(r.Failed) == 0 }
