// Package metrics provides build observability counters.
//
// Components receive a Recorder through dependency injection; the default
// NoopRecorder keeps the hot path free of nil checks and overhead when
// metrics are disabled.
package metrics

import "time"

// Recorder records build outcomes.
type Recorder interface {
	// ModuleGenerated records a successfully generated module.
	ModuleGenerated()
	// ModuleFailed records a module that failed generation or inherited a
	// dependency failure.
	ModuleFailed()
	// ModuleSkipped records a fresh module that required no work.
	ModuleSkipped()
	// GenerationAttempts records how many generate-validate attempts a
	// module consumed.
	GenerationAttempts(n int)
	// BuildCompleted records one whole scheduler run.
	BuildCompleted(d time.Duration)
}

// NoopRecorder is the default Recorder; every method is a no-op.
type NoopRecorder struct{}

func (NoopRecorder) ModuleGenerated()          {}
func (NoopRecorder) ModuleFailed()             {}
func (NoopRecorder) ModuleSkipped()            {}
func (NoopRecorder) GenerationAttempts(int)    {}
func (NoopRecorder) BuildCompleted(time.Duration) {}
