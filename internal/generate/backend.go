// Package generate defines the generator collaborator contract and the
// retry-with-validation loop driving it.
package generate

import (
	"context"

	"git.home.luguber.info/inful/jaunt/internal/specref"
	"git.home.luguber.info/inful/jaunt/internal/validation"
)

// ModuleContext carries everything a backend needs to generate one module.
type ModuleContext struct {
	Kind            string // "build" or "test"
	SpecModule      string
	GeneratedModule string

	// ExpectedNames are the top-level names the generated source must define.
	ExpectedNames []string

	// SpecSources holds the module's own unit spec texts.
	SpecSources map[specref.Ref]string

	// PromptHints holds optional per-unit free-text hints.
	PromptHints map[specref.Ref]string

	// DependencyAPIs holds spec texts from directly-depended-upon modules,
	// provided as API reference context.
	DependencyAPIs map[specref.Ref]string

	// DependencyGenerated holds already-produced content of dependency
	// modules, keyed by module name. Absent entries are just missing context.
	DependencyGenerated map[string]string
}

// Result is the outcome of a retry loop run.
type Result struct {
	Attempts int
	Source   string
	Errors   []string
}

// Backend is the generator collaborator. Implementations must tolerate
// repeated invocation and may internally retry transient provider failures
// before surfacing a terminal error.
type Backend interface {
	GenerateModule(ctx context.Context, mc ModuleContext, extraErrorContext []string) (string, error)
}

// DefaultMaxAttempts bounds the generate-validate loop.
const DefaultMaxAttempts = 2

// WithRetry generates code, validates it, and retries with accumulated error
// context. A backend error ends the loop immediately: transient retries are
// the backend's own responsibility.
func WithRetry(ctx context.Context, backend Backend, mc ModuleContext, maxAttempts int) Result {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	attempts := 0
	var lastSource string
	var lastErrors []string
	var extraCtx []string

	for attempts < maxAttempts {
		attempts++

		source, err := backend.GenerateModule(ctx, mc, extraCtx)
		if err != nil {
			return Result{Attempts: attempts, Errors: []string{"Generation failed: " + err.Error()}}
		}

		lastSource = source
		lastErrors = validation.ValidateGeneratedSource(source, mc.ExpectedNames)
		if len(lastErrors) == 0 {
			return Result{Attempts: attempts, Source: source}
		}
		if attempts >= maxAttempts {
			break
		}

		// Retry with appended context describing what was wrong previously.
		for _, e := range lastErrors {
			extraCtx = append(extraCtx, "previous output errors: "+e)
		}
	}

	return Result{Attempts: attempts, Source: lastSource, Errors: lastErrors}
}
