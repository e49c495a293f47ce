// Package diagnostics formats errors and actionable hints for CLI output.
//
// Keep this small and dependency-light: it only depends on the error
// categories.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"git.home.luguber.info/inful/jaunt/internal/errors"
)

// FormatBuildFailures formats per-module failures into a stderr summary.
func FormatBuildFailures(failed map[string][]string, kind string) string {
	if len(failed) == 0 {
		return ""
	}

	label := "Build"
	if kind == "test" {
		label = "Test generation"
	}

	modules := make([]string, 0, len(failed))
	for m := range failed {
		modules = append(modules, m)
	}
	sort.Strings(modules)

	var b strings.Builder
	fmt.Fprintf(&b, "%s failed for %d module(s):\n", label, len(failed))
	for _, m := range modules {
		fmt.Fprintf(&b, "\n  %s:\n", m)
		for _, e := range failed[m] {
			fmt.Fprintf(&b, "    - %s\n", e)
		}
	}
	return b.String()
}

// FormatHint returns an actionable hint for a known error, or "".
func FormatHint(err error) string {
	msg := err.Error()

	if errors.IsCycle(err) {
		return "break the cycle by removing a deps= reference or setting infer=false on one declaration"
	}

	switch errors.CategoryOf(err) {
	case errors.CategoryConfig:
		if strings.Contains(msg, "not found") && strings.Contains(msg, "jaunt.yaml") {
			return "run `jaunt init` to create a new project"
		}
		if strings.Contains(msg, "API key") {
			return "create a .env file in your project root with the key"
		}
	case errors.CategoryDiscovery:
		return "check that paths.source_roots in jaunt.yaml includes the correct directories"
	case errors.CategoryCycle:
		return "break the cycle by removing a deps= reference or setting infer=false on one declaration"
	}
	return ""
}

// FormatErrorWithHint formats an error plus an optional hint for stderr.
func FormatErrorWithHint(err error) string {
	out := "error: " + strings.TrimSpace(err.Error())
	if hint := FormatHint(err); hint != "" {
		out += "\nhint: " + hint
	}
	return out
}
