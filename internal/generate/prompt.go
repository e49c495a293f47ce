package generate

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"git.home.luguber.info/inful/jaunt/internal/specref"
)

// renderTemplate is a very small template renderer: it replaces {{name}}
// placeholders.
func renderTemplate(text string, mapping map[string]string) string {
	rendered := text
	for key, value := range mapping {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	return rendered
}

var fenceRe = regexp.MustCompile(`(?s)^\s*` + "```" + `[a-zA-Z0-9_-]*\s*\n(.*)\n\s*` + "```" + `\s*$`)

// stripMarkdownFences removes a single wrapping code fence if present.
func stripMarkdownFences(text string) string {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// fmtRefBlock renders ref-keyed texts as stable "# ref" sections.
func fmtRefBlock(items map[specref.Ref]string) string {
	if len(items) == 0 {
		return "(none)"
	}
	refs := make([]string, 0, len(items))
	for r := range items {
		refs = append(refs, string(r))
	}
	sort.Strings(refs)

	var chunks []string
	for _, r := range refs {
		chunks = append(chunks, "# "+r+"\n"+strings.TrimRight(items[specref.Ref(r)], "\n")+"\n")
	}
	return strings.TrimRight(strings.Join(chunks, "\n"), "\n") + "\n"
}

// fmtModuleBlock renders module-keyed texts as stable "# module" sections.
func fmtModuleBlock(items map[string]string) string {
	if len(items) == 0 {
		return "(none)"
	}
	names := make([]string, 0, len(items))
	for m := range items {
		names = append(names, m)
	}
	sort.Strings(names)

	var chunks []string
	for _, m := range names {
		chunks = append(chunks, "# "+m+"\n"+strings.TrimRight(items[m], "\n")+"\n")
	}
	return strings.TrimRight(strings.Join(chunks, "\n"), "\n") + "\n"
}

// loadPrompt returns the override file content when a path is configured,
// else the built-in default.
func loadPrompt(defaultText, overridePath string) (string, error) {
	if overridePath == "" {
		return defaultText, nil
	}
	data, err := os.ReadFile(overridePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

const defaultBuildSystem = `You are a senior Go engineer generating production code from specifications.

Rules:
- Output a single complete Go source file and nothing else.
- Do not wrap the output in markdown fences.
- Implement exactly the requested top-level declarations; helpers may be added.
- Treat dependency API reference blocks as the source of truth for signatures.
- Match the package name requested for the generated module.
`

const defaultBuildModule = `Generate Go module {{generated_module}} from the specs of {{spec_module}}.

Required top-level declarations:
{{expected_names}}

## Unit specs
{{spec_sources}}

## Generation hints
{{prompt_hints}}

## Dependency API reference
{{dependency_apis}}

## Dependency generated modules
{{dependency_generated}}

## Corrections from previous attempts
{{error_context}}
`
