// Package header encodes the six reserved lines at the top of every
// generated artifact. The header is consumed only by staleness detection;
// everything after it is opaque payload.
package header

import (
	"encoding/json"
	"strings"
)

// Marker is the first line of every generated artifact.
const Marker = "# Code generated by jaunt. DO NOT EDIT."

const prefix = "# jaunt:"

// Lines is the total number of reserved header lines.
const Lines = 6

// Fields holds the values carried by an artifact header.
type Fields struct {
	ToolVersion  string
	Kind         string // "build" or "test"
	SourceModule string
	ModuleDigest string // "sha256:<64 hex>"
	SpecRefs     []string
}

// NormalizeDigest strips an optional "sha256:" prefix for comparisons.
func NormalizeDigest(d string) string {
	return strings.TrimPrefix(d, "sha256:")
}

// Format renders the exact six header lines (with trailing newline).
func Format(f Fields) string {
	digest := f.ModuleDigest
	if digest != "" && !strings.HasPrefix(digest, "sha256:") {
		digest = "sha256:" + digest
	}
	refs := f.SpecRefs
	if refs == nil {
		refs = []string{}
	}
	refsJSON, _ := json.Marshal(refs)

	var b strings.Builder
	b.WriteString(Marker + "\n")
	b.WriteString(prefix + "tool_version=" + f.ToolVersion + "\n")
	b.WriteString(prefix + "kind=" + f.Kind + "\n")
	b.WriteString(prefix + "source_module=" + f.SourceModule + "\n")
	b.WriteString(prefix + "module_digest=" + digest + "\n")
	b.WriteString(prefix + "spec_refs=" + string(refsJSON) + "\n")
	return b.String()
}

// Parse reads the header from artifact content. It returns false when the
// content does not start with a well-formed header.
func Parse(content string) (Fields, bool) {
	lines := strings.SplitN(content, "\n", Lines+1)
	if len(lines) < Lines || lines[0] != Marker {
		return Fields{}, false
	}

	kv := make(map[string]string, Lines-1)
	for _, line := range lines[1:Lines] {
		rest, ok := strings.CutPrefix(line, prefix)
		if !ok {
			return Fields{}, false
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			return Fields{}, false
		}
		kv[key] = value
	}

	f := Fields{
		ToolVersion:  kv["tool_version"],
		Kind:         kv["kind"],
		SourceModule: kv["source_module"],
		ModuleDigest: kv["module_digest"],
	}
	if raw, ok := kv["spec_refs"]; ok {
		var refs []string
		if err := json.Unmarshal([]byte(raw), &refs); err != nil {
			return Fields{}, false
		}
		f.SpecRefs = refs
	}
	return f, true
}

// ExtractModuleDigest returns the embedded module digest (with its sha256:
// prefix) or "" when the content carries no parseable header.
func ExtractModuleDigest(content string) string {
	f, ok := Parse(content)
	if !ok {
		return ""
	}
	return f.ModuleDigest
}
