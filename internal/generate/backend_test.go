package generate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jaunt/internal/specref"
)

// fakeBackend returns scripted outputs in order and records the error
// context it was handed on each call.
type fakeBackend struct {
	mu       sync.Mutex
	outputs  []string
	err      error
	calls    int
	extraCtx [][]string
}

func (f *fakeBackend) GenerateModule(_ context.Context, _ ModuleContext, extraErrorContext []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extraCtx = append(f.extraCtx, append([]string(nil), extraErrorContext...))
	if f.err != nil {
		return "", f.err
	}
	out := f.outputs[0]
	if len(f.outputs) > 1 {
		f.outputs = f.outputs[1:]
	}
	f.calls++
	return out, nil
}

func TestWithRetry_FirstAttemptValid(t *testing.T) {
	backend := &fakeBackend{outputs: []string{"package gen\n\nfunc Sum() {}\n"}}

	res := WithRetry(context.Background(), backend, ModuleContext{ExpectedNames: []string{"Sum"}}, 2)
	require.Empty(t, res.Errors)
	require.Equal(t, 1, res.Attempts)
	require.Contains(t, res.Source, "func Sum()")
}

func TestWithRetry_RetriesWithErrorContext(t *testing.T) {
	backend := &fakeBackend{outputs: []string{
		"package gen\n\nfunc Wrong() {}\n",
		"package gen\n\nfunc Sum() {}\n",
	}}

	res := WithRetry(context.Background(), backend, ModuleContext{ExpectedNames: []string{"Sum"}}, 2)
	require.Empty(t, res.Errors)
	require.Equal(t, 2, res.Attempts)

	require.Len(t, backend.extraCtx, 2)
	require.Empty(t, backend.extraCtx[0])
	require.Equal(t, []string{"previous output errors: Missing top-level definition: Sum"}, backend.extraCtx[1])
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	backend := &fakeBackend{outputs: []string{"package gen\n\nfunc Wrong() {}\n"}}

	res := WithRetry(context.Background(), backend, ModuleContext{ExpectedNames: []string{"Sum"}}, 3)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, []string{"Missing top-level definition: Sum"}, res.Errors)
	require.Contains(t, res.Source, "func Wrong()")
}

func TestWithRetry_BackendErrorStopsImmediately(t *testing.T) {
	backend := &fakeBackend{err: errors.New("quota exceeded")}

	res := WithRetry(context.Background(), backend, ModuleContext{ExpectedNames: []string{"Sum"}}, 3)
	require.Equal(t, 1, res.Attempts)
	require.Equal(t, []string{"Generation failed: quota exceeded"}, res.Errors)
	require.Empty(t, res.Source)
}

func TestStripMarkdownFences(t *testing.T) {
	fenced := "```go\npackage gen\n\nfunc Sum() {}\n```"
	require.Equal(t, "package gen\n\nfunc Sum() {}", stripMarkdownFences(fenced))
	require.Equal(t, "package gen", stripMarkdownFences("  package gen\n"))
}

func TestRenderTemplate(t *testing.T) {
	out := renderTemplate("module {{name}} of {{kind}}", map[string]string{"name": "m", "kind": "build"})
	require.Equal(t, "module m of build", out)
}

func TestFmtRefBlock(t *testing.T) {
	require.Equal(t, "(none)", fmtRefBlock(nil))

	out := fmtRefBlock(map[specref.Ref]string{"b:Y": "spec y", "a:X": "spec x"})
	require.Equal(t, "# a:X\nspec x\n\n# b:Y\nspec y\n", out)
}
