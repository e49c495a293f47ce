package specref

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_ColonForm(t *testing.T) {
	ref, err := Normalize("pkg.mod:Func")
	require.NoError(t, err)
	require.Equal(t, Ref("pkg.mod:Func"), ref)
	require.Equal(t, "pkg.mod", ref.Module())
	require.Equal(t, "Func", ref.Qualname())
}

func TestNormalize_DottedQualname(t *testing.T) {
	ref, err := Normalize("pkg.mod:Outer.Method")
	require.NoError(t, err)
	require.Equal(t, "pkg.mod", ref.Module())
	require.Equal(t, "Outer.Method", ref.Qualname())
}

func TestNormalize_DotShorthand(t *testing.T) {
	ref, err := Normalize("pkg.mod.Func")
	require.NoError(t, err)
	require.Equal(t, Ref("pkg.mod:Func"), ref)
}

func TestNormalize_TrimsWhitespace(t *testing.T) {
	ref, err := Normalize("  pkg.mod:Func  ")
	require.NoError(t, err)
	require.Equal(t, Ref("pkg.mod:Func"), ref)
}

func TestNormalize_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"noseparator",
		"a:b:c",
		"pkg mod:Func",
		"pkg.mod:",
		":Func",
		"pkg..mod:Func",
		"1pkg:Func",
	} {
		_, err := Normalize(raw)
		require.Error(t, err, "input %q", raw)
	}
}

func TestMake(t *testing.T) {
	ref, err := Make("pkg.mod", "Outer.Inner")
	require.NoError(t, err)
	require.Equal(t, Ref("pkg.mod:Outer.Inner"), ref)

	_, err = Make("pkg mod", "Func")
	require.Error(t, err)
}
