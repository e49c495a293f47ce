package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/jaunt/internal/retry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jaunt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "paths:\n  package_dir: .\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"."}, cfg.Paths.SourceRoots)
	require.Equal(t, "gen", cfg.Paths.GeneratedDir)
	require.Equal(t, 4, cfg.Build.Jobs)
	require.True(t, cfg.Build.InferDepsEnabled())
	require.Equal(t, "gemini", cfg.LLM.Provider)
	require.Equal(t, "GEMINI_API_KEY", cfg.LLM.APIKeyEnv)
	require.Equal(t, 2, cfg.LLM.MaxAttempts)
	require.Equal(t, Duration(300*time.Millisecond), cfg.Watch.Debounce)
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `paths:
  source_roots: [src, lib]
  package_dir: src
  generated_dir: generated
build:
  jobs: 8
  infer_deps: false
llm:
  model: gemini-2.5-pro
  api_key_env: MY_KEY
  max_attempts: 3
  backoff_mode: linear
  backoff: 2s
  max_backoff: 20s
  max_retries: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"src", "lib"}, cfg.Paths.SourceRoots)
	require.Equal(t, "generated", cfg.Paths.GeneratedDir)
	require.Equal(t, 8, cfg.Build.Jobs)
	require.False(t, cfg.Build.InferDepsEnabled())
	require.Equal(t, "MY_KEY", cfg.LLM.APIKeyEnv)

	p := cfg.LLM.RetryPolicy()
	require.Equal(t, retry.BackoffLinear, p.Mode)
	require.Equal(t, 2*time.Second, p.Initial)
	require.Equal(t, 20*time.Second, p.Max)
	require.Equal(t, 5, p.MaxRetries)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JAUNT_TEST_MODEL", "gemini-2.5-flash-lite")
	path := writeConfig(t, "llm:\n  model: ${JAUNT_TEST_MODEL}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-flash-lite", cfg.LLM.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "jaunt.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "build:\n  jobs: -1\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "llm:\n  provider: anthropic\n"))
	require.Error(t, err)
}

func TestInit_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jaunt.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini", cfg.LLM.Provider)

	require.Error(t, Init(path, false), "refuses to overwrite without force")
	require.NoError(t, Init(path, true))
}

func TestRetryPolicy_DefaultsWhenUnset(t *testing.T) {
	var l LLMConfig
	require.Equal(t, retry.DefaultPolicy(), l.RetryPolicy())
}
