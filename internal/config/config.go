// Package config loads and validates jaunt.yaml.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/jaunt/internal/retry"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "jaunt.yaml"

// Duration is a time.Duration that unmarshals from "2s" style strings or
// bare second counts.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	return fmt.Errorf("invalid duration value at line %d", value.Line)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config represents the application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Build   BuildConfig   `yaml:"build"`
	LLM     LLMConfig     `yaml:"llm"`
	Prompts PromptsConfig `yaml:"prompts,omitempty"`
	Watch   WatchConfig   `yaml:"watch,omitempty"`
}

// PathsConfig locates declaration sources and generated artifacts
type PathsConfig struct {
	SourceRoots  []string `yaml:"source_roots"`
	PackageDir   string   `yaml:"package_dir"`
	GeneratedDir string   `yaml:"generated_dir,omitempty"` // Relative to package_dir
}

// BuildConfig controls scheduling and dependency inference
type BuildConfig struct {
	Jobs      int   `yaml:"jobs,omitempty"`
	InferDeps *bool `yaml:"infer_deps,omitempty"`
}

// LLMConfig selects the generation backend
type LLMConfig struct {
	Provider    string   `yaml:"provider,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	APIKeyEnv   string   `yaml:"api_key_env,omitempty"`
	MaxAttempts int      `yaml:"max_attempts,omitempty"` // Generate-validate attempts per module
	BackoffMode string   `yaml:"backoff_mode,omitempty"`
	Backoff     Duration `yaml:"backoff,omitempty"`
	MaxBackoff  Duration `yaml:"max_backoff,omitempty"`
	MaxRetries  int      `yaml:"max_retries,omitempty"` // Request retries within one attempt
}

// PromptsConfig points at optional prompt template overrides
type PromptsConfig struct {
	System string `yaml:"system,omitempty"`
	Module string `yaml:"module,omitempty"`
}

// WatchConfig tunes watch mode
type WatchConfig struct {
	Debounce Duration `yaml:"debounce,omitempty"`
}

// InferDepsEnabled reports whether dependency inference is on (default true).
func (b BuildConfig) InferDepsEnabled() bool {
	return b.InferDeps == nil || *b.InferDeps
}

// RetryPolicy builds the request retry policy from the LLM settings.
func (l LLMConfig) RetryPolicy() retry.Policy {
	retries := -1
	if l.MaxRetries > 0 {
		retries = l.MaxRetries
	}
	return retry.NewPolicy(retry.BackoffMode(l.BackoffMode), time.Duration(l.Backoff), time.Duration(l.MaxBackoff), retries)
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env if present so api_key_env lookups work out of the box
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	if len(c.Paths.SourceRoots) == 0 {
		c.Paths.SourceRoots = []string{"."}
	}
	if c.Paths.PackageDir == "" {
		c.Paths.PackageDir = "."
	}
	if c.Paths.GeneratedDir == "" {
		c.Paths.GeneratedDir = "gen"
	}
	if c.Build.Jobs == 0 {
		c.Build.Jobs = 4
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-flash"
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = 2
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(300 * time.Millisecond)
	}
}

// Validate rejects settings the rest of the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.Build.Jobs < 1 {
		return fmt.Errorf("build.jobs must be at least 1, got %d", c.Build.Jobs)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1, got %d", c.LLM.MaxAttempts)
	}
	if c.LLM.Provider != "gemini" {
		return fmt.Errorf("unsupported llm.provider: %s", c.LLM.Provider)
	}
	if err := c.LLM.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("invalid llm retry settings: %w", err)
	}
	return nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Paths: PathsConfig{
			SourceRoots:  []string{"."},
			PackageDir:   ".",
			GeneratedDir: "gen",
		},
		Build: BuildConfig{
			Jobs: 4,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			MaxAttempts: 2,
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
