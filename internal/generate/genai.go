package generate

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"git.home.luguber.info/inful/jaunt/internal/errors"
	"git.home.luguber.info/inful/jaunt/internal/logfields"
	"git.home.luguber.info/inful/jaunt/internal/retry"
)

// Settings configures the Gemini backend.
type Settings struct {
	Model     string
	APIKeyEnv string
	Policy    retry.Policy

	// Optional prompt template override paths.
	SystemPromptPath string
	ModulePromptPath string
}

// GeminiBackend generates module source through the Gemini API.
type GeminiBackend struct {
	client       *genai.Client
	model        string
	policy       retry.Policy
	systemPrompt string
	modulePrompt string
	logger       *slog.Logger
}

// NewGeminiBackend constructs a backend from settings. The API key is read
// from the configured environment variable.
func NewGeminiBackend(ctx context.Context, s Settings) (*GeminiBackend, error) {
	apiKey := strings.TrimSpace(os.Getenv(s.APIKeyEnv))
	if apiKey == "" {
		return nil, errors.Newf(errors.CategoryConfig,
			"missing API key: set %s in the environment or in <project_root>/.env", s.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryProvider, "create genai client")
	}

	systemPrompt, err := loadPrompt(defaultBuildSystem, s.SystemPromptPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "load system prompt")
	}
	modulePrompt, err := loadPrompt(defaultBuildModule, s.ModulePromptPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, "load module prompt")
	}

	return &GeminiBackend{
		client:       client,
		model:        s.Model,
		policy:       s.Policy,
		systemPrompt: systemPrompt,
		modulePrompt: modulePrompt,
		logger:       slog.Default(),
	}, nil
}

// WithLogger sets a custom logger.
func (b *GeminiBackend) WithLogger(logger *slog.Logger) *GeminiBackend {
	b.logger = logger
	return b
}

// GenerateModule renders the prompt and calls the model, retrying transient
// provider errors with backoff before surfacing a terminal failure.
func (b *GeminiBackend) GenerateModule(ctx context.Context, mc ModuleContext, extraErrorContext []string) (string, error) {
	prompt := b.renderPrompt(mc, extraErrorContext)

	var lastErr error
	for attempt := 0; attempt <= b.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := b.policy.Delay(attempt)
			b.logger.Debug("Retrying provider call",
				logfields.Module(mc.SpecModule),
				logfields.Attempt(attempt),
				slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := b.client.Models.GenerateContent(ctx, b.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			&genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(b.systemPrompt, genai.RoleUser),
			},
		)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			lastErr = errors.New(errors.CategoryProvider, "model returned empty content")
			continue
		}
		return stripMarkdownFences(resp.Candidates[0].Content.Parts[0].Text), nil
	}

	return "", errors.Wrap(lastErr, errors.CategoryProvider, "generate content")
}

func (b *GeminiBackend) renderPrompt(mc ModuleContext, extraErrorContext []string) string {
	errorContext := "(none)"
	if len(extraErrorContext) > 0 {
		errorContext = "- " + strings.Join(extraErrorContext, "\n- ")
	}
	return renderTemplate(b.modulePrompt, map[string]string{
		"spec_module":          mc.SpecModule,
		"generated_module":     mc.GeneratedModule,
		"expected_names":       "- " + strings.Join(mc.ExpectedNames, "\n- "),
		"spec_sources":         fmtRefBlock(mc.SpecSources),
		"prompt_hints":         fmtRefBlock(mc.PromptHints),
		"dependency_apis":      fmtRefBlock(mc.DependencyAPIs),
		"dependency_generated": fmtModuleBlock(mc.DependencyGenerated),
		"error_context":        errorContext,
	})
}
