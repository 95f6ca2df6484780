package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"problem_solver/internal/app/parser"
	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/platform/ai"
	"problem_solver/internal/platform/logger"
	"problem_solver/internal/platform/metrics"

	"github.com/google/uuid"
)

type GeneratorConfig struct {
	DefaultModel string
	Temperature  float32
	MaxTokens    int
}

// SolutionGenerator makes exactly one provider call per Generate; retries are the caller's business.
type SolutionGenerator struct {
	providers *ai.Registry
	cfg       GeneratorConfig
	now       func() time.Time
}

func NewSolutionGenerator(providers *ai.Registry, cfg GeneratorConfig) *SolutionGenerator {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "gpt-4"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	return &SolutionGenerator{providers: providers, cfg: cfg, now: time.Now}
}

// Generate returns an unsaved Solution for the problem. Failures wrap
// common.ErrGenerationFailed, or common.ErrProviderUnavailable when the
// routed provider has no credential.
func (g *SolutionGenerator) Generate(ctx context.Context, problem *model.Problem, preferredModel string) (*model.Solution, error) {
	modelName := preferredModel
	if modelName == "" {
		modelName = g.cfg.DefaultModel
	}

	provider, err := g.providers.Resolve(modelName)
	if err != nil {
		return nil, err
	}

	req := ai.CompletionRequest{
		Model:        modelName,
		SystemPrompt: SystemPromptFor(problem.Category),
		UserPrompt:   BuildUserPrompt(problem),
		Temperature:  g.cfg.Temperature,
		MaxTokens:    g.cfg.MaxTokens,
	}

	started := g.now()
	completion, err := provider.Complete(ctx, req)
	elapsed := g.now().Sub(started)
	metrics.AIRequestDuration.WithLabelValues(provider.Name()).Observe(elapsed.Seconds())

	if err != nil {
		logger.Error().Err(err).Str("problem_id", problem.ID).Str("provider", provider.Name()).
			Str("model", modelName).Dur("elapsed", elapsed).Msg("AI completion failed")
		if errors.Is(err, common.ErrProviderUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrGenerationFailed, err)
	}

	metrics.AITokens.WithLabelValues(provider.Name(), "prompt").Add(float64(completion.Usage.Prompt))
	metrics.AITokens.WithLabelValues(provider.Name(), "completion").Add(float64(completion.Usage.Completion))

	answeredBy := completion.Model
	if answeredBy == "" {
		answeredBy = modelName
	}
	logger.Info().Str("problem_id", problem.ID).Str("provider", provider.Name()).Str("model", answeredBy).
		Int("tokens", completion.Usage.Total).Dur("elapsed", elapsed).Msg("AI completion received")

	parsed := parser.Parse(completion.Text)
	return &model.Solution{
		ID:               uuid.NewString(),
		ProblemID:        problem.ID,
		AIModel:          answeredBy,
		Answer:           completion.Text,
		Explanation:      parsed.Explanation,
		Code:             parsed.Code,
		Steps:            parsed.Steps,
		TokensUsed:       completion.Usage,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}, nil
}
