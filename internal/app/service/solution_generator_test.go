package service

import (
	"context"
	"errors"
	"testing"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/platform/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumArrayAnswer = "Iterate once and keep a running total.\n\n" +
	"1. Initialize a running total\n" +
	"2. Add each element to the total\n" +
	"3. Return the total\n\n" +
	"```python\ndef sum_array(arr):\n    total = 0\n    for x in arr:\n        total += x\n    return total\n```\n\n" +
	"Optimized:\n\n```python\ndef sum_array(arr):\n    return sum(arr)\n```\n"

func sumArrayProblem() *model.Problem {
	lang := "python"
	return &model.Problem{
		ID:          "p-1",
		Title:       "Sum array",
		Description: "Return the sum of an integer array.",
		Category:    model.CategoryProgramming,
		Language:    &lang,
		Difficulty:  model.DifficultyEasy,
	}
}

func TestSolutionGenerator_ParsesAndNormalizes(t *testing.T) {
	primary := &fakeProvider{name: "openai", text: sumArrayAnswer}
	gen := NewSolutionGenerator(ai.NewRegistry(primary), GeneratorConfig{Temperature: 0.7, MaxTokens: 1500})

	sol, err := gen.Generate(context.Background(), sumArrayProblem(), "")

	require.NoError(t, err)
	assert.Equal(t, "p-1", sol.ProblemID)
	assert.Equal(t, "gpt-4-0613", sol.AIModel)
	assert.Equal(t, sumArrayAnswer, sol.Answer)
	assert.Equal(t, "python", sol.Code.Language)
	assert.Contains(t, sol.Code.Snippet, "total += x")
	assert.Contains(t, sol.Code.OptimizedVersion, "return sum(arr)")
	require.Len(t, sol.Steps, 3)
	assert.Equal(t, 200, sol.TokensUsed.Total)
	assert.GreaterOrEqual(t, sol.ProcessingTimeMs, int64(0))

	assert.Equal(t, "gpt-4", primary.lastReq.Model)
	assert.Equal(t, SystemPromptFor(model.CategoryProgramming), primary.lastReq.SystemPrompt)
	assert.Contains(t, primary.lastReq.UserPrompt, "Preferred language: python")
	assert.Contains(t, primary.lastReq.UserPrompt, "Difficulty: easy")
	assert.InDelta(t, 0.7, primary.lastReq.Temperature, 1e-6)
	assert.Equal(t, 1500, primary.lastReq.MaxTokens)
}

func TestSolutionGenerator_RoutesClaudeModels(t *testing.T) {
	primary := &fakeProvider{name: "openai", text: "a"}
	secondary := &fakeProvider{name: "anthropic", text: "b"}
	reg := ai.NewRegistry(primary).Route("claude", secondary)

	_, err := NewSolutionGenerator(reg, GeneratorConfig{}).Generate(context.Background(), sumArrayProblem(), "claude-3-opus")

	require.NoError(t, err)
	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestSolutionGenerator_FailureDoesNotRetry(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("connection reset")}
	gen := NewSolutionGenerator(ai.NewRegistry(primary), GeneratorConfig{})

	_, err := gen.Generate(context.Background(), sumArrayProblem(), "")

	assert.ErrorIs(t, err, common.ErrGenerationFailed)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, primary.calls)
}

func TestSolutionGenerator_ProviderUnavailableKeepsKind(t *testing.T) {
	secondary := &fakeProvider{name: "anthropic", err: common.ErrProviderUnavailable}
	reg := ai.NewRegistry(&fakeProvider{name: "openai"}).Route("claude", secondary)

	_, err := NewSolutionGenerator(reg, GeneratorConfig{}).Generate(context.Background(), sumArrayProblem(), "claude")

	assert.ErrorIs(t, err, common.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, common.ErrGenerationFailed)
}

func TestPrompts(t *testing.T) {
	assert.Equal(t, genericSystemPrompt, SystemPromptFor(model.CategoryOther))
	assert.Equal(t, genericSystemPrompt, SystemPromptFor("astrology"))
	assert.NotEqual(t, genericSystemPrompt, SystemPromptFor(model.CategoryPhysics))

	p := &model.Problem{Title: "Projectile", Description: "Find the range."}
	prompt := BuildUserPrompt(p)
	assert.Equal(t, prompt, BuildUserPrompt(p))
	assert.NotContains(t, prompt, "Preferred language")
	assert.NotContains(t, prompt, "Difficulty")
	for _, item := range []string{"explanation", "Step-by-step", "Code implementation", "complexity", "Alternative"} {
		assert.Contains(t, prompt, item)
	}
}
