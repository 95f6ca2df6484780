package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/platform/logger"

	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // empty keeps the library default
	DefaultModel string
	Timeout      time.Duration
}

type OpenAIProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider never fails; without an API key every call reports
// ErrProviderUnavailable.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	p := &OpenAIProvider{defaultModel: cfg.DefaultModel}
	if p.defaultModel == "" {
		p.defaultModel = "gpt-4"
	}
	if cfg.APIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY not set, OpenAI provider disabled")
		return p
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	p.client = openai.NewClientWithConfig(clientCfg)
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if p.client == nil {
		return nil, fmt.Errorf("openai: %w", common.ErrProviderUnavailable)
	}
	modelName := req.Model
	if modelName == "" {
		modelName = p.defaultModel
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	logger.Debug().Str("model", resp.Model).Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Msg("Received response from OpenAI")

	return &Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: modelName,
		Usage: model.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
	}, nil
}
