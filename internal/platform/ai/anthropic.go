package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
)

const (
	anthropicAPIVersion     = "2023-06-01"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1/messages"
)

type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model   string             `json:"model"`
	Content []anthropicContent `json:"content"`
	Usage   anthropicUsage     `json:"usage"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type AnthropicProvider struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	defaultModel string
}

func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	p := &AnthropicProvider{
		httpClient:   &http.Client{Timeout: timeout},
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
	}
	if p.baseURL == "" {
		p.baseURL = defaultAnthropicBaseURL
	}
	if p.defaultModel == "" {
		p.defaultModel = "claude-3-sonnet-20240229"
	}
	return p
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

// resolveModel maps the bare family alias onto the configured model.
func (a *AnthropicProvider) resolveModel(name string) string {
	if name == "" || strings.EqualFold(name, "claude") {
		return a.defaultModel
	}
	return name
}

func (a *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("anthropic: %w", common.ErrProviderUnavailable)
	}

	modelName := a.resolveModel(req.Model)
	temperature := req.Temperature
	payload := anthropicRequest{
		Model:       modelName,
		System:      req.SystemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: &temperature,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = 4096
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("anthropic returned status %d with unreadable body: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("anthropic error (%d %s): %s", resp.StatusCode, parsed.Error.Type, parsed.Error.Message)
		}
		return nil, fmt.Errorf("anthropic returned status %d", resp.StatusCode)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic returned no text content")
	}

	return &Completion{
		Text:  text.String(),
		Model: modelName,
		Usage: model.TokenUsage{
			Prompt:     parsed.Usage.InputTokens,
			Completion: parsed.Usage.OutputTokens,
			Total:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}
