// Package executor runs code in a remote Judge0-compatible sandbox.
package executor

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
	"problem_solver/internal/platform/logger"
	"problem_solver/internal/platform/metrics"
)

type Config struct {
	BaseURL       string
	APIKey        string // sent as X-RapidAPI-Key when set
	APIHost       string
	CPUTimeLimit  float64 // seconds
	MemoryLimitKb int
	MaxPolls      int
	PollInterval  time.Duration
	HTTPTimeout   time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.CPUTimeLimit <= 0 {
		cfg.CPUTimeLimit = 2
	}
	if cfg.MemoryLimitKb <= 0 {
		cfg.MemoryLimitKb = 128000
	}
	if cfg.MaxPolls < 0 {
		cfg.MaxPolls = 0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.HTTPTimeout}}
}

type submissionRequest struct {
	SourceCode   string  `json:"source_code"`
	LanguageID   int     `json:"language_id"`
	Stdin        string  `json:"stdin"`
	CPUTimeLimit float64 `json:"cpu_time_limit"`
	MemoryLimit  int     `json:"memory_limit"`
}

type submissionToken struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type submissionResult struct {
	Token         string           `json:"token"`
	Stdout        *string          `json:"stdout"`
	Stderr        *string          `json:"stderr"`
	CompileOutput *string          `json:"compile_output"`
	Message       *string          `json:"message"`
	Time          *string          `json:"time"`
	Memory        *int             `json:"memory"`
	ExitCode      *int             `json:"exit_code"`
	Status        submissionStatus `json:"status"`
}

type pollState int

const (
	stateSubmitted pollState = iota
	statePolling
	stateTerminal
	statePollLimitReached
)

func (c *Client) Validate(code, language string) error {
	return Validate(code, language)
}

// Execute validates, submits and polls until the job leaves the busy states
// or MaxPolls re-polls have been made. A still-busy result after the last poll
// is returned as-is, not as an error. Transport failures wrap
// common.ErrExecutionTransport.
func (c *Client) Execute(ctx context.Context, code, language, stdin string) (*model.ExecutionResult, error) {
	if err := c.Validate(code, language); err != nil {
		return nil, err
	}
	languageID, _ := LanguageID(language)

	token, err := c.submit(ctx, submissionRequest{
		SourceCode:   code,
		LanguageID:   languageID,
		Stdin:        stdin,
		CPUTimeLimit: c.cfg.CPUTimeLimit,
		MemoryLimit:  c.cfg.MemoryLimitKb,
	})
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("token", token).Str("language", language).Msg("Submitted code to sandbox")

	var (
		state  = stateSubmitted
		latest *submissionResult
		polls  int
	)
	for {
		switch state {
		case stateSubmitted:
			latest, err = c.fetch(ctx, token)
			if err != nil {
				return nil, err
			}
			state = c.nextState(latest, polls)

		case statePolling:
			if err := c.wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: polling %s interrupted: %v", common.ErrExecutionTransport, token, err)
			}
			polls++
			latest, err = c.fetch(ctx, token)
			if err != nil {
				return nil, err
			}
			state = c.nextState(latest, polls)

		case statePollLimitReached:
			logger.Warn().Str("token", token).Int("polls", polls).Int("status", latest.Status.ID).
				Msg("Sandbox job still busy after poll limit")
			return c.finish(latest, token, polls), nil

		case stateTerminal:
			return c.finish(latest, token, polls), nil
		}
	}
}

func (c *Client) nextState(latest *submissionResult, polls int) pollState {
	if !IsBusy(latest.Status.ID) {
		return stateTerminal
	}
	if polls >= c.cfg.MaxPolls {
		return statePollLimitReached
	}
	return statePolling
}

// wait blocks for one poll interval unless ctx is cancelled first.
func (c *Client) wait(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) finish(latest *submissionResult, token string, polls int) *model.ExecutionResult {
	result := normalize(latest)
	result.Token = token
	result.Polls = polls
	metrics.ExecutionPolls.Observe(float64(polls))
	metrics.ExecutionResults.WithLabelValues(result.Status).Inc()
	return result
}

func normalize(r *submissionResult) *model.ExecutionResult {
	var errParts []string
	for _, part := range []*string{r.Stderr, r.CompileOutput} {
		if part != nil && *part != "" {
			errParts = append(errParts, *part)
		}
	}

	result := &model.ExecutionResult{
		Status:     StatusLabel(r.Status.ID),
		StatusCode: r.Status.ID,
		Error:      strings.Join(errParts, "\n"),
		ExitCode:   r.ExitCode,
	}
	if r.Stdout != nil {
		result.Output = *r.Stdout
	}
	if r.Time != nil {
		result.Time = *r.Time
	}
	if r.Memory != nil {
		result.Memory = *r.Memory
	}
	return result
}

func (c *Client) submit(ctx context.Context, payload submissionRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/submissions?base64_encoded=false&wait=false", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build submit request: %v", common.ErrExecutionTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var tok submissionToken
	if err := c.do(req, &tok); err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	if tok.Token == "" {
		return "", fmt.Errorf("%w: sandbox returned an empty token", common.ErrExecutionTransport)
	}
	return tok.Token, nil
}

func (c *Client) fetch(ctx context.Context, token string) (*submissionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/submissions/"+token+"?base64_encoded=false", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build status request: %v", common.ErrExecutionTransport, err)
	}
	var result submissionResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", token, err)
	}
	return &result, nil
}

func (c *Client) do(req *http.Request, out any) error {
	if c.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)
		req.Header.Set("X-RapidAPI-Host", c.cfg.APIHost)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrExecutionTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: sandbox returned status %d: %s", common.ErrExecutionTransport, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode sandbox response: %v", common.ErrExecutionTransport, err)
	}
	return nil
}
