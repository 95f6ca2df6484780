package model

import "time"

type CodeBlock struct {
	Language         string `json:"language"`
	Snippet          string `json:"snippet"`
	OptimizedVersion string `json:"optimized_version,omitempty"`
}

// Step numbers run 1..n in document order.
type Step struct {
	StepNumber  int     `json:"step_number"`
	Description string  `json:"description"`
	Code        *string `json:"code,omitempty"`
}

type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

type Feedback struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type Solution struct {
	ID               string           `json:"id"`
	ProblemID        string           `json:"problem_id"`
	AIModel          string           `json:"ai_model"`
	Answer           string           `json:"answer"`
	Explanation      string           `json:"explanation"`
	Code             CodeBlock        `json:"code"`
	Steps            []Step           `json:"steps"`
	ExecutionResult  *ExecutionResult `json:"execution_result,omitempty"`
	TokensUsed       TokenUsage       `json:"tokens_used"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	Feedback         *Feedback        `json:"feedback,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// HasRunnableCode reports whether the answer carried a non-empty snippet.
func (s *Solution) HasRunnableCode() bool {
	return s.Code.Snippet != ""
}
