package model

import (
	"time"
)

type ProblemDifficulty string
type ProblemStatus string
type ProblemCategory string

const (
	DifficultyEasy   ProblemDifficulty = "easy"
	DifficultyMedium ProblemDifficulty = "medium"
	DifficultyHard   ProblemDifficulty = "hard"

	// pending and processing are transient; solved and failed are terminal.
	StatusPending    ProblemStatus = "pending"
	StatusProcessing ProblemStatus = "processing"
	StatusSolved     ProblemStatus = "solved"
	StatusFailed     ProblemStatus = "failed"

	CategoryProgramming     ProblemCategory = "programming"
	CategoryMathematics     ProblemCategory = "mathematics"
	CategoryPhysics         ProblemCategory = "physics"
	CategoryChemistry       ProblemCategory = "chemistry"
	CategoryBiology         ProblemCategory = "biology"
	CategoryComputerScience ProblemCategory = "computer_science"
	CategoryEngineering     ProblemCategory = "engineering"
	CategoryOther           ProblemCategory = "other"
)

// Categories lists the closed category set in display order.
var Categories = []ProblemCategory{
	CategoryProgramming,
	CategoryMathematics,
	CategoryPhysics,
	CategoryChemistry,
	CategoryBiology,
	CategoryComputerScience,
	CategoryEngineering,
	CategoryOther,
}

func (s ProblemStatus) IsTerminal() bool {
	return s == StatusSolved || s == StatusFailed
}

type Problem struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Category    ProblemCategory   `json:"category"`
	Language    *string           `json:"language,omitempty"`
	Difficulty  ProblemDifficulty `json:"difficulty,omitempty"`
	Tags        []string          `json:"tags"`
	// RequestedModel is the AI model asked for at submission, "" for the default.
	RequestedModel string        `json:"requested_model,omitempty"`
	Status         ProblemStatus `json:"status"`
	SolutionID     *string       `json:"solution_id,omitempty"`
	FailureReason  *string       `json:"failure_reason,omitempty"`
	Views          int           `json:"views"`
	IsBookmarked   bool          `json:"is_bookmarked"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// LanguageTag returns the language or "" when none was supplied.
func (p *Problem) LanguageTag() string {
	if p.Language == nil {
		return ""
	}
	return *p.Language
}
