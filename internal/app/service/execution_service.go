package service

import (
	"context"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/platform/executor"
	"problem_solver/internal/platform/logger"
)

type ExecuteRequest struct {
	Code     string `json:"code" validate:"required,max=65536"`
	Language string `json:"language" validate:"required"`
	Stdin    string `json:"stdin,omitempty" validate:"max=65536"`
}

// ExecutionService runs ad-hoc code outside the solve pipeline. Unlike the
// pipeline, validation and transport failures are returned to the caller.
type ExecutionService struct {
	runner CodeRunner
}

func NewExecutionService(runner CodeRunner) *ExecutionService {
	return &ExecutionService{runner: runner}
}

func (s *ExecutionService) Run(ctx context.Context, userID string, req ExecuteRequest) (*model.ExecutionResult, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.runner.Validate(req.Code, req.Language); err != nil {
		return nil, err
	}
	result, err := s.runner.Execute(ctx, req.Code, req.Language, req.Stdin)
	if err != nil {
		return nil, common.Errorf("failed to execute code: %w", err)
	}
	logger.Info().Str("user_id", userID).Str("language", req.Language).Str("status", result.Status).
		Int("polls", result.Polls).Msg("Ad-hoc execution finished")
	return result, nil
}

func (s *ExecutionService) Languages() []executor.Language {
	return executor.SupportedLanguages()
}
