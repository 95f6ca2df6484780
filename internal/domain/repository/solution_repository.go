package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
)

type SolutionRepository interface {
	CreateSolution(ctx context.Context, tx *sql.Tx, sol *model.Solution) error
	FindSolutionByID(ctx context.Context, id string) (*model.Solution, error)
	FindSolutionByProblemID(ctx context.Context, problemID string) (*model.Solution, error)
	UpdateExecutionResult(ctx context.Context, id string, result *model.ExecutionResult) error
	UpdateFeedback(ctx context.Context, id string, feedback model.Feedback) error
	DeleteSolutionByProblemID(ctx context.Context, tx *sql.Tx, problemID string) error
}

type pgSolutionRepository struct {
	db *sql.DB
}

func NewPgSolutionRepository(db *sql.DB) SolutionRepository {
	return &pgSolutionRepository{db: db}
}

const solutionColumns = `id, problem_id, ai_model, answer, explanation, code, steps, execution_result,
               tokens_used, processing_time_ms, feedback, created_at, updated_at`

func (r *pgSolutionRepository) CreateSolution(ctx context.Context, tx *sql.Tx, s *model.Solution) error {
	code, err := json.Marshal(s.Code)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.CreateSolution marshal code: %w", err)
	}
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.CreateSolution marshal steps: %w", err)
	}
	tokens, err := json.Marshal(s.TokensUsed)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.CreateSolution marshal tokens: %w", err)
	}
	execResult, err := nullableJSON(s.ExecutionResult)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.CreateSolution marshal execution result: %w", err)
	}

	query := `INSERT INTO solutions (id, problem_id, ai_model, answer, explanation, code, steps, execution_result, tokens_used, processing_time_ms)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING created_at, updated_at`
	err = queryRower(r.db, tx).QueryRowContext(ctx, query,
		s.ID, s.ProblemID, s.AIModel, s.Answer, s.Explanation, code, steps, execResult, tokens, s.ProcessingTimeMs,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.CreateSolution: %w", err)
	}
	return nil
}

func (r *pgSolutionRepository) FindSolutionByID(ctx context.Context, id string) (*model.Solution, error) {
	return r.findOne(ctx, "FindSolutionByID", `SELECT `+solutionColumns+` FROM solutions WHERE id = $1`, id)
}

func (r *pgSolutionRepository) FindSolutionByProblemID(ctx context.Context, problemID string) (*model.Solution, error) {
	return r.findOne(ctx, "FindSolutionByProblemID", `SELECT `+solutionColumns+` FROM solutions WHERE problem_id = $1`, problemID)
}

func (r *pgSolutionRepository) findOne(ctx context.Context, op, query string, arg string) (*model.Solution, error) {
	s := &model.Solution{}
	var code, steps, execResult, tokens, feedback []byte
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&s.ID, &s.ProblemID, &s.AIModel, &s.Answer, &s.Explanation, &code, &steps, &execResult,
		&tokens, &s.ProcessingTimeMs, &feedback, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolutionRepository.%s: %w", op, err)
	}

	if err := unmarshalJSONB(code, &s.Code); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(steps, &s.Steps); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(tokens, &s.TokensUsed); err != nil {
		return nil, err
	}
	if len(execResult) > 0 {
		s.ExecutionResult = &model.ExecutionResult{}
		if err := unmarshalJSONB(execResult, s.ExecutionResult); err != nil {
			return nil, err
		}
	}
	if len(feedback) > 0 {
		s.Feedback = &model.Feedback{}
		if err := unmarshalJSONB(feedback, s.Feedback); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *pgSolutionRepository) UpdateExecutionResult(ctx context.Context, id string, result *model.ExecutionResult) error {
	payload, err := nullableJSON(result)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.UpdateExecutionResult marshal: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE solutions SET execution_result = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, payload, id)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.UpdateExecutionResult: %w", err)
	}
	return expectOneRow(res, "pgSolutionRepository.UpdateExecutionResult")
}

func (r *pgSolutionRepository) UpdateFeedback(ctx context.Context, id string, feedback model.Feedback) error {
	payload, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.UpdateFeedback marshal: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE solutions SET feedback = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, payload, id)
	if err != nil {
		return fmt.Errorf("pgSolutionRepository.UpdateFeedback: %w", err)
	}
	return expectOneRow(res, "pgSolutionRepository.UpdateFeedback")
}

// DeleteSolutionByProblemID is a no-op when the problem never got a solution.
func (r *pgSolutionRepository) DeleteSolutionByProblemID(ctx context.Context, tx *sql.Tx, problemID string) error {
	if _, err := execer(r.db, tx).ExecContext(ctx, `DELETE FROM solutions WHERE problem_id = $1`, problemID); err != nil {
		return fmt.Errorf("pgSolutionRepository.DeleteSolutionByProblemID: %w", err)
	}
	return nil
}
