package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/domain/repository"
	"problem_solver/internal/platform/logger"
	"problem_solver/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// SolutionProducer turns a problem into an unsaved Solution.
type SolutionProducer interface {
	Generate(ctx context.Context, problem *model.Problem, preferredModel string) (*model.Solution, error)
}

// CodeRunner validates and runs code in the sandbox.
type CodeRunner interface {
	Validate(code, language string) error
	Execute(ctx context.Context, code, language, stdin string) (*model.ExecutionResult, error)
}

// JobQueue hands problem ids to the background solve worker.
type JobQueue interface {
	Enqueue(ctx context.Context, problemID string) error
}

// SolverService drives problems through pending -> processing -> solved | failed.
// Every step is written before the next one starts.
type SolverService struct {
	problemRepo  repository.ProblemRepository
	solutionRepo repository.SolutionRepository
	userRepo     repository.UserRepository
	quota        *QuotaTracker
	generator    SolutionProducer
	runner       CodeRunner
	queue        JobQueue
	db           *sql.DB // For transactions
}

func NewSolverService(
	problemRepo repository.ProblemRepository,
	solutionRepo repository.SolutionRepository,
	userRepo repository.UserRepository,
	quota *QuotaTracker,
	generator SolutionProducer,
	runner CodeRunner,
	queue JobQueue,
	db *sql.DB,
) *SolverService {
	return &SolverService{
		problemRepo:  problemRepo,
		solutionRepo: solutionRepo,
		userRepo:     userRepo,
		quota:        quota,
		generator:    generator,
		runner:       runner,
		queue:        queue,
		db:           db,
	}
}

type SolveRequest struct {
	Title       string                  `json:"title" validate:"required,max=200"`
	Description string                  `json:"description" validate:"required,max=10000"`
	Category    model.ProblemCategory   `json:"category" validate:"required,oneof=programming mathematics physics chemistry biology computer_science engineering other"`
	Language    string                  `json:"language,omitempty" validate:"omitempty,max=32"`
	Difficulty  model.ProblemDifficulty `json:"difficulty,omitempty" validate:"omitempty,oneof=easy medium hard"`
	Tags        []string                `json:"tags,omitempty" validate:"max=10,dive,required,max=50"`
	AIModel     string                  `json:"ai_model,omitempty" validate:"omitempty,max=100"`
}

// SolveResult is the problem in its final state plus the solution, if one was stored.
type SolveResult struct {
	Problem  *model.Problem  `json:"problem"`
	Solution *model.Solution `json:"solution,omitempty"`
}

type ProblemListResponse struct {
	Problems []model.Problem `json:"problems"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=1000"`
}

// Solve runs the whole pipeline for userID before returning. A generation
// failure is reported through the returned problem's failed status, not as an error.
func (s *SolverService) Solve(ctx context.Context, userID string, req SolveRequest) (*SolveResult, error) {
	user, err := s.admit(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	problem := newProblem(userID, req, model.StatusProcessing)
	if err := s.problemRepo.CreateProblem(ctx, nil, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}
	logger.Info().Str("problem_id", problem.ID).Str("user_id", userID).Msg("Problem accepted, solving")

	return s.run(ctx, user, problem)
}

// Submit admits and stores the problem as pending, then queues it for the worker.
func (s *SolverService) Submit(ctx context.Context, userID string, req SolveRequest) (*model.Problem, error) {
	if s.queue == nil {
		return nil, common.Errorf("async solving is not configured: %w", common.ErrServiceUnavailable)
	}
	if _, err := s.admit(ctx, userID, req); err != nil {
		return nil, err
	}

	problem := newProblem(userID, req, model.StatusPending)
	if err := s.problemRepo.CreateProblem(ctx, nil, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}

	if err := s.queue.Enqueue(ctx, problem.ID); err != nil {
		logger.Error().Err(err).Str("problem_id", problem.ID).Msg("Failed to enqueue problem")
		if ferr := s.markFailed(ctx, problem, "problem could not be queued for solving"); ferr != nil {
			logger.Error().Err(ferr).Str("problem_id", problem.ID).Msg("Failed to mark unqueued problem as failed")
		}
		return nil, common.Errorf("failed to queue problem %s: %w", problem.ID, common.ErrServiceUnavailable)
	}

	metrics.PipelineOutcomes.WithLabelValues(metrics.OutcomeQueued).Inc()
	logger.Info().Str("problem_id", problem.ID).Str("user_id", userID).Msg("Problem queued")
	return problem, nil
}

// Process continues a queued problem. Problems no longer pending are skipped.
func (s *SolverService) Process(ctx context.Context, problemID string) (*SolveResult, error) {
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, common.Errorf("failed to load problem %s: %w", problemID, err)
	}
	if problem.Status != model.StatusPending {
		logger.Warn().Str("problem_id", problemID).Str("status", string(problem.Status)).Msg("Skipping problem that is not pending")
		return &SolveResult{Problem: problem}, nil
	}

	user, err := s.userRepo.FindByID(ctx, problem.UserID)
	if err != nil {
		return nil, common.Errorf("failed to load owner of problem %s: %w", problemID, err)
	}

	if err := s.problemRepo.UpdateProblemStatus(ctx, nil, problem.ID, model.StatusProcessing, nil, nil); err != nil {
		return nil, common.Errorf("failed to move problem %s to processing: %w", problemID, err)
	}
	problem.Status = model.StatusProcessing

	return s.run(ctx, user, problem)
}

func (s *SolverService) admit(ctx context.Context, userID string, req SolveRequest) (*model.User, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load user %s: %w", userID, err)
	}
	if !s.quota.CanAdmit(user) {
		metrics.PipelineOutcomes.WithLabelValues(metrics.OutcomeRejected).Inc()
		logger.Info().Str("user_id", userID).Int("limit", user.Subscription.QueryLimit).Msg("Submission rejected, quota exhausted")
		return nil, common.ErrQuotaExceeded
	}
	return user, nil
}

// run takes a problem already stored as processing to a terminal state.
func (s *SolverService) run(ctx context.Context, user *model.User, problem *model.Problem) (*SolveResult, error) {
	solution, err := s.generator.Generate(ctx, problem, problem.RequestedModel)
	if err != nil {
		if ferr := s.markFailed(ctx, problem, err.Error()); ferr != nil {
			return nil, ferr
		}
		return &SolveResult{Problem: problem}, nil
	}

	if err := s.solutionRepo.CreateSolution(ctx, nil, solution); err != nil {
		logger.Error().Err(err).Str("problem_id", problem.ID).Msg("Failed to store solution")
		if ferr := s.markFailed(ctx, problem, "failed to store solution"); ferr != nil {
			return nil, ferr
		}
		return &SolveResult{Problem: problem}, nil
	}

	if lang := problem.LanguageTag(); solution.HasRunnableCode() && lang != "" && s.runner != nil {
		solution.ExecutionResult = s.execute(ctx, problem.ID, solution.Code.Snippet, lang)
		if err := s.solutionRepo.UpdateExecutionResult(ctx, solution.ID, solution.ExecutionResult); err != nil {
			logger.Warn().Err(err).Str("problem_id", problem.ID).Str("solution_id", solution.ID).Msg("Failed to store execution result")
		}
	}

	solutionID := solution.ID
	if err := s.problemRepo.UpdateProblemStatus(ctx, nil, problem.ID, model.StatusSolved, &solutionID, nil); err != nil {
		return nil, common.Errorf("failed to mark problem %s solved: %w", problem.ID, err)
	}
	problem.Status = model.StatusSolved
	problem.SolutionID = &solutionID
	problem.FailureReason = nil

	if err := s.quota.RecordUsage(ctx, user); err != nil {
		logger.Error().Err(err).Str("problem_id", problem.ID).Str("user_id", user.ID).Msg("Failed to record quota usage")
	}

	metrics.PipelineOutcomes.WithLabelValues(metrics.OutcomeSolved).Inc()
	logger.Info().Str("problem_id", problem.ID).Str("solution_id", solutionID).Str("model", solution.AIModel).
		Int64("processing_time_ms", solution.ProcessingTimeMs).Msg("Problem solved")
	return &SolveResult{Problem: problem, Solution: solution}, nil
}

// execute never fails the pipeline; any error becomes a degraded result.
func (s *SolverService) execute(ctx context.Context, problemID, code, language string) *model.ExecutionResult {
	if err := s.runner.Validate(code, language); err != nil {
		logger.Info().Err(err).Str("problem_id", problemID).Msg("Generated code rejected by pre-flight validation")
		return model.DegradedResult(err.Error())
	}
	result, err := s.runner.Execute(ctx, code, language, "")
	if err != nil {
		logger.Warn().Err(err).Str("problem_id", problemID).Msg("Code execution failed")
		return model.DegradedResult(err.Error())
	}
	return result
}

func (s *SolverService) markFailed(ctx context.Context, problem *model.Problem, reason string) error {
	if err := s.problemRepo.UpdateProblemStatus(ctx, nil, problem.ID, model.StatusFailed, nil, &reason); err != nil {
		return common.Errorf("failed to mark problem %s failed: %w", problem.ID, err)
	}
	problem.Status = model.StatusFailed
	problem.SolutionID = nil
	problem.FailureReason = &reason

	metrics.PipelineOutcomes.WithLabelValues(metrics.OutcomeFailed).Inc()
	logger.Warn().Str("problem_id", problem.ID).Str("reason", reason).Msg("Problem failed")
	return nil
}

func newProblem(userID string, req SolveRequest, status model.ProblemStatus) *model.Problem {
	p := &model.Problem{
		ID:             uuid.NewString(),
		UserID:         userID,
		Title:          strings.TrimSpace(req.Title),
		Slug:           slug.Make(req.Title),
		Description:    req.Description,
		Category:       req.Category,
		Difficulty:     req.Difficulty,
		Tags:           req.Tags,
		RequestedModel: req.AIModel,
		Status:         status,
	}
	if lang := strings.ToLower(strings.TrimSpace(req.Language)); lang != "" {
		p.Language = &lang
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p
}

// GetProblem returns the problem with its solution and counts the view.
func (s *SolverService) GetProblem(ctx context.Context, userID, role, problemID string) (*SolveResult, error) {
	problem, err := s.authorize(ctx, userID, role, problemID)
	if err != nil {
		return nil, err
	}

	if err := s.problemRepo.IncrementViews(ctx, problem.ID); err != nil {
		logger.Warn().Err(err).Str("problem_id", problem.ID).Msg("Failed to increment views")
	} else {
		problem.Views++
	}

	out := &SolveResult{Problem: problem}
	if problem.SolutionID != nil {
		solution, err := s.solutionRepo.FindSolutionByProblemID(ctx, problem.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("failed to load solution for problem %s: %w", problem.ID, err)
		}
		out.Solution = solution
	}
	return out, nil
}

func (s *SolverService) ListProblems(ctx context.Context, userID string, page, pageSize int, filter repository.ProblemFilter) (*ProblemListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	problems, total, err := s.problemRepo.ListProblemsByUser(ctx, userID, pageSize, (page-1)*pageSize, filter)
	if err != nil {
		return nil, common.Errorf("failed to list problems: %w", err)
	}
	return &ProblemListResponse{Problems: problems, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *SolverService) ToggleBookmark(ctx context.Context, userID, role, problemID string) (bool, error) {
	if _, err := s.authorize(ctx, userID, role, problemID); err != nil {
		return false, err
	}
	return s.problemRepo.ToggleBookmark(ctx, problemID)
}

// DeleteProblem removes the solution and then the problem in one transaction.
func (s *SolverService) DeleteProblem(ctx context.Context, userID, role, problemID string) error {
	if _, err := s.authorize(ctx, userID, role, problemID); err != nil {
		return err
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.solutionRepo.DeleteSolutionByProblemID(ctx, tx, problemID); err != nil {
			return common.Errorf("failed to delete solution: %w", err)
		}
		if err := s.problemRepo.DeleteProblem(ctx, tx, problemID); err != nil {
			return common.Errorf("failed to delete problem: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info().Str("problem_id", problemID).Str("user_id", userID).Msg("Problem deleted")
	return nil
}

func (s *SolverService) SubmitFeedback(ctx context.Context, userID, role, solutionID string, req FeedbackRequest) (*model.Solution, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	solution, err := s.solutionRepo.FindSolutionByID(ctx, solutionID)
	if err != nil {
		return nil, common.Errorf("failed to load solution %s: %w", solutionID, err)
	}
	if _, err := s.authorize(ctx, userID, role, solution.ProblemID); err != nil {
		return nil, err
	}

	feedback := model.Feedback{Rating: req.Rating, Comment: req.Comment}
	if err := s.solutionRepo.UpdateFeedback(ctx, solutionID, feedback); err != nil {
		return nil, common.Errorf("failed to store feedback: %w", err)
	}
	solution.Feedback = &feedback
	return solution, nil
}

// authorize loads the problem if userID owns it or role is admin.
func (s *SolverService) authorize(ctx context.Context, userID, role, problemID string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, common.Errorf("failed to load problem %s: %w", problemID, err)
	}
	if problem.UserID != userID && role != model.RoleAdmin {
		return nil, common.ErrForbidden
	}
	return problem, nil
}

// inTx runs fn in a transaction; without a database handle fn gets a nil tx.
func (s *SolverService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.db == nil {
		return fn(nil)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
