package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/domain/repository"
	"problem_solver/internal/platform/ai"
	"problem_solver/internal/platform/executor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type solverFixture struct {
	svc       *SolverService
	problems  *memProblemRepo
	solutions *memSolutionRepo
	users     *memUserRepo
	provider  *fakeProvider
	queue     *fakeQueue
}

func newSolverFixture(t *testing.T, runner CodeRunner, limit int) *solverFixture {
	t.Helper()
	now := time.Now()
	owner := model.User{
		ID:   "user-1",
		Role: model.RoleUser,
		Subscription: model.Subscription{
			Plan: model.PlanFree, QueryLimit: limit, LastResetDate: now,
		},
	}
	f := &solverFixture{
		problems:  newMemProblemRepo(),
		solutions: newMemSolutionRepo(),
		users:     newMemUserRepo(owner, model.User{ID: "user-2", Role: model.RoleUser}),
		provider:  &fakeProvider{name: "openai", text: sumArrayAnswer},
		queue:     &fakeQueue{},
	}
	gen := NewSolutionGenerator(ai.NewRegistry(f.provider), GeneratorConfig{})
	quota := NewQuotaTracker(f.users).WithClock(func() time.Time { return now })
	f.svc = NewSolverService(f.problems, f.solutions, f.users, quota, gen, runner, f.queue, nil)
	return f
}

// acceptingSandbox answers every submission with status 3.
func acceptingSandbox(t *testing.T) (*executor.Client, func() int) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"token":"tok-9"}`))
			return
		}
		w.Write([]byte(`{"stdout":"15\n","time":"0.02","memory":2048,"exit_code":0,"status":{"id":3,"description":"Accepted"}}`))
	}))
	t.Cleanup(server.Close)
	return executor.NewClient(executor.Config{BaseURL: server.URL, MaxPolls: 10, PollInterval: time.Millisecond}),
		func() int { return int(calls.Load()) }
}

var sumArrayRequest = SolveRequest{
	Title:       "Sum array",
	Description: "Return the sum of an integer array.",
	Category:    model.CategoryProgramming,
	Language:    "python",
}

func TestSolve_EndToEndSolved(t *testing.T) {
	sandbox, sandboxCalls := acceptingSandbox(t)
	f := newSolverFixture(t, sandbox, 10)

	res, err := f.svc.Solve(context.Background(), "user-1", sumArrayRequest)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, res.Problem.Status)
	require.NotNil(t, res.Problem.SolutionID)
	assert.Equal(t, "sum-array", res.Problem.Slug)

	require.NotNil(t, res.Solution)
	assert.Equal(t, "python", res.Solution.Code.Language)
	require.Len(t, res.Solution.Steps, 3)
	for i, step := range res.Solution.Steps {
		assert.Equal(t, i+1, step.StepNumber)
	}
	require.NotNil(t, res.Solution.ExecutionResult)
	assert.Equal(t, "Accepted", res.Solution.ExecutionResult.Status)
	assert.Equal(t, 2, sandboxCalls())

	stored, err := f.problems.FindProblemByID(context.Background(), res.Problem.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, stored.Status)
	assert.Equal(t, []model.ProblemStatus{model.StatusProcessing, model.StatusSolved}, f.problems.statuses)

	storedSol, err := f.solutions.FindSolutionByID(context.Background(), *stored.SolutionID)
	require.NoError(t, err)
	require.NotNil(t, storedSol.ExecutionResult)
	assert.Equal(t, "Accepted", storedSol.ExecutionResult.Status)

	user, _ := f.users.FindByID(context.Background(), "user-1")
	assert.Equal(t, 1, user.Subscription.MonthlyQueries)
	assert.Equal(t, 1, user.Subscription.TotalQueries)
}

func TestSolve_GenerationFailureMarksFailed(t *testing.T) {
	runner := &fakeRunner{}
	f := newSolverFixture(t, runner, 10)
	f.provider.err = errors.New("upstream 500")

	res, err := f.svc.Solve(context.Background(), "user-1", sumArrayRequest)

	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, res.Problem.Status)
	assert.Nil(t, res.Problem.SolutionID)
	require.NotNil(t, res.Problem.FailureReason)
	assert.Contains(t, *res.Problem.FailureReason, "upstream 500")
	assert.Nil(t, res.Solution)

	assert.Empty(t, f.solutions.solutions)
	assert.Equal(t, 0, runner.calls)
	assert.Equal(t, 0, f.users.subUpdates)
	user, _ := f.users.FindByID(context.Background(), "user-1")
	assert.Equal(t, 0, user.Subscription.MonthlyQueries)
}

func TestSolve_ExecutionTransportFailureIsDegraded(t *testing.T) {
	runner := &fakeRunner{err: common.Errorf("%w: dial tcp: refused", common.ErrExecutionTransport)}
	f := newSolverFixture(t, runner, 10)

	res, err := f.svc.Solve(context.Background(), "user-1", sumArrayRequest)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, res.Problem.Status)
	require.NotNil(t, res.Solution.ExecutionResult)
	assert.Equal(t, model.ExecutionStatusFailed, res.Solution.ExecutionResult.Status)
	assert.Contains(t, res.Solution.ExecutionResult.Error, "refused")
	assert.Equal(t, 1, f.users.subUpdates)
}

func TestSolve_BlockedGeneratedCodeIsDegradedWithoutExecuting(t *testing.T) {
	runner := &fakeRunner{validateErr: common.Errorf("%w: blocked call", common.ErrValidationFailed)}
	f := newSolverFixture(t, runner, 10)

	res, err := f.svc.Solve(context.Background(), "user-1", sumArrayRequest)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, res.Problem.Status)
	assert.Equal(t, model.ExecutionStatusFailed, res.Solution.ExecutionResult.Status)
	assert.Equal(t, 0, runner.calls)
}

func TestSolve_SkipsExecutionWithoutLanguage(t *testing.T) {
	runner := &fakeRunner{}
	f := newSolverFixture(t, runner, 10)
	req := sumArrayRequest
	req.Language = ""

	res, err := f.svc.Solve(context.Background(), "user-1", req)

	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, res.Problem.Status)
	assert.Nil(t, res.Solution.ExecutionResult)
	assert.Equal(t, 0, runner.calls)
}

func TestSolve_QuotaExceededWritesNothing(t *testing.T) {
	f := newSolverFixture(t, &fakeRunner{}, 0)

	_, err := f.svc.Solve(context.Background(), "user-1", sumArrayRequest)

	assert.ErrorIs(t, err, common.ErrQuotaExceeded)
	assert.Empty(t, f.problems.problems)
	assert.Equal(t, 0, f.provider.calls)
}

func TestSolve_InvalidRequestWritesNothing(t *testing.T) {
	f := newSolverFixture(t, &fakeRunner{}, 10)
	req := sumArrayRequest
	req.Title = ""
	req.Category = "astrology"

	_, err := f.svc.Solve(context.Background(), "user-1", req)

	require.ErrorIs(t, err, common.ErrValidation)
	var fields common.FieldErrors
	require.True(t, errors.As(err, &fields))
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "category")
	assert.Empty(t, f.problems.problems)
}

func TestSubmitThenProcess(t *testing.T) {
	f := newSolverFixture(t, &fakeRunner{result: &model.ExecutionResult{Status: "Accepted", StatusCode: 3}}, 10)

	problem, err := f.svc.Submit(context.Background(), "user-1", sumArrayRequest)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, problem.Status)
	assert.Equal(t, []string{problem.ID}, f.queue.ids)
	assert.Equal(t, 0, f.users.subUpdates)

	res, err := f.svc.Process(context.Background(), problem.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, res.Problem.Status)
	assert.Equal(t, []model.ProblemStatus{model.StatusPending, model.StatusProcessing, model.StatusSolved}, f.problems.statuses)
	assert.Equal(t, 1, f.users.subUpdates)

	// a redelivered id is ignored once the problem is terminal
	again, err := f.svc.Process(context.Background(), problem.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSolved, again.Problem.Status)
	assert.Equal(t, 1, f.provider.calls)
}

func TestSubmit_QueueFailureMarksFailed(t *testing.T) {
	f := newSolverFixture(t, &fakeRunner{}, 10)
	f.queue.err = errors.New("redis down")

	_, err := f.svc.Submit(context.Background(), "user-1", sumArrayRequest)

	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
	require.Len(t, f.problems.problems, 1)
	for _, p := range f.problems.problems {
		assert.Equal(t, model.StatusFailed, p.Status)
	}
}

func TestProblemAccessAndCascadeDelete(t *testing.T) {
	f := newSolverFixture(t, &fakeRunner{result: &model.ExecutionResult{Status: "Accepted"}}, 10)
	ctx := context.Background()

	res, err := f.svc.Solve(ctx, "user-1", sumArrayRequest)
	require.NoError(t, err)
	id := res.Problem.ID

	got, err := f.svc.GetProblem(ctx, "user-1", model.RoleUser, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Problem.Views)
	require.NotNil(t, got.Solution)

	_, err = f.svc.GetProblem(ctx, "user-2", model.RoleUser, id)
	assert.ErrorIs(t, err, common.ErrForbidden)

	marked, err := f.svc.ToggleBookmark(ctx, "user-1", model.RoleUser, id)
	require.NoError(t, err)
	assert.True(t, marked)

	list, err := f.svc.ListProblems(ctx, "user-1", 0, 0, repository.ProblemFilter{Status: model.StatusSolved})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 20, list.PageSize)

	assert.ErrorIs(t, f.svc.DeleteProblem(ctx, "user-2", model.RoleUser, id), common.ErrForbidden)
	require.NoError(t, f.svc.DeleteProblem(ctx, "user-2", model.RoleAdmin, id))

	_, err = f.problems.FindProblemByID(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, f.solutions.solutions)
}

func TestSubmitFeedback(t *testing.T) {
	f := newSolverFixture(t, &fakeRunner{result: &model.ExecutionResult{Status: "Accepted"}}, 10)
	ctx := context.Background()
	res, err := f.svc.Solve(ctx, "user-1", sumArrayRequest)
	require.NoError(t, err)

	_, err = f.svc.SubmitFeedback(ctx, "user-1", model.RoleUser, res.Solution.ID, FeedbackRequest{Rating: 6})
	assert.ErrorIs(t, err, common.ErrValidation)

	sol, err := f.svc.SubmitFeedback(ctx, "user-1", model.RoleUser, res.Solution.ID, FeedbackRequest{Rating: 4, Comment: "clear"})
	require.NoError(t, err)
	assert.Equal(t, 4, sol.Feedback.Rating)

	stored, _ := f.solutions.FindSolutionByID(ctx, res.Solution.ID)
	require.NotNil(t, stored.Feedback)
	assert.True(t, strings.EqualFold("clear", stored.Feedback.Comment))
}
