package service

import (
	"context"
	"database/sql"
	"sync"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
	"problem_solver/internal/domain/repository"
	"problem_solver/internal/platform/ai"
)

type memProblemRepo struct {
	mu       sync.Mutex
	problems map[string]model.Problem
	statuses []model.ProblemStatus // every status write in order
}

func newMemProblemRepo() *memProblemRepo {
	return &memProblemRepo{problems: map[string]model.Problem{}}
}

func (r *memProblemRepo) CreateProblem(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[p.ID]; ok {
		return common.ErrConflict
	}
	r.problems[p.ID] = *p
	r.statuses = append(r.statuses, p.Status)
	return nil
}

func (r *memProblemRepo) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (r *memProblemRepo) ListProblemsByUser(_ context.Context, userID string, limit, offset int, filter repository.ProblemFilter) ([]model.Problem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []model.Problem
	for _, p := range r.problems {
		if p.UserID != userID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		matched = append(matched, p)
	}
	total := len(matched)
	if offset >= total {
		return []model.Problem{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memProblemRepo) UpdateProblemStatus(_ context.Context, _ *sql.Tx, id string, status model.ProblemStatus, solutionID, failureReason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return common.ErrNotFound
	}
	p.Status, p.SolutionID, p.FailureReason = status, solutionID, failureReason
	r.problems[id] = p
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memProblemRepo) IncrementViews(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return common.ErrNotFound
	}
	p.Views++
	r.problems[id] = p
	return nil
}

func (r *memProblemRepo) ToggleBookmark(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.problems[id]
	if !ok {
		return false, common.ErrNotFound
	}
	p.IsBookmarked = !p.IsBookmarked
	r.problems[id] = p
	return p.IsBookmarked, nil
}

func (r *memProblemRepo) DeleteProblem(_ context.Context, _ *sql.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.problems, id)
	return nil
}

type memSolutionRepo struct {
	mu        sync.Mutex
	solutions map[string]model.Solution
	createErr error
}

func newMemSolutionRepo() *memSolutionRepo {
	return &memSolutionRepo{solutions: map[string]model.Solution{}}
}

func (r *memSolutionRepo) CreateSolution(_ context.Context, _ *sql.Tx, s *model.Solution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.solutions[s.ID] = *s
	return nil
}

func (r *memSolutionRepo) FindSolutionByID(_ context.Context, id string) (*model.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.solutions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (r *memSolutionRepo) FindSolutionByProblemID(_ context.Context, problemID string) (*model.Solution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.solutions {
		if s.ProblemID == problemID {
			return &s, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memSolutionRepo) UpdateExecutionResult(_ context.Context, id string, result *model.ExecutionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.solutions[id]
	if !ok {
		return common.ErrNotFound
	}
	s.ExecutionResult = result
	r.solutions[id] = s
	return nil
}

func (r *memSolutionRepo) UpdateFeedback(_ context.Context, id string, feedback model.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.solutions[id]
	if !ok {
		return common.ErrNotFound
	}
	s.Feedback = &feedback
	r.solutions[id] = s
	return nil
}

func (r *memSolutionRepo) DeleteSolutionByProblemID(_ context.Context, _ *sql.Tx, problemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.solutions {
		if s.ProblemID == problemID {
			delete(r.solutions, id)
		}
	}
	return nil
}

type memUserRepo struct {
	mu         sync.Mutex
	users      map[string]model.User
	subUpdates int
}

func newMemUserRepo(users ...model.User) *memUserRepo {
	r := &memUserRepo{users: map[string]model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return common.ErrConflict
		}
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == id })
}

func (r *memUserRepo) UpdateSubscription(_ context.Context, userID string, sub model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.Subscription = sub
	r.users[userID] = u
	r.subUpdates++
	return nil
}

type fakeProvider struct {
	name    string
	text    string
	err     error
	calls   int
	lastReq ai.CompletionRequest
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(_ context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	p.calls++
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &ai.Completion{
		Text:  p.text,
		Model: "gpt-4-0613",
		Usage: model.TokenUsage{Prompt: 120, Completion: 80, Total: 200},
	}, nil
}

type fakeRunner struct {
	validateErr error
	result      *model.ExecutionResult
	err         error
	calls       int
}

func (r *fakeRunner) Validate(string, string) error { return r.validateErr }

func (r *fakeRunner) Execute(context.Context, string, string, string) (*model.ExecutionResult, error) {
	r.calls++
	return r.result, r.err
}

type fakeQueue struct {
	ids []string
	err error
}

func (q *fakeQueue) Enqueue(_ context.Context, problemID string) error {
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, problemID)
	return nil
}
