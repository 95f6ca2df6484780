package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemFilter struct {
	Status   model.ProblemStatus
	Category model.ProblemCategory
}

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	ListProblemsByUser(ctx context.Context, userID string, limit, offset int, filter ProblemFilter) ([]model.Problem, int, error)

	// UpdateProblemStatus writes status, solution reference and failure reason together.
	UpdateProblemStatus(ctx context.Context, tx *sql.Tx, id string, status model.ProblemStatus, solutionID, failureReason *string) error
	IncrementViews(ctx context.Context, id string) error
	ToggleBookmark(ctx context.Context, id string) (bool, error)
	DeleteProblem(ctx context.Context, tx *sql.Tx, id string) error
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemColumns = `id, user_id, title, slug, description, category, language, difficulty, tags,
               requested_model, status, solution_id, failure_reason, views, is_bookmarked, created_at, updated_at`

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem marshal tags: %w", err)
	}

	query := `INSERT INTO problems (id, user_id, title, slug, description, category, language, difficulty, tags,
	                                requested_model, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at, updated_at`

	err = queryRower(r.db, tx).QueryRowContext(ctx, query,
		p.ID, p.UserID, p.Title, p.Slug, p.Description, p.Category, p.Language, p.Difficulty, tags,
		p.RequestedModel, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("problem %s already exists: %w", p.ID, common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + ` FROM problems WHERE id = $1`
	problem, err := scanProblem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return problem, nil
}

func (r *pgProblemRepository) ListProblemsByUser(ctx context.Context, userID string, limit, offset int, filter ProblemFilter) ([]model.Problem, int, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argID := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argID))
		args = append(args, filter.Status)
		argID++
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argID))
		args = append(args, filter.Category)
		argID++
	}
	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM problems`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblemsByUser count: %w", err)
	}

	query := `SELECT ` + problemColumns + ` FROM problems` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblemsByUser query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgProblemRepository.ListProblemsByUser scan: %w", err)
		}
		problems = append(problems, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgProblemRepository.ListProblemsByUser rows.Err: %w", err)
	}
	return problems, total, nil
}

func (r *pgProblemRepository) UpdateProblemStatus(ctx context.Context, tx *sql.Tx, id string, status model.ProblemStatus, solutionID, failureReason *string) error {
	query := `UPDATE problems SET status = $1, solution_id = $2, failure_reason = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4`
	res, err := execer(r.db, tx).ExecContext(ctx, query, status, solutionID, failureReason, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblemStatus: %w", err)
	}
	return expectOneRow(res, "pgProblemRepository.UpdateProblemStatus")
}

func (r *pgProblemRepository) IncrementViews(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE problems SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.IncrementViews: %w", err)
	}
	return expectOneRow(res, "pgProblemRepository.IncrementViews")
}

func (r *pgProblemRepository) ToggleBookmark(ctx context.Context, id string) (bool, error) {
	var bookmarked bool
	err := r.db.QueryRowContext(ctx,
		`UPDATE problems SET is_bookmarked = NOT is_bookmarked, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 RETURNING is_bookmarked`, id,
	).Scan(&bookmarked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrNotFound
		}
		return false, fmt.Errorf("pgProblemRepository.ToggleBookmark: %w", err)
	}
	return bookmarked, nil
}

func (r *pgProblemRepository) DeleteProblem(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := execer(r.db, tx).ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteProblem: %w", err)
	}
	return expectOneRow(res, "pgProblemRepository.DeleteProblem")
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	p := &model.Problem{}
	var tags []byte
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Slug, &p.Description, &p.Category, &p.Language, &p.Difficulty, &tags,
		&p.RequestedModel, &p.Status, &p.SolutionID, &p.FailureReason, &p.Views, &p.IsBookmarked, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(tags, &p.Tags); err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}
