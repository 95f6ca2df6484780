package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	UpdateSubscription(ctx context.Context, userID string, sub model.Subscription) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role,
	          plan, query_limit, monthly_queries, total_queries, last_reset_date, created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role, plan, query_limit, monthly_queries, total_queries, last_reset_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	sub := user.Subscription
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role,
		sub.Plan, sub.QueryLimit, sub.MonthlyQueries, sub.TotalQueries, sub.LastResetDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *pgUserRepository) findOne(ctx context.Context, op, query, arg string) (*model.User, error) {
	user := &model.User{}
	sub := &user.Subscription
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&sub.Plan, &sub.QueryLimit, &sub.MonthlyQueries, &sub.TotalQueries, &sub.LastResetDate,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdateSubscription(ctx context.Context, userID string, sub model.Subscription) error {
	query := `UPDATE users SET plan = $1, query_limit = $2, monthly_queries = $3, total_queries = $4,
	          last_reset_date = $5, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query, sub.Plan, sub.QueryLimit, sub.MonthlyQueries, sub.TotalQueries, sub.LastResetDate, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateSubscription: %w", err)
	}
	return expectOneRow(res, "pgUserRepository.UpdateSubscription")
}
