package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"problem_solver/internal/common"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type execContexter interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryRowContexter interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer runs on the transaction when one is supplied.
func execer(db *sql.DB, tx *sql.Tx) execContexter {
	if tx != nil {
		return tx
	}
	return db
}

func queryRower(db *sql.DB, tx *sql.Tx) queryRowContexter {
	if tx != nil {
		return tx
	}
	return db
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// nullableJSON marshals v, storing SQL NULL for nil pointers.
func nullableJSON[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func unmarshalJSONB(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode jsonb column: %w", err)
	}
	return nil
}
