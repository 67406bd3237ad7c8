package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/airenas/wardrep/internal/pkg/api"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation    = "23505"
	submissionKeyIndex = "reports_submission_key_uq"
	defaultListLimit   = 100
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

//NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &DB{pool: pool}
	return res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')
		AND EXISTS (SELECT FROM pg_tables WHERE tablename = 'reports')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}

// mapErr turns unique violations into api.ErrDuplicate* errors
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == submissionKeyIndex {
			return fmt.Errorf("%w: %s", api.ErrDuplicateKey, pgErr.Message)
		}
		return fmt.Errorf("%w: %s", api.ErrDuplicatePeriod, pgErr.Message)
	}
	return err
}
