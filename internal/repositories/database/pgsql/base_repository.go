package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so one repository type
// serves both pool-bound and transaction-bound access.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	DB DBTX
}

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// mapNotFound turns pgx.ErrNoRows into a not-found error for the entity.
func mapNotFound(err error, entity, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFoundError(entity, id)
	}
	return apperrors.NewAppError(500, "failed to query "+entity, err)
}

// mapWriteError turns a unique violation into ErrDuplicate and wraps anything else.
func mapWriteError(err error, op string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, apperrors.ErrDuplicate)
	}
	return apperrors.NewAppError(500, "failed to "+op, err)
}

// execBatch sends b and surfaces the first failing statement.
func execBatch(ctx context.Context, db DBTX, b *pgx.Batch, op string) error {
	if b.Len() == 0 {
		return nil
	}
	br := db.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return mapWriteError(err, op)
		}
	}
	if err := br.Close(); err != nil {
		return mapWriteError(err, op)
	}
	return nil
}
