package pgsql

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxUnitOfWork runs callbacks inside one database transaction.
type PgxUnitOfWork struct {
	Pool *pgxpool.Pool
}

func newPgxUnitOfWork(pool *pgxpool.Pool) *PgxUnitOfWork {
	return &PgxUnitOfWork{Pool: pool}
}

var (
	_ portsrepo.UnitOfWork         = (*PgxUnitOfWork)(nil)
	_ portsrepo.TransactionManager = (*PgxUnitOfWork)(nil)
)

// Begin starts a new database transaction
func (u *PgxUnitOfWork) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := u.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (u *PgxUnitOfWork) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (u *PgxUnitOfWork) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// WithinTx binds fresh repositories to a transaction and commits when fn succeeds.
func (u *PgxUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos portsrepo.TxRepositories) error) error {
	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// Detached so a cancelled request still releases its locks.
		if rbErr := u.Rollback(context.WithoutCancel(ctx), tx); rbErr != nil {
			middleware.GetLoggerFromCtx(ctx).Error("Rollback failed", slog.String("error", rbErr.Error()))
		}
	}()

	if err := fn(ctx, txRepositories(tx)); err != nil {
		return err
	}
	return u.Commit(ctx, tx)
}

func txRepositories(db DBTX) portsrepo.TxRepositories {
	return portsrepo.TxRepositories{
		BillingRules:  newPgxBillingRuleRepository(db),
		Executions:    newPgxExecutionRepository(db),
		Invoices:      newPgxInvoiceRepository(db),
		Sequences:     newPgxInvoiceSequenceRepository(db),
		Distributions: newPgxDistributionRepository(db),
		Settlements:   newPgxSettlementRepository(db),
	}
}
