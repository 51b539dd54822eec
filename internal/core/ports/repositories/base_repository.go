package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// Begin starts a new database transaction
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit commits a transaction
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback rolls back a transaction
	Rollback(ctx context.Context, tx pgx.Tx) error
}

// TxRepositories groups repositories bound to one open database transaction.
// Everything done through them commits or rolls back together.
type TxRepositories struct {
	BillingRules  BillingRuleRepository
	Executions    ExecutionRepository
	Invoices      InvoiceRepository
	Sequences     InvoiceSequenceRepository
	Distributions DistributionRepository
	Settlements   SettlementRepository
}

// UnitOfWork runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
