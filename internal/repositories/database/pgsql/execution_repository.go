package pgsql

import (
	"context"
	"strconv"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/pagination"
)

type PgxExecutionRepository struct {
	BaseRepository
}

func newPgxExecutionRepository(db DBTX) *PgxExecutionRepository {
	return &PgxExecutionRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.ExecutionRepository = (*PgxExecutionRepository)(nil)

func (r *PgxExecutionRepository) CreateExecution(ctx context.Context, exec domain.BillingRuleExecution) error {
	query := `
		INSERT INTO billing_rule_executions (
			id, rule_id, tenant_id, status, started_at, completed_at,
			invoices_created, total_amount, error_message, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.DB.Exec(ctx, query,
		exec.ID, exec.RuleID, exec.TenantID, exec.Status, exec.StartedAt, exec.CompletedAt,
		exec.InvoicesCreated, exec.TotalAmount, exec.ErrorMessage, exec.Details,
	)
	if err != nil {
		return mapWriteError(err, "insert execution "+exec.ID)
	}
	return nil
}

// FinalizeExecution only touches rows still in the running state.
func (r *PgxExecutionRepository) FinalizeExecution(ctx context.Context, exec domain.BillingRuleExecution) error {
	query := `
		UPDATE billing_rule_executions
		SET status = $2, completed_at = $3, invoices_created = $4, total_amount = $5,
		    error_message = $6, details = $7
		WHERE id = $1 AND completed_at IS NULL;
	`
	tag, err := r.DB.Exec(ctx, query,
		exec.ID, exec.Status, exec.CompletedAt, exec.InvoicesCreated, exec.TotalAmount,
		exec.ErrorMessage, exec.Details,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to finalize execution "+exec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewConflictError("execution %s is already finalized or missing", exec.ID)
	}
	return nil
}

func (r *PgxExecutionRepository) HasExecutionSince(ctx context.Context, ruleID string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM billing_rule_executions
			WHERE rule_id = $1 AND started_at >= $2 AND status IN ('running', 'success', 'partial')
		);
	`
	var exists bool
	if err := r.DB.QueryRow(ctx, query, ruleID, since).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check executions of rule "+ruleID, err)
	}
	return exists, nil
}

// ListExecutions returns the newest executions first.
func (r *PgxExecutionRepository) ListExecutions(ctx context.Context, tenantID, ruleID string, limit int, after *pagination.Cursor) ([]domain.BillingRuleExecution, error) {
	args := []any{tenantID, ruleID}
	query := `
		SELECT id, rule_id, tenant_id, status, started_at, completed_at,
		       invoices_created, total_amount, error_message, details
		FROM billing_rule_executions
		WHERE tenant_id = $1 AND rule_id = $2`
	if after != nil {
		args = append(args, after.At, after.ID)
		query += " AND (started_at, id) < ($3, $4)"
	}
	args = append(args, limit)
	query += " ORDER BY started_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query executions", err)
	}
	defer rows.Close()

	execs := []domain.BillingRuleExecution{}
	for rows.Next() {
		var e domain.BillingRuleExecution
		if err := rows.Scan(
			&e.ID, &e.RuleID, &e.TenantID, &e.Status, &e.StartedAt, &e.CompletedAt,
			&e.InvoicesCreated, &e.TotalAmount, &e.ErrorMessage, &e.Details,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan execution", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate executions", err)
	}
	return execs, nil
}
