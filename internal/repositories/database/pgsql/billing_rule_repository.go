package pgsql

import (
	"context"
	"strconv"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
)

type PgxBillingRuleRepository struct {
	BaseRepository
}

func newPgxBillingRuleRepository(db DBTX) *PgxBillingRuleRepository {
	return &PgxBillingRuleRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.BillingRuleRepository = (*PgxBillingRuleRepository)(nil)

const billingRuleSelect = `
SELECT
	r.id, r.tenant_id, r.name, r.description, r.rule_type, r.frequency, r.cron_pattern,
	r.day_of_month, r.parameters, r.is_active, r.last_run_at, r.next_run_at,
	r.created_at, r.created_by, r.last_updated_at, r.last_updated_by
FROM billing_rules r
`

func scanBillingRule(row pgx.Row) (domain.BillingRule, error) {
	var r domain.BillingRule
	var params []byte
	err := row.Scan(
		&r.ID, &r.TenantID, &r.Name, &r.Description, &r.RuleType, &r.Frequency, &r.CronPattern,
		&r.DayOfMonth, &params, &r.IsActive, &r.LastRunAt, &r.NextRunAt,
		&r.CreatedAt, &r.CreatedBy, &r.LastUpdatedAt, &r.LastUpdatedBy,
	)
	r.Parameters = params
	return r, err
}

func (r *PgxBillingRuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]domain.BillingRule, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query billing rules", err)
	}
	defer rows.Close()

	rules := []domain.BillingRule{}
	for rows.Next() {
		rule, err := scanBillingRule(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan billing rule", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate billing rules", err)
	}
	return rules, nil
}

func (r *PgxBillingRuleRepository) FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.BillingRule, error) {
	row := r.DB.QueryRow(ctx, billingRuleSelect+" WHERE r.tenant_id = $1 AND r.id = $2", tenantID, ruleID)
	rule, err := scanBillingRule(row)
	if err != nil {
		return nil, mapNotFound(err, "billing rule", ruleID)
	}
	return &rule, nil
}

// ListRules pages through a tenant's rules in creation order.
func (r *PgxBillingRuleRepository) ListRules(ctx context.Context, tenantID string, limit int, after *pagination.Cursor) ([]domain.BillingRule, error) {
	args := []any{tenantID}
	query := billingRuleSelect + " WHERE r.tenant_id = $1"
	if after != nil {
		args = append(args, after.At, after.ID)
		query += " AND (r.created_at, r.id) > ($2, $3)"
	}
	args = append(args, limit)
	query += " ORDER BY r.created_at, r.id LIMIT $" + strconv.Itoa(len(args))
	return r.queryRules(ctx, query, args...)
}

// FindDueRules crosses tenants; it is only used by the background scheduler.
func (r *PgxBillingRuleRepository) FindDueRules(ctx context.Context, now, failedSince time.Time, limit int) ([]domain.BillingRule, error) {
	query := billingRuleSelect + `
		WHERE r.is_active AND r.next_run_at IS NOT NULL AND r.next_run_at <= $1
		  AND NOT EXISTS (
			SELECT 1 FROM billing_rule_executions e
			WHERE e.rule_id = r.id AND e.status = 'failed' AND e.started_at >= $2
		  )
		ORDER BY r.next_run_at, r.id
		LIMIT $3`
	return r.queryRules(ctx, query, now, failedSince, limit)
}

func (r *PgxBillingRuleRepository) SaveRule(ctx context.Context, rule domain.BillingRule) error {
	query := `
		INSERT INTO billing_rules (
			id, tenant_id, name, description, rule_type, frequency, cron_pattern, day_of_month,
			parameters, is_active, last_run_at, next_run_at,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := r.DB.Exec(ctx, query,
		rule.ID, rule.TenantID, rule.Name, rule.Description, rule.RuleType, rule.Frequency, rule.CronPattern, rule.DayOfMonth,
		[]byte(rule.Parameters), rule.IsActive, rule.LastRunAt, rule.NextRunAt,
		rule.CreatedAt, rule.CreatedBy, rule.LastUpdatedAt, rule.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "insert billing rule "+rule.ID)
	}
	return nil
}

func (r *PgxBillingRuleRepository) UpdateRule(ctx context.Context, rule domain.BillingRule) error {
	query := `
		UPDATE billing_rules
		SET name = $3, description = $4, frequency = $5, cron_pattern = $6, day_of_month = $7,
		    parameters = $8, is_active = $9, next_run_at = $10,
		    last_updated_at = $11, last_updated_by = $12
		WHERE tenant_id = $1 AND id = $2;
	`
	tag, err := r.DB.Exec(ctx, query,
		rule.TenantID, rule.ID, rule.Name, rule.Description, rule.Frequency, rule.CronPattern, rule.DayOfMonth,
		[]byte(rule.Parameters), rule.IsActive, rule.NextRunAt,
		rule.LastUpdatedAt, rule.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "update billing rule "+rule.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("billing rule", rule.ID)
	}
	return nil
}

func (r *PgxBillingRuleRepository) UpdateSchedule(ctx context.Context, ruleID string, lastRunAt, nextRunAt time.Time) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE billing_rules SET last_run_at = $2, next_run_at = $3 WHERE id = $1;`,
		ruleID, lastRunAt, nextRunAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update schedule of billing rule "+ruleID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("billing rule", ruleID)
	}
	return nil
}
