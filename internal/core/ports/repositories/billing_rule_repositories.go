package repositories

import (
	"context"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/pagination"
)

// BillingRuleReader defines read operations for billing rules.
type BillingRuleReader interface {
	FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.BillingRule, error)
	ListRules(ctx context.Context, tenantID string, limit int, after *pagination.Cursor) ([]domain.BillingRule, error)
	// FindDueRules returns active rules of all tenants with nextRunAt <= now, oldest first.
	// Rules with a failed execution started at or after failedSince are left out.
	FindDueRules(ctx context.Context, now, failedSince time.Time, limit int) ([]domain.BillingRule, error)
}

// BillingRuleWriter defines write operations for billing rules.
type BillingRuleWriter interface {
	SaveRule(ctx context.Context, rule domain.BillingRule) error
	UpdateRule(ctx context.Context, rule domain.BillingRule) error
	UpdateSchedule(ctx context.Context, ruleID string, lastRunAt, nextRunAt time.Time) error
}

// BillingRuleRepository combines reader and writer interfaces.
type BillingRuleRepository interface {
	BillingRuleReader
	BillingRuleWriter
}

// ExecutionRepository persists the execution history of billing rules.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, exec domain.BillingRuleExecution) error
	// FinalizeExecution writes the outcome of a running execution. Finalized rows are never touched again.
	FinalizeExecution(ctx context.Context, exec domain.BillingRuleExecution) error
	// HasExecutionSince reports whether a running, successful or partial execution of the rule started at or after since.
	HasExecutionSince(ctx context.Context, ruleID string, since time.Time) (bool, error)
	ListExecutions(ctx context.Context, tenantID, ruleID string, limit int, after *pagination.Cursor) ([]domain.BillingRuleExecution, error)
}
