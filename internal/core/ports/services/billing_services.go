package services

import (
	"context"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/dto"
)

// RuleHandler runs one rule variant with its typed parameters.
type RuleHandler[P domain.RuleParameters] interface {
	Run(ctx context.Context, tenantID string, params P, opts domain.RunOptions) (*domain.ExecutionResult, error)
}

// RuleHandlers holds exactly one handler per rule type.
type RuleHandlers struct {
	LeasePayment  RuleHandler[domain.LeasePaymentParams]
	LeaseAdvance  RuleHandler[domain.LeaseAdvanceParams]
	Distribution  RuleHandler[domain.DistributionParams]
	ManagementFee RuleHandler[domain.ManagementFeeParams]
	Custom        RuleHandler[domain.CustomParams]
}

// RuleExecutorSvc executes a single billing rule.
type RuleExecutorSvc interface {
	Execute(ctx context.Context, rule domain.BillingRule, opts domain.ExecuteOptions) (*domain.ExecutionResult, error)
}

// TickReport summarizes one scheduler pass.
type TickReport struct {
	Due      int
	Executed int
	Skipped  int
	Failed   int
}

// RuleSchedulerSvc selects and dispatches due rules.
type RuleSchedulerSvc interface {
	DueRules(ctx context.Context, now time.Time) ([]domain.BillingRule, error)
	RunDueRules(ctx context.Context, now time.Time) (TickReport, error)
}

// BillingRuleReaderSvc defines read operations for billing rules.
type BillingRuleReaderSvc interface {
	GetRule(ctx context.Context, tenantID, ruleID string) (*domain.BillingRule, error)
	ListRules(ctx context.Context, tenantID string, params dto.ListParams) (*dto.ListBillingRulesResponse, error)
	ListExecutions(ctx context.Context, tenantID, ruleID string, params dto.ListParams) (*dto.ListExecutionsResponse, error)
}

// BillingRuleWriterSvc defines write operations for billing rules.
type BillingRuleWriterSvc interface {
	CreateRule(ctx context.Context, tenantID, userID string, req dto.CreateBillingRuleRequest) (*domain.BillingRule, error)
	UpdateRule(ctx context.Context, tenantID, userID, ruleID string, req dto.UpdateBillingRuleRequest) (*domain.BillingRule, error)
	ExecuteRule(ctx context.Context, tenantID, userID, ruleID string, opts domain.ExecuteOptions) (*domain.ExecutionResult, error)
}

// BillingRuleSvcFacade combines all billing rule operations.
type BillingRuleSvcFacade interface {
	BillingRuleReaderSvc
	BillingRuleWriterSvc
}
