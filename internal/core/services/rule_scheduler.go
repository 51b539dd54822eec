package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
)

// DefaultDueRuleBatch caps how many rules one tick picks up.
const DefaultDueRuleBatch = 100

// FailedRuleRetryDelay is how long a rule whose last run failed stays out of
// the due batch, so broken rules cannot crowd out healthy ones.
const FailedRuleRetryDelay = 30 * time.Minute

type ruleScheduler struct {
	BaseService
	rules     portsrepo.BillingRuleReader
	executor  portssvc.RuleExecutorSvc
	batchSize int
}

// NewRuleScheduler creates the service that runs due rules across all tenants.
func NewRuleScheduler(rules portsrepo.BillingRuleReader, executor portssvc.RuleExecutorSvc, batchSize int, opts ...ServiceOption) portssvc.RuleSchedulerSvc {
	if batchSize <= 0 {
		batchSize = DefaultDueRuleBatch
	}
	return &ruleScheduler{
		BaseService: newBaseService(opts),
		rules:       rules,
		executor:    executor,
		batchSize:   batchSize,
	}
}

var _ portssvc.RuleSchedulerSvc = (*ruleScheduler)(nil)

// DueRules returns active rules whose next run is at or before now and that
// have not failed within FailedRuleRetryDelay.
func (s *ruleScheduler) DueRules(ctx context.Context, now time.Time) ([]domain.BillingRule, error) {
	rules, err := s.rules.FindDueRules(ctx, now, now.Add(-FailedRuleRetryDelay), s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load due rules: %w", err)
	}
	return rules, nil
}

// RunDueRules executes every due rule once. A failing rule never stops the pass.
func (s *ruleScheduler) RunDueRules(ctx context.Context, now time.Time) (portssvc.TickReport, error) {
	report := portssvc.TickReport{}
	due, err := s.DueRules(ctx, now)
	if err != nil {
		return report, err
	}
	report.Due = len(due)

	for _, rule := range due {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		logger := s.GetLogger(ctx).With(
			slog.String("rule_id", rule.ID),
			slog.String("tenant_id", rule.TenantID),
			slog.String("rule_type", string(rule.RuleType)))
		ruleCtx := middleware.WithLogger(ctx, logger)

		result, err := s.executor.Execute(ruleCtx, rule, domain.ExecuteOptions{TriggeredBy: domain.SystemActor})
		switch {
		case errors.Is(err, ErrRuleAlreadyExecuted):
			report.Skipped++
			logger.Info("Skipping rule already executed for this period")
		case errors.Is(err, apperrors.ErrValidation):
			report.Failed++
			logger.Warn("Skipping rule with invalid configuration", slog.String("error", err.Error()))
		case err != nil:
			report.Failed++
			logger.Error("Rule execution aborted", slog.String("error", err.Error()))
		case result.Status == domain.ExecutionFailed:
			report.Failed++
		default:
			report.Executed++
		}
	}
	return report, nil
}
