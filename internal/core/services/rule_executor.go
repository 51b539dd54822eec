package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/metrics"
	"github.com/google/uuid"
)

// ErrRuleAlreadyExecuted is returned when a rule already ran for its current
// period and the caller did not force a re-run.
var ErrRuleAlreadyExecuted = fmt.Errorf("%w: billing rule already executed for the current period", apperrors.ErrConflict)

type ruleExecutor struct {
	BaseService
	rules      portsrepo.BillingRuleWriter
	executions portsrepo.ExecutionRepository
	handlers   portssvc.RuleHandlers
}

// NewRuleExecutor creates the executor that dispatches rules to handlers.
func NewRuleExecutor(rules portsrepo.BillingRuleWriter, executions portsrepo.ExecutionRepository, handlers portssvc.RuleHandlers, opts ...ServiceOption) portssvc.RuleExecutorSvc {
	return &ruleExecutor{
		BaseService: newBaseService(opts),
		rules:       rules,
		executions:  executions,
		handlers:    handlers,
	}
}

var _ portssvc.RuleExecutorSvc = (*ruleExecutor)(nil)

// Execute runs one rule. Dry runs compute the outcome without writing
// anything. Real runs are bracketed by an execution row and, unless the run
// failed, advance the rule's schedule. Handler errors and panics become a
// failed result; only problems before dispatch are returned as errors.
func (e *ruleExecutor) Execute(ctx context.Context, rule domain.BillingRule, opts domain.ExecuteOptions) (*domain.ExecutionResult, error) {
	logger := e.GetLogger(ctx).With(
		slog.String("rule_id", rule.ID),
		slog.String("rule_type", string(rule.RuleType)),
		slog.String("tenant_id", rule.TenantID),
	)
	now := e.Now()

	params, err := domain.DecodeRuleParameters(rule.RuleType, rule.Parameters)
	if err != nil {
		logger.Warn("Rejecting rule with invalid parameters", slog.String("error", err.Error()))
		if !opts.DryRun {
			e.recordRejected(ctx, logger, rule, err, now)
		}
		return nil, fmt.Errorf("%w: rule %s: %w", apperrors.ErrValidation, rule.ID, err)
	}

	actor := opts.TriggeredBy
	if actor == "" {
		actor = domain.SystemActor
	}
	runOpts := domain.RunOptions{ExecuteOptions: opts, RuleID: rule.ID, Now: now, ActorID: actor}

	if opts.DryRun {
		result := e.dispatch(ctx, rule, params, runOpts)
		metrics.ObserveRuleExecution(string(rule.RuleType), string(result.Status), true, e.Now().Sub(now))
		logger.Info("Dry run completed", slog.String("status", string(result.Status)), slog.Int("items", result.Details.Summary.TotalProcessed))
		return result, nil
	}

	if !opts.ForceRun {
		if err := e.checkNotExecuted(ctx, rule, now); err != nil {
			return nil, err
		}
	}

	exec := domain.BillingRuleExecution{
		ID:        uuid.NewString(),
		RuleID:    rule.ID,
		TenantID:  rule.TenantID,
		Status:    domain.ExecutionRunning,
		StartedAt: now,
		Details:   domain.ExecutionDetails{Invoices: []domain.InvoiceOutcome{}},
	}
	if err := e.executions.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to record execution start: %w", err)
	}

	result := e.dispatch(ctx, rule, params, runOpts)
	completedAt := e.Now()

	exec.Finalize(*result, completedAt)
	if err := e.executions.FinalizeExecution(ctx, exec); err != nil {
		logger.Error("Failed to finalize execution", slog.String("execution_id", exec.ID), slog.String("error", err.Error()))
	}

	if result.Status != domain.ExecutionFailed {
		e.advanceSchedule(ctx, logger, rule, now)
	}

	metrics.ObserveRuleExecution(string(rule.RuleType), string(result.Status), false, completedAt.Sub(now))
	e.RecordAudit(ctx, domain.AuditEntry{
		TenantID:   rule.TenantID,
		ActorID:    actor,
		Action:     "billing_rule.executed",
		EntityType: "billing_rule",
		EntityID:   rule.ID,
		Metadata: map[string]any{
			"execution_id":     exec.ID,
			"status":           string(result.Status),
			"invoices_created": result.InvoicesCreated,
			"total_amount":     result.TotalAmount.StringFixed(2),
			"force_run":        opts.ForceRun,
		},
	})

	logger.Info("Rule executed",
		slog.String("execution_id", exec.ID),
		slog.String("status", string(result.Status)),
		slog.Int("invoices_created", result.InvoicesCreated),
		slog.String("total_amount", result.TotalAmount.StringFixed(2)))
	return result, nil
}

// recordRejected stores a completed failed execution for a rule that could
// not be dispatched, so the scheduler can hold it back on later ticks.
func (e *ruleExecutor) recordRejected(ctx context.Context, logger *slog.Logger, rule domain.BillingRule, cause error, now time.Time) {
	exec := domain.BillingRuleExecution{
		ID:        uuid.NewString(),
		RuleID:    rule.ID,
		TenantID:  rule.TenantID,
		StartedAt: now,
	}
	exec.Finalize(*domain.FailedResult(cause), now)
	if err := e.executions.CreateExecution(ctx, exec); err != nil {
		logger.Error("Failed to record rejected execution", slog.String("error", err.Error()))
		return
	}
	metrics.ObserveRuleExecution(string(rule.RuleType), string(exec.Status), false, 0)
}

// checkNotExecuted guards against running a rule twice for one period.
func (e *ruleExecutor) checkNotExecuted(ctx context.Context, rule domain.BillingRule, now time.Time) error {
	if rule.NextRunAt != nil && !rule.NextRunAt.After(now) {
		done, err := e.executions.HasExecutionSince(ctx, rule.ID, *rule.NextRunAt)
		if err != nil {
			return fmt.Errorf("failed to check execution history: %w", err)
		}
		if done {
			return ErrRuleAlreadyExecuted
		}
		return nil
	}
	if rule.LastRunAt != nil {
		return ErrRuleAlreadyExecuted
	}
	return nil
}

func (e *ruleExecutor) advanceSchedule(ctx context.Context, logger *slog.Logger, rule domain.BillingRule, now time.Time) {
	next, err := CalculateNextRun(rule.Frequency, rule.CronPattern, rule.DayOfMonth, &now, now)
	if err != nil {
		logger.Error("Failed to compute next run", slog.String("error", err.Error()))
		return
	}
	if err := e.rules.UpdateSchedule(ctx, rule.ID, now, next); err != nil {
		logger.Error("Failed to update rule schedule", slog.String("error", err.Error()))
		return
	}
	logger.Debug("Rule rescheduled", slog.Time("next_run_at", next))
}

// dispatch runs the handler and converts every error, including a panic, into a failed result.
func (e *ruleExecutor) dispatch(ctx context.Context, rule domain.BillingRule, params domain.RuleParameters, opts domain.RunOptions) (result *domain.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.LogError(ctx, fmt.Errorf("%v", r), "Rule handler panicked",
				slog.String("rule_id", rule.ID),
				slog.String("stack", string(debug.Stack())))
			result = domain.FailedResult(fmt.Errorf("handler panic: %v", r))
		}
	}()

	res, err := e.run(ctx, rule.TenantID, params, opts)
	if err != nil {
		e.LogError(ctx, err, "Rule handler failed", slog.String("rule_id", rule.ID))
		return domain.FailedResult(err)
	}
	if res == nil {
		return domain.FailedResult(errors.New("handler returned no result"))
	}
	return res
}

func (e *ruleExecutor) run(ctx context.Context, tenantID string, params domain.RuleParameters, opts domain.RunOptions) (*domain.ExecutionResult, error) {
	switch p := params.(type) {
	case domain.LeaseAdvanceParams:
		return e.handlers.LeaseAdvance.Run(ctx, tenantID, p.WithDefaults(opts.Now), opts)
	case domain.LeasePaymentParams:
		return e.handlers.LeasePayment.Run(ctx, tenantID, p.WithDefaults(opts.Now), opts)
	case domain.DistributionParams:
		return e.handlers.Distribution.Run(ctx, tenantID, p.WithDefaults(opts.Now), opts)
	case domain.ManagementFeeParams:
		return e.handlers.ManagementFee.Run(ctx, tenantID, p.WithDefaults(opts.Now), opts)
	case domain.CustomParams:
		return e.handlers.Custom.Run(ctx, tenantID, p.WithDefaults(opts.Now), opts)
	}
	return nil, fmt.Errorf("no handler registered for %s", params.RuleType())
}
