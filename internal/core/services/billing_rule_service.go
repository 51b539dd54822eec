package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/dto"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/pagination"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type billingRuleService struct {
	BaseService
	rules      portsrepo.BillingRuleRepository
	executions portsrepo.ExecutionRepository
	executor   portssvc.RuleExecutorSvc
}

// NewBillingRuleService creates the billing rule service.
func NewBillingRuleService(rules portsrepo.BillingRuleRepository, executions portsrepo.ExecutionRepository, executor portssvc.RuleExecutorSvc, opts ...ServiceOption) portssvc.BillingRuleSvcFacade {
	return &billingRuleService{
		BaseService: newBaseService(opts),
		rules:       rules,
		executions:  executions,
		executor:    executor,
	}
}

var _ portssvc.BillingRuleSvcFacade = (*billingRuleService)(nil)

func (s *billingRuleService) GetRule(ctx context.Context, tenantID, ruleID string) (*domain.BillingRule, error) {
	return s.rules.FindRuleByID(ctx, tenantID, ruleID)
}

func (s *billingRuleService) ListRules(ctx context.Context, tenantID string, params dto.ListParams) (*dto.ListBillingRulesResponse, error) {
	limit := pagination.ClampLimit(params.Limit, defaultListLimit, maxListLimit)
	cursor, err := pagination.DecodeToken(params.NextToken)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid nextToken")
	}
	rules, err := s.rules.ListRules(ctx, tenantID, limit+1, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing rules: %w", err)
	}
	resp := &dto.ListBillingRulesResponse{Rules: rules}
	if len(rules) > limit {
		resp.Rules = rules[:limit]
		last := resp.Rules[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.ID)
		resp.NextToken = &token
	}
	if resp.Rules == nil {
		resp.Rules = []domain.BillingRule{}
	}
	return resp, nil
}

func (s *billingRuleService) ListExecutions(ctx context.Context, tenantID, ruleID string, params dto.ListParams) (*dto.ListExecutionsResponse, error) {
	if _, err := s.rules.FindRuleByID(ctx, tenantID, ruleID); err != nil {
		return nil, err
	}
	limit := pagination.ClampLimit(params.Limit, defaultListLimit, maxListLimit)
	cursor, err := pagination.DecodeToken(params.NextToken)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid nextToken")
	}
	execs, err := s.executions.ListExecutions(ctx, tenantID, ruleID, limit+1, cursor)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	resp := &dto.ListExecutionsResponse{Executions: execs}
	if len(execs) > limit {
		resp.Executions = execs[:limit]
		last := resp.Executions[limit-1]
		token := pagination.EncodeToken(last.StartedAt, last.ID)
		resp.NextToken = &token
	}
	if resp.Executions == nil {
		resp.Executions = []domain.BillingRuleExecution{}
	}
	return resp, nil
}

// CreateRule validates the schedule and parameters and schedules the first run.
func (s *billingRuleService) CreateRule(ctx context.Context, tenantID, userID string, req dto.CreateBillingRuleRequest) (*domain.BillingRule, error) {
	if !req.RuleType.IsValid() {
		return nil, apperrors.NewValidationError("unknown ruleType %q", req.RuleType)
	}
	if err := ValidateSchedule(req.Frequency, req.CronPattern, req.DayOfMonth); err != nil {
		return nil, err
	}
	params := req.Parameters
	if len(params) == 0 {
		params = []byte("{}")
	}
	if _, err := domain.DecodeRuleParameters(req.RuleType, params); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	now := s.Now()
	rule := domain.BillingRule{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		RuleType:    req.RuleType,
		Frequency:   req.Frequency,
		CronPattern: cronFor(req.Frequency, req.CronPattern),
		DayOfMonth:  req.DayOfMonth,
		Parameters:  params,
		IsActive:    req.IsActive == nil || *req.IsActive,
		AuditFields: newAuditFields(userID, now),
	}
	next, err := CalculateNextRun(rule.Frequency, rule.CronPattern, rule.DayOfMonth, nil, now)
	if err != nil {
		return nil, err
	}
	rule.NextRunAt = &next

	if err := s.rules.SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to save billing rule: %w", err)
	}
	s.LogInfo(ctx, "Billing rule created",
		slog.String("rule_id", rule.ID),
		slog.String("rule_type", string(rule.RuleType)),
		slog.Time("next_run_at", next))
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "billing_rule.created",
		EntityType: "billing_rule", EntityID: rule.ID,
		Metadata: map[string]any{"rule_type": string(rule.RuleType), "frequency": string(rule.Frequency)},
	})
	return &rule, nil
}

// UpdateRule applies the set fields. A schedule change recomputes nextRunAt
// from lastRunAt.
func (s *billingRuleService) UpdateRule(ctx context.Context, tenantID, userID, ruleID string, req dto.UpdateBillingRuleRequest) (*domain.BillingRule, error) {
	rule, err := s.rules.FindRuleByID(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}

	reschedule := false
	if req.Name != nil {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rule.Description = req.Description
	}
	if req.Frequency != nil && *req.Frequency != rule.Frequency {
		rule.Frequency = *req.Frequency
		reschedule = true
	}
	if req.CronPattern != nil {
		rule.CronPattern = req.CronPattern
		reschedule = true
	}
	if req.DayOfMonth != nil {
		rule.DayOfMonth = req.DayOfMonth
		reschedule = true
	}
	if req.IsActive != nil {
		if *req.IsActive && !rule.IsActive {
			reschedule = true
		}
		rule.IsActive = *req.IsActive
	}
	if len(req.Parameters) > 0 {
		if _, err := domain.DecodeRuleParameters(rule.RuleType, req.Parameters); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
		}
		rule.Parameters = req.Parameters
	}
	rule.CronPattern = cronFor(rule.Frequency, rule.CronPattern)
	if err := ValidateSchedule(rule.Frequency, rule.CronPattern, rule.DayOfMonth); err != nil {
		return nil, err
	}

	now := s.Now()
	if reschedule || rule.NextRunAt == nil {
		next, err := CalculateNextRun(rule.Frequency, rule.CronPattern, rule.DayOfMonth, rule.LastRunAt, now)
		if err != nil {
			return nil, err
		}
		rule.NextRunAt = &next
	}
	rule.LastUpdatedAt, rule.LastUpdatedBy = now, userID

	if err := s.rules.UpdateRule(ctx, *rule); err != nil {
		return nil, fmt.Errorf("failed to update billing rule: %w", err)
	}
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "billing_rule.updated",
		EntityType: "billing_rule", EntityID: rule.ID,
		Metadata: map[string]any{"rescheduled": reschedule},
	})
	return rule, nil
}

// ExecuteRule runs a rule on demand for the calling user.
func (s *billingRuleService) ExecuteRule(ctx context.Context, tenantID, userID, ruleID string, opts domain.ExecuteOptions) (*domain.ExecutionResult, error) {
	rule, err := s.rules.FindRuleByID(ctx, tenantID, ruleID)
	if err != nil {
		return nil, err
	}
	opts.TriggeredBy = userID
	result, err := s.executor.Execute(ctx, *rule, opts)
	if errors.Is(err, ErrRuleAlreadyExecuted) {
		return nil, apperrors.NewConflictError("billing rule %s already ran for the current period; use forceRun to run it again", rule.ID)
	}
	return result, err
}

// cronFor drops a cron pattern that a fixed frequency would ignore.
func cronFor(frequency domain.Frequency, pattern *string) *string {
	if frequency != domain.FrequencyCustomCron {
		return nil
	}
	return pattern
}
