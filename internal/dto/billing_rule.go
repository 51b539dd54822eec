package dto

import (
	"encoding/json"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
)

// CreateBillingRuleRequest defines the data needed to create a billing rule.
type CreateBillingRuleRequest struct {
	Name        string           `json:"name" binding:"required,max=255"`
	Description *string          `json:"description,omitempty" binding:"omitempty,max=1000"`
	RuleType    domain.RuleType  `json:"ruleType" binding:"required,oneof=LEASE_PAYMENT LEASE_ADVANCE DISTRIBUTION MANAGEMENT_FEE CUSTOM"`
	Frequency   domain.Frequency `json:"frequency" binding:"required,oneof=MONTHLY QUARTERLY SEMI_ANNUAL ANNUAL CUSTOM_CRON"`
	CronPattern *string          `json:"cronPattern,omitempty" binding:"required_if=Frequency CUSTOM_CRON"`
	DayOfMonth  *int             `json:"dayOfMonth,omitempty" binding:"omitempty,min=1,max=28"`
	Parameters  json.RawMessage  `json:"parameters" swaggertype:"object"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// UpdateBillingRuleRequest defines the mutable fields of a billing rule. Nil fields stay unchanged.
type UpdateBillingRuleRequest struct {
	Name        *string           `json:"name,omitempty" binding:"omitempty,max=255"`
	Description *string           `json:"description,omitempty" binding:"omitempty,max=1000"`
	Frequency   *domain.Frequency `json:"frequency,omitempty" binding:"omitempty,oneof=MONTHLY QUARTERLY SEMI_ANNUAL ANNUAL CUSTOM_CRON"`
	CronPattern *string           `json:"cronPattern,omitempty"`
	DayOfMonth  *int              `json:"dayOfMonth,omitempty" binding:"omitempty,min=1,max=28"`
	Parameters  json.RawMessage   `json:"parameters,omitempty" swaggertype:"object"`
	IsActive    *bool             `json:"isActive,omitempty"`
}

// ExecuteBillingRuleRequest triggers a manual execution.
type ExecuteBillingRuleRequest struct {
	DryRun   bool `json:"dryRun"`
	ForceRun bool `json:"forceRun"`
}

// ListBillingRulesResponse is a page of billing rules.
type ListBillingRulesResponse struct {
	Rules     []domain.BillingRule `json:"rules"`
	NextToken *string              `json:"nextToken,omitempty"`
}

// ListExecutionsResponse is a page of rule executions, newest first.
type ListExecutionsResponse struct {
	Executions []domain.BillingRuleExecution `json:"executions"`
	NextToken  *string                       `json:"nextToken,omitempty"`
}
