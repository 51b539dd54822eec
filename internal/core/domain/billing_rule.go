package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType selects the handler that executes a billing rule.
type RuleType string

const (
	RuleTypeLeasePayment  RuleType = "LEASE_PAYMENT"
	RuleTypeLeaseAdvance  RuleType = "LEASE_ADVANCE"
	RuleTypeDistribution  RuleType = "DISTRIBUTION"
	RuleTypeManagementFee RuleType = "MANAGEMENT_FEE"
	RuleTypeCustom        RuleType = "CUSTOM"
)

// IsValid reports whether t is one of the known rule types.
func (t RuleType) IsValid() bool {
	switch t {
	case RuleTypeLeasePayment, RuleTypeLeaseAdvance, RuleTypeDistribution, RuleTypeManagementFee, RuleTypeCustom:
		return true
	}
	return false
}

// Frequency describes how often a billing rule recurs.
type Frequency string

const (
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiAnnual Frequency = "SEMI_ANNUAL"
	FrequencyAnnual     Frequency = "ANNUAL"
	FrequencyCustomCron Frequency = "CUSTOM_CRON"
)

// MonthsPerPeriod returns the calendar-month step of a fixed frequency, or 0 for CUSTOM_CRON.
func (f Frequency) MonthsPerPeriod() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencySemiAnnual:
		return 6
	case FrequencyAnnual:
		return 12
	}
	return 0
}

// IsValid reports whether f is one of the known frequencies.
func (f Frequency) IsValid() bool {
	return f == FrequencyCustomCron || f.MonthsPerPeriod() > 0
}

// BillingRule is a tenant-scoped recurring billing job.
type BillingRule struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenantId"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	RuleType    RuleType        `json:"ruleType"`
	Frequency   Frequency       `json:"frequency"`
	CronPattern *string         `json:"cronPattern,omitempty"`
	DayOfMonth  *int            `json:"dayOfMonth,omitempty"`
	Parameters  json.RawMessage `json:"parameters"` // decoded only by DecodeRuleParameters
	IsActive    bool            `json:"isActive"`
	LastRunAt   *time.Time      `json:"lastRunAt,omitempty"`
	NextRunAt   *time.Time      `json:"nextRunAt,omitempty"`
	AuditFields
}

// IsDue reports whether the rule is active and its next run is at or before now.
func (r BillingRule) IsDue(now time.Time) bool {
	return r.IsActive && r.NextRunAt != nil && !r.NextRunAt.After(now)
}

// ExecutionStatus is the outcome of one rule execution.
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionPartial ExecutionStatus = "partial"
)

// BillingRuleExecution records one non-dry-run invocation of a rule.
// It is created as running and finalized exactly once.
type BillingRuleExecution struct {
	ID              string           `json:"id"`
	RuleID          string           `json:"ruleId"`
	TenantID        string           `json:"tenantId"`
	Status          ExecutionStatus  `json:"status"`
	StartedAt       time.Time        `json:"startedAt"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
	InvoicesCreated int              `json:"invoicesCreated"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	ErrorMessage    *string          `json:"errorMessage,omitempty"`
	Details         ExecutionDetails `json:"details"`
}

// Finalize copies the result onto the execution and stamps completedAt.
func (e *BillingRuleExecution) Finalize(result ExecutionResult, completedAt time.Time) {
	e.Status = result.Status
	e.InvoicesCreated = result.InvoicesCreated
	e.TotalAmount = result.TotalAmount
	e.ErrorMessage = result.ErrorMessage
	e.Details = result.Details
	e.CompletedAt = &completedAt
}

// ExecuteOptions are the caller-facing switches of a rule execution.
type ExecuteOptions struct {
	DryRun   bool `json:"dryRun"`
	ForceRun bool `json:"forceRun"`
	// TriggeredBy is the acting user, or SystemActor for scheduled runs.
	TriggeredBy string `json:"-"`
}

// RunOptions is what a rule handler receives: the caller's switches plus the
// instant of the run and who triggered it.
type RunOptions struct {
	ExecuteOptions
	RuleID  string
	Now     time.Time
	ActorID string
}
