package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidParameters is returned when a rule's parameters cannot be decoded or fail validation.
var ErrInvalidParameters = errors.New("invalid rule parameters")

var validate = validator.New(validator.WithRequiredStructEnabled())

// RuleParameters is the decoded, typed configuration of one rule variant.
// The set of implementations is closed to this package.
type RuleParameters interface {
	RuleType() RuleType
	isRuleParameters()
}

// LeaseAdvanceTaxType overrides the per-component tax treatment of advances.
type LeaseAdvanceTaxType string

const (
	LeaseAdvanceTaxStandard LeaseAdvanceTaxType = "STANDARD"
	LeaseAdvanceTaxExempt   LeaseAdvanceTaxType = "EXEMPT"
)

// LeaseAdvanceParams configures a LEASE_ADVANCE run.
type LeaseAdvanceParams struct {
	Month   int                  `json:"month" validate:"omitempty,min=1,max=12"`
	Year    int                  `json:"year" validate:"omitempty,min=2000,max=2100"`
	ParkID  *string              `json:"parkId,omitempty" validate:"omitempty,uuid"`
	TaxType *LeaseAdvanceTaxType `json:"taxType,omitempty" validate:"omitempty,oneof=STANDARD EXEMPT"`
	DueDays *int                 `json:"dueDays,omitempty" validate:"omitempty,min=0,max=365"`
}

func (LeaseAdvanceParams) RuleType() RuleType { return RuleTypeLeaseAdvance }
func (LeaseAdvanceParams) isRuleParameters()  {}

// WithDefaults bills the month of the run when no period is configured.
func (p LeaseAdvanceParams) WithDefaults(now time.Time) LeaseAdvanceParams {
	if p.Month == 0 {
		p.Month = int(now.Month())
	}
	if p.Year == 0 {
		p.Year = now.Year()
	}
	return p
}

// LeasePaymentParams configures a LEASE_PAYMENT run, which computes and
// settles a park's lease revenue settlement.
type LeasePaymentParams struct {
	ParkID              string               `json:"parkId" validate:"required,uuid"`
	Year                int                  `json:"year" validate:"omitempty,min=2000,max=2100"`
	Month               *int                 `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	PeriodType          SettlementPeriodType `json:"periodType" validate:"omitempty,oneof=ADVANCE FINAL"`
	AdvanceInterval     *AdvanceInterval     `json:"advanceInterval,omitempty" validate:"omitempty,oneof=YEARLY QUARTERLY MONTHLY"`
	TotalParkRevenueEur *decimal.Decimal     `json:"totalParkRevenueEur,omitempty"`
	MinimumGuaranteeEur *decimal.Decimal     `json:"minimumGuaranteeEur,omitempty"`
	AutoSettle          *bool                `json:"autoSettle,omitempty"`
}

func (LeasePaymentParams) RuleType() RuleType { return RuleTypeLeasePayment }
func (LeasePaymentParams) isRuleParameters()  {}

// WithDefaults settles the previous year for FINAL runs and the current month for ADVANCE runs.
func (p LeasePaymentParams) WithDefaults(now time.Time) LeasePaymentParams {
	if p.PeriodType == "" {
		p.PeriodType = PeriodFinal
	}
	if p.Year == 0 {
		if p.PeriodType == PeriodFinal && p.Month == nil {
			p.Year = now.Year() - 1
		} else {
			p.Year = now.Year()
		}
	}
	if p.PeriodType == PeriodAdvance && p.Month == nil {
		m := int(now.Month())
		p.Month = &m
	}
	if p.AutoSettle == nil {
		settle := true
		p.AutoSettle = &settle
	}
	return p
}

func (p LeasePaymentParams) validate() error {
	if p.TotalParkRevenueEur != nil && p.TotalParkRevenueEur.IsNegative() {
		return errors.New("totalParkRevenueEur must not be negative")
	}
	if p.MinimumGuaranteeEur != nil && p.MinimumGuaranteeEur.IsNegative() {
		return errors.New("minimumGuaranteeEur must not be negative")
	}
	return nil
}

// DistributionParams configures a DISTRIBUTION run.
type DistributionParams struct {
	FundID           string          `json:"fundId" validate:"required,uuid"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	DistributionDate *time.Time      `json:"distributionDate,omitempty"`
	Description      *string         `json:"description,omitempty" validate:"omitempty,max=500"`
	AutoExecute      bool            `json:"autoExecute"`
}

func (DistributionParams) RuleType() RuleType { return RuleTypeDistribution }
func (DistributionParams) isRuleParameters()  {}

// WithDefaults dates the distribution on the run day.
func (p DistributionParams) WithDefaults(now time.Time) DistributionParams {
	if p.DistributionDate == nil {
		d := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		p.DistributionDate = &d
	}
	return p
}

func (p DistributionParams) validate() error {
	if !p.TotalAmount.IsPositive() {
		return errors.New("totalAmount must be positive")
	}
	return nil
}

// ManagementFeeParams configures a MANAGEMENT_FEE run. Exactly one of
// FeePercentage (of the period's park revenue) or FixedAmountEur is set.
type ManagementFeeParams struct {
	ParkID         string           `json:"parkId" validate:"required,uuid"`
	FeePercentage  *decimal.Decimal `json:"feePercentage,omitempty"`
	FixedAmountEur *decimal.Decimal `json:"fixedAmountEur,omitempty"`
	Year           int              `json:"year" validate:"omitempty,min=2000,max=2100"`
	Month          int              `json:"month" validate:"omitempty,min=1,max=12"`
	Description    *string          `json:"description,omitempty" validate:"omitempty,max=500"`
}

func (ManagementFeeParams) RuleType() RuleType { return RuleTypeManagementFee }
func (ManagementFeeParams) isRuleParameters()  {}

// WithDefaults bills the month preceding the run.
func (p ManagementFeeParams) WithDefaults(now time.Time) ManagementFeeParams {
	if p.Month == 0 || p.Year == 0 {
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		if p.Month == 0 {
			p.Month = int(prev.Month())
		}
		if p.Year == 0 {
			p.Year = prev.Year()
		}
	}
	return p
}

func (p ManagementFeeParams) validate() error {
	if (p.FeePercentage == nil) == (p.FixedAmountEur == nil) {
		return errors.New("exactly one of feePercentage or fixedAmountEur is required")
	}
	if p.FeePercentage != nil && (!p.FeePercentage.IsPositive() || p.FeePercentage.GreaterThan(hundred)) {
		return errors.New("feePercentage must be in (0, 100]")
	}
	if p.FixedAmountEur != nil && !p.FixedAmountEur.IsPositive() {
		return errors.New("fixedAmountEur must be positive")
	}
	return nil
}

// CustomLine is one configured line of a CUSTOM invoice.
type CustomLine struct {
	Description string           `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPrice"`
	TaxRate     *decimal.Decimal `json:"taxRate,omitempty"`
}

// CustomParams configures a CUSTOM run: one invoice with fixed lines.
type CustomParams struct {
	RecipientName    string       `json:"recipientName" validate:"required,max=255"`
	RecipientAddress string       `json:"recipientAddress" validate:"max=500"`
	InvoiceType      InvoiceType  `json:"invoiceType" validate:"omitempty,oneof=INVOICE CREDIT_NOTE"`
	Lines            []CustomLine `json:"lines" validate:"required,min=1,dive"`
}

func (CustomParams) RuleType() RuleType { return RuleTypeCustom }
func (CustomParams) isRuleParameters()  {}

// WithDefaults issues a regular invoice unless configured otherwise.
func (p CustomParams) WithDefaults(time.Time) CustomParams {
	if p.InvoiceType == "" {
		p.InvoiceType = InvoiceTypeInvoice
	}
	return p
}

func (p CustomParams) validate() error {
	for i, l := range p.Lines {
		if l.UnitPrice.IsNegative() || l.Quantity.IsNegative() {
			return fmt.Errorf("line %d: quantity and unitPrice must not be negative", i+1)
		}
	}
	return nil
}

type extraValidator interface {
	validate() error
}

// DecodeRuleParameters decodes raw parameters into the typed variant for ruleType.
func DecodeRuleParameters(ruleType RuleType, raw json.RawMessage) (RuleParameters, error) {
	switch ruleType {
	case RuleTypeLeaseAdvance:
		return decodeInto[LeaseAdvanceParams](raw)
	case RuleTypeLeasePayment:
		return decodeInto[LeasePaymentParams](raw)
	case RuleTypeDistribution:
		return decodeInto[DistributionParams](raw)
	case RuleTypeManagementFee:
		return decodeInto[ManagementFeeParams](raw)
	case RuleTypeCustom:
		return decodeInto[CustomParams](raw)
	}
	return nil, fmt.Errorf("%w: unknown rule type %q", ErrInvalidParameters, ruleType)
}

func decodeInto[P RuleParameters](raw json.RawMessage) (RuleParameters, error) {
	var p P
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if v, ok := any(p).(extraValidator); ok {
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
	}
	return p, nil
}
