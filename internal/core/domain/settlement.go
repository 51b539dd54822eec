package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SettlementPeriodType distinguishes provisional advances from final reconciliations.
type SettlementPeriodType string

const (
	PeriodAdvance SettlementPeriodType = "ADVANCE"
	PeriodFinal   SettlementPeriodType = "FINAL"
)

// SettlementStatus is the lifecycle state of a lease revenue settlement.
type SettlementStatus string

const (
	SettlementOpen       SettlementStatus = "OPEN"
	SettlementCalculated SettlementStatus = "CALCULATED"
	SettlementSettled    SettlementStatus = "SETTLED"
	SettlementClosed     SettlementStatus = "CLOSED"
)

// settlementTransitions is forward-only. CALCULATED may be recalculated in place.
var settlementTransitions = map[SettlementStatus][]SettlementStatus{
	SettlementOpen:       {SettlementCalculated},
	SettlementCalculated: {SettlementCalculated, SettlementSettled},
	SettlementSettled:    {SettlementClosed},
	SettlementClosed:     {},
}

// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid settlement status transition")

// ValidateSettlementTransition checks whether moving from current to target is allowed.
func ValidateSettlementTransition(current, target SettlementStatus) error {
	allowed, ok := settlementTransitions[current]
	if !ok {
		return fmt.Errorf("%w: unknown current state %q", ErrInvalidTransition, current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, target)
}

// IsMergeable reports whether a duplicate creation request may update this settlement.
func (s SettlementStatus) IsMergeable() bool {
	return s == SettlementOpen || s == SettlementCalculated
}

// SettlementPeriod identifies the billing period of a settlement.
type SettlementPeriod struct {
	Year            int
	Month           *int
	PeriodType      SettlementPeriodType
	AdvanceInterval *AdvanceInterval
}

// Normalize validates the period and canonicalizes the month: quarterly
// advances start on the quarter's first month and yearly advances carry no month.
func (p SettlementPeriod) Normalize() (SettlementPeriod, error) {
	if p.Year < 2000 || p.Year > 2100 {
		return p, fmt.Errorf("year %d out of range", p.Year)
	}
	if p.Month != nil && (*p.Month < 1 || *p.Month > 12) {
		return p, fmt.Errorf("month %d out of range", *p.Month)
	}
	switch p.PeriodType {
	case PeriodFinal:
		p.AdvanceInterval = nil
		return p, nil
	case PeriodAdvance:
	default:
		return p, fmt.Errorf("unknown period type %q", p.PeriodType)
	}
	if p.AdvanceInterval == nil || !p.AdvanceInterval.IsValid() {
		return p, errors.New("advance settlements require an advanceInterval of YEARLY, QUARTERLY or MONTHLY")
	}
	interval := *p.AdvanceInterval
	if interval == AdvanceYearly {
		p.Month = nil
		return p, nil
	}
	if p.Month == nil {
		return p, fmt.Errorf("%s advance settlements require a month", interval)
	}
	m := interval.PeriodStartMonth(*p.Month)
	p.Month = &m
	return p, nil
}

// Months returns how many calendar months the period covers.
func (p SettlementPeriod) Months() int {
	if p.PeriodType == PeriodAdvance && p.AdvanceInterval != nil {
		return p.AdvanceInterval.Months()
	}
	if p.Month != nil {
		return 1
	}
	return 12
}

// Range returns the half-open [from, to) interval of the period in UTC.
func (p SettlementPeriod) Range() (time.Time, time.Time) {
	month := 1
	if p.Month != nil {
		month = *p.Month
	}
	from := time.Date(p.Year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, p.Months(), 0)
}

// Fraction returns the share of a year the period covers.
func (p SettlementPeriod) Fraction() decimal.Decimal {
	return decimal.NewFromInt(int64(p.Months())).Div(decimal.NewFromInt(12))
}

// LeaseRevenueSettlement is a park's lease fee obligation for one period.
type LeaseRevenueSettlement struct {
	ID                  string                       `json:"id"`
	TenantID            string                       `json:"tenantId"`
	ParkID              string                       `json:"parkId"`
	Year                int                          `json:"year"`
	Month               *int                         `json:"month,omitempty"`
	PeriodType          SettlementPeriodType         `json:"periodType"`
	AdvanceInterval     *AdvanceInterval             `json:"advanceInterval,omitempty"`
	Status              SettlementStatus             `json:"status"`
	TotalParkRevenueEur decimal.Decimal              `json:"totalParkRevenueEur"`
	RevenueSharePercent decimal.Decimal              `json:"revenueSharePercent"`
	CalculatedFeeEur    decimal.Decimal              `json:"calculatedFeeEur"`
	MinimumGuaranteeEur decimal.Decimal              `json:"minimumGuaranteeEur"`
	ActualFeeEur        decimal.Decimal              `json:"actualFeeEur"`
	UsedMinimum         bool                         `json:"usedMinimum"`
	IsHistorical        bool                         `json:"isHistorical"`
	SettlementDate      *time.Time                   `json:"settlementDate,omitempty"`
	Notes               *string                      `json:"notes,omitempty"`
	CalculatedAt        *time.Time                   `json:"calculatedAt,omitempty"`
	SettledAt           *time.Time                   `json:"settledAt,omitempty"`
	ClosedAt            *time.Time                   `json:"closedAt,omitempty"`
	Items               []LeaseRevenueSettlementItem `json:"items"`
	AuditFields
}

// Period returns the settlement's period key.
func (s LeaseRevenueSettlement) Period() SettlementPeriod {
	return SettlementPeriod{Year: s.Year, Month: s.Month, PeriodType: s.PeriodType, AdvanceInterval: s.AdvanceInterval}
}

// LeaseRevenueSettlementItem is one lessor's share of a settlement.
type LeaseRevenueSettlementItem struct {
	ID               string          `json:"id"`
	SettlementID     string          `json:"settlementId"`
	LessorID         string          `json:"lessorId"`
	LessorName       string          `json:"lessorName"`
	TurbineCount     int             `json:"turbineCount"`
	PoolAreaSqm      decimal.Decimal `json:"poolAreaSqm"`
	StandortFeeEur   decimal.Decimal `json:"standortFeeEur"`
	PoolFeeEur       decimal.Decimal `json:"poolFeeEur"`
	SealedAreaFeeEur decimal.Decimal `json:"sealedAreaFeeEur"`
	RoadFeeEur       decimal.Decimal `json:"roadFeeEur"`
	CableFeeEur      decimal.Decimal `json:"cableFeeEur"`
	SubtotalEur      decimal.Decimal `json:"subtotalEur"`
	TaxableAmountEur decimal.Decimal `json:"taxableAmountEur"`
	ExemptAmountEur  decimal.Decimal `json:"exemptAmountEur"`
	AdvancePaidEur   decimal.Decimal `json:"advancePaidEur"`
	RemainderEur     decimal.Decimal `json:"remainderEur"`
	InvoiceID        *string         `json:"invoiceId,omitempty"`
}

// ComponentSum returns the unscaled sum of the item's fee components.
func (i LeaseRevenueSettlementItem) ComponentSum() decimal.Decimal {
	return i.StandortFeeEur.Add(i.PoolFeeEur).Add(i.SealedAreaFeeEur).Add(i.RoadFeeEur).Add(i.CableFeeEur)
}

// Component returns the amount of one fee component.
func (i LeaseRevenueSettlementItem) Component(c FeeComponent) decimal.Decimal {
	switch c {
	case ComponentStandort:
		return i.StandortFeeEur
	case ComponentPool:
		return i.PoolFeeEur
	case ComponentSealedArea:
		return i.SealedAreaFeeEur
	case ComponentRoad:
		return i.RoadFeeEur
	case ComponentCable:
		return i.CableFeeEur
	}
	return decimal.Zero
}

// SettlementInput is the request to create (or merge into) a settlement.
// Nil money fields keep the existing value on merge and default on creation.
type SettlementInput struct {
	ParkID              string
	Period              SettlementPeriod
	TotalParkRevenueEur *decimal.Decimal
	MinimumGuaranteeEur *decimal.Decimal
	SettlementDate      *time.Time
	Notes               *string
}

// HistoricalItemInput carries externally computed per-lessor totals.
type HistoricalItemInput struct {
	LessorID         string
	LessorName       string
	SubtotalEur      decimal.Decimal
	TaxableAmountEur decimal.Decimal
	ExemptAmountEur  decimal.Decimal
	AdvancePaidEur   decimal.Decimal
}

// HistoricalSettlementInput imports a settlement computed outside the system.
type HistoricalSettlementInput struct {
	ParkID              string
	Period              SettlementPeriod
	TotalParkRevenueEur decimal.Decimal
	RevenueSharePercent decimal.Decimal
	CalculatedFeeEur    decimal.Decimal
	MinimumGuaranteeEur decimal.Decimal
	ActualFeeEur        decimal.Decimal
	SettlementDate      *time.Time
	Notes               *string
	Items               []HistoricalItemInput
}
