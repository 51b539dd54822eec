package dto

import (
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateSettlementRequest defines the data needed to create a lease revenue settlement.
type CreateSettlementRequest struct {
	ParkID              string           `json:"parkId" binding:"required,uuid"`
	Year                int              `json:"year" binding:"required,min=2000,max=2100"`
	Month               *int             `json:"month,omitempty" binding:"omitempty,min=1,max=12"`
	PeriodType          string           `json:"periodType" binding:"required,oneof=ADVANCE FINAL"`
	AdvanceInterval     *string          `json:"advanceInterval,omitempty" binding:"omitempty,oneof=YEARLY QUARTERLY MONTHLY"`
	TotalParkRevenueEur *decimal.Decimal `json:"totalParkRevenueEur,omitempty" swaggertype:"string"`
	MinimumGuaranteeEur *decimal.Decimal `json:"minimumGuaranteeEur,omitempty" swaggertype:"string"`
	SettlementDate      *string          `json:"settlementDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
	Notes               *string          `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

func toPeriod(year int, month *int, periodType string, interval *string) domain.SettlementPeriod {
	p := domain.SettlementPeriod{Year: year, Month: month, PeriodType: domain.SettlementPeriodType(periodType)}
	if interval != nil {
		ai := domain.AdvanceInterval(*interval)
		p.AdvanceInterval = &ai
	}
	return p
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ToInput converts the request.
func (r CreateSettlementRequest) ToInput() (domain.SettlementInput, error) {
	date, err := parseOptionalDate(r.SettlementDate)
	if err != nil {
		return domain.SettlementInput{}, err
	}
	return domain.SettlementInput{
		ParkID:              r.ParkID,
		Period:              toPeriod(r.Year, r.Month, r.PeriodType, r.AdvanceInterval),
		TotalParkRevenueEur: r.TotalParkRevenueEur,
		MinimumGuaranteeEur: r.MinimumGuaranteeEur,
		SettlementDate:      date,
		Notes:               r.Notes,
	}, nil
}

// HistoricalItemRequest is one lessor line of an imported settlement.
type HistoricalItemRequest struct {
	LessorID         string          `json:"lessorId" binding:"required,uuid"`
	LessorName       string          `json:"lessorName" binding:"required,max=255"`
	SubtotalEur      decimal.Decimal `json:"subtotalEur" swaggertype:"string"`
	TaxableAmountEur decimal.Decimal `json:"taxableAmountEur" swaggertype:"string"`
	ExemptAmountEur  decimal.Decimal `json:"exemptAmountEur" swaggertype:"string"`
	AdvancePaidEur   decimal.Decimal `json:"advancePaidEur" swaggertype:"string"`
}

// ImportHistoricalSettlementRequest imports an externally computed, already closed settlement.
type ImportHistoricalSettlementRequest struct {
	ParkID              string                  `json:"parkId" binding:"required,uuid"`
	Year                int                     `json:"year" binding:"required,min=2000,max=2100"`
	Month               *int                    `json:"month,omitempty" binding:"omitempty,min=1,max=12"`
	PeriodType          string                  `json:"periodType" binding:"required,oneof=ADVANCE FINAL"`
	AdvanceInterval     *string                 `json:"advanceInterval,omitempty" binding:"omitempty,oneof=YEARLY QUARTERLY MONTHLY"`
	TotalParkRevenueEur decimal.Decimal         `json:"totalParkRevenueEur" swaggertype:"string"`
	RevenueSharePercent decimal.Decimal         `json:"revenueSharePercent" swaggertype:"string"`
	CalculatedFeeEur    decimal.Decimal         `json:"calculatedFeeEur" swaggertype:"string"`
	MinimumGuaranteeEur decimal.Decimal         `json:"minimumGuaranteeEur" swaggertype:"string"`
	ActualFeeEur        decimal.Decimal         `json:"actualFeeEur" swaggertype:"string"`
	SettlementDate      *string                 `json:"settlementDate,omitempty" binding:"omitempty,datetime=2006-01-02"`
	Notes               *string                 `json:"notes,omitempty" binding:"omitempty,max=2000"`
	Items               []HistoricalItemRequest `json:"items" binding:"omitempty,dive"`
}

// ToInput converts the request.
func (r ImportHistoricalSettlementRequest) ToInput() (domain.HistoricalSettlementInput, error) {
	date, err := parseOptionalDate(r.SettlementDate)
	if err != nil {
		return domain.HistoricalSettlementInput{}, err
	}
	items := make([]domain.HistoricalItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.HistoricalItemInput{
			LessorID:         it.LessorID,
			LessorName:       it.LessorName,
			SubtotalEur:      it.SubtotalEur,
			TaxableAmountEur: it.TaxableAmountEur,
			ExemptAmountEur:  it.ExemptAmountEur,
			AdvancePaidEur:   it.AdvancePaidEur,
		})
	}
	return domain.HistoricalSettlementInput{
		ParkID:              r.ParkID,
		Period:              toPeriod(r.Year, r.Month, r.PeriodType, r.AdvanceInterval),
		TotalParkRevenueEur: r.TotalParkRevenueEur,
		RevenueSharePercent: r.RevenueSharePercent,
		CalculatedFeeEur:    r.CalculatedFeeEur,
		MinimumGuaranteeEur: r.MinimumGuaranteeEur,
		ActualFeeEur:        r.ActualFeeEur,
		SettlementDate:      date,
		Notes:               r.Notes,
		Items:               items,
	}, nil
}

// SettleSettlementResponse reports the settled settlement and the invoices it emitted.
type SettleSettlementResponse struct {
	Settlement *domain.LeaseRevenueSettlement `json:"settlement"`
	Invoices   []domain.Invoice               `json:"invoices"`
}
