package dto

import (
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// CreateDistributionRequest defines the data needed to create a distribution.
type CreateDistributionRequest struct {
	FundID           string          `json:"fundId" binding:"required,uuid"`
	TotalAmount      decimal.Decimal `json:"totalAmount" swaggertype:"string" example:"10000.00"`
	DistributionDate string          `json:"distributionDate" binding:"required,datetime=2006-01-02" example:"2025-06-30"`
	Description      *string         `json:"description,omitempty" binding:"omitempty,max=500"`
}

// ToInput converts the request; the date format is already validated by binding.
func (r CreateDistributionRequest) ToInput() (domain.DistributionInput, error) {
	date, err := time.Parse(DateLayout, r.DistributionDate)
	if err != nil {
		return domain.DistributionInput{}, err
	}
	return domain.DistributionInput{
		FundID:           r.FundID,
		TotalAmount:      r.TotalAmount,
		DistributionDate: date,
		Description:      r.Description,
	}, nil
}

// ExecuteDistributionResponse reports the executed distribution and its credit notes.
type ExecuteDistributionResponse struct {
	Distribution *domain.Distribution `json:"distribution"`
	Invoices     []domain.Invoice     `json:"invoices"`
}
