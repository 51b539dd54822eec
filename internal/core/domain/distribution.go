package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Fund is an investment vehicle whose profit is paid out to shareholders.
type Fund struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	AuditFields
}

// ShareholderStatus is the membership state of a shareholder.
type ShareholderStatus string

const (
	ShareholderActive   ShareholderStatus = "ACTIVE"
	ShareholderInactive ShareholderStatus = "INACTIVE"
)

// Shareholder holds a stake in a fund.
type Shareholder struct {
	ID                     string            `json:"id"`
	FundID                 string            `json:"fundId"`
	Name                   string            `json:"name"`
	Address                string            `json:"address"`
	IBAN                   *string           `json:"iban,omitempty"`
	Status                 ShareholderStatus `json:"status"`
	OwnershipPercentage    *decimal.Decimal  `json:"ownershipPercentage,omitempty"`
	DistributionPercentage *decimal.Decimal  `json:"distributionPercentage,omitempty"`
}

// DistributionWeight is the share used for payouts: the distribution
// percentage when set, else the ownership percentage, else zero.
func (s Shareholder) DistributionWeight() decimal.Decimal {
	if s.DistributionPercentage != nil {
		return *s.DistributionPercentage
	}
	if s.OwnershipPercentage != nil {
		return *s.OwnershipPercentage
	}
	return decimal.Zero
}

// DistributionStatus is the lifecycle state of a distribution.
type DistributionStatus string

const (
	DistributionDraft    DistributionStatus = "DRAFT"
	DistributionExecuted DistributionStatus = "EXECUTED"
)

// Distribution is a profit payout of a fund.
type Distribution struct {
	ID                 string             `json:"id"`
	TenantID           string             `json:"tenantId"`
	FundID             string             `json:"fundId"`
	DistributionNumber string             `json:"distributionNumber"`
	TotalAmount        decimal.Decimal    `json:"totalAmount"`
	DistributionDate   time.Time          `json:"distributionDate"`
	Description        *string            `json:"description,omitempty"`
	Status             DistributionStatus `json:"status"`
	ExecutedAt         *time.Time         `json:"executedAt,omitempty"`
	Items              []DistributionItem `json:"items"`
	AuditFields
}

// DistributionItem is one shareholder's part of a distribution.
type DistributionItem struct {
	ID              string          `json:"id"`
	DistributionID  string          `json:"distributionId"`
	ShareholderID   string          `json:"shareholderId"`
	ShareholderName string          `json:"shareholderName"`
	Position        int             `json:"position"`
	Percentage      decimal.Decimal `json:"percentage"`
	Amount          decimal.Decimal `json:"amount"`
	InvoiceID       *string         `json:"invoiceId,omitempty"`
}

// DistributionNumberPrefix returns the per-year prefix, e.g. "AS-2025-".
func DistributionNumberPrefix(year int) string {
	return fmt.Sprintf("AS-%d-", year)
}

// FormatDistributionNumber renders AS-{year}-{seq:03}.
func FormatDistributionNumber(year, seq int) string {
	return fmt.Sprintf("%s%03d", DistributionNumberPrefix(year), seq)
}

// DistributionInput is the request to create a distribution.
type DistributionInput struct {
	FundID           string
	TotalAmount      decimal.Decimal
	DistributionDate time.Time
	Description      *string
}
