package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// invoiceDraft describes an invoice before it has a number.
type invoiceDraft struct {
	Type             domain.InvoiceType
	RecipientType    domain.RecipientType
	RecipientID      *string
	RecipientName    string
	RecipientAddress string
	ReferenceType    domain.ReferenceType
	ReferenceID      *string
	ParkID           *string
	PeriodYear       *int
	PeriodMonth      *int
	InvoiceDate      time.Time
	DueDate          time.Time
	Notes            *string
	Lines            []domain.InvoiceLine
}

func (s invoiceDraft) build(tenantID, number, actor string, now time.Time) domain.Invoice {
	header := domain.Invoice{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		InvoiceNumber:    number,
		InvoiceType:      s.Type,
		Status:           domain.InvoiceDraft,
		InvoiceDate:      s.InvoiceDate,
		DueDate:          s.DueDate,
		RecipientType:    s.RecipientType,
		RecipientID:      s.RecipientID,
		RecipientName:    s.RecipientName,
		RecipientAddress: s.RecipientAddress,
		ReferenceType:    s.ReferenceType,
		ReferenceID:      s.ReferenceID,
		ParkID:           s.ParkID,
		PeriodYear:       s.PeriodYear,
		PeriodMonth:      s.PeriodMonth,
		Notes:            s.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor,
			LastUpdatedAt: now,
			LastUpdatedBy: actor,
		},
	}
	return domain.NewInvoiceFromLines(header, s.Lines)
}

// issueInvoices numbers and stores drafts through tx-bound repositories. Numbers
// are reserved in one batch per invoice type and assigned in input order.
func issueInvoices(ctx context.Context, numbers portssvc.InvoiceNumberAllocatorSvc, repos portsrepo.TxRepositories, settings domain.TenantSettings, drafts []invoiceDraft, actor string, now time.Time) ([]domain.Invoice, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	assigned := make([]string, len(drafts))
	for _, t := range []domain.InvoiceType{domain.InvoiceTypeInvoice, domain.InvoiceTypeCreditNote} {
		var idx []int
		for i, s := range drafts {
			if s.Type == t {
				idx = append(idx, i)
			}
		}
		if len(idx) == 0 {
			continue
		}
		nums, err := numbers.AllocateWithin(ctx, repos.Sequences, settings, t, len(idx))
		if err != nil {
			return nil, err
		}
		for j, i := range idx {
			assigned[i] = nums[j]
		}
	}

	invoices := make([]domain.Invoice, 0, len(drafts))
	for i, s := range drafts {
		inv := s.build(settings.TenantID, assigned[i], actor, now)
		if err := repos.Invoices.CreateInvoice(ctx, inv); err != nil {
			return nil, fmt.Errorf("failed to create invoice %s: %w", inv.InvoiceNumber, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

// countEmitted reports committed invoices to the metrics registry.
func countEmitted(invoices []domain.Invoice) {
	for _, inv := range invoices {
		metrics.AddInvoicesEmitted(string(inv.ReferenceType), string(inv.InvoiceType), 1)
	}
}

// dateOf truncates t to midnight UTC.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// periodLabel renders a settlement period for invoice texts.
func periodLabel(p domain.SettlementPeriod) string {
	if p.Month == nil {
		return fmt.Sprintf("%d", p.Year)
	}
	if p.Months() == 3 {
		return fmt.Sprintf("Q%d/%d", (*p.Month-1)/3+1, p.Year)
	}
	return fmt.Sprintf("%02d/%d", *p.Month, p.Year)
}

// feeLines builds one taxable and one exempt line for the non-zero parts.
func feeLines(description string, taxable, exempt, taxRate decimal.Decimal) []domain.InvoiceLine {
	var lines []domain.InvoiceLine
	if !taxable.IsZero() {
		lines = append(lines, domain.InvoiceLine{
			Description: description,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   taxable,
			TaxRate:     taxRate,
		})
	}
	if !exempt.IsZero() {
		lines = append(lines, domain.InvoiceLine{
			Description: description + " (tax exempt)",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   exempt,
			TaxRate:     decimal.Zero,
		})
	}
	return lines
}
