package repositories

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/shopspring/decimal"
)

// PeriodInvoiceQuery identifies an invoice emitted for one recipient and billing period.
type PeriodInvoiceQuery struct {
	TenantID      string
	ReferenceType domain.ReferenceType
	ParkID        string
	RecipientID   *string
	Year          int
	Month         *int
}

// InvoiceReader defines read operations on emitted invoices.
type InvoiceReader interface {
	ExistsPeriodInvoice(ctx context.Context, q PeriodInvoiceQuery) (bool, error)
	// SumAdvancePayments returns, per lessor, the net amount of advance credit notes
	// for the park and year (restricted to month when given).
	SumAdvancePayments(ctx context.Context, tenantID, parkID string, year int, month *int) (map[string]decimal.Decimal, error)
}

// InvoiceWriter persists invoices with their items.
type InvoiceWriter interface {
	CreateInvoice(ctx context.Context, invoice domain.Invoice) error
}

// InvoiceRepository combines reader and writer interfaces.
type InvoiceRepository interface {
	InvoiceReader
	InvoiceWriter
}

// InvoiceSequenceRepository owns the per-(tenant, invoice type) number counter.
type InvoiceSequenceRepository interface {
	// Increment atomically adds count to the counter and returns the new last value.
	Increment(ctx context.Context, tenantID string, invoiceType domain.InvoiceType, count int) (int64, error)
}
