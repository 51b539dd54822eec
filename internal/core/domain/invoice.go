package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType partitions invoice numbering.
type InvoiceType string

const (
	InvoiceTypeInvoice    InvoiceType = "INVOICE"
	InvoiceTypeCreditNote InvoiceType = "CREDIT_NOTE"
)

// IsValid reports whether t is a known invoice type.
func (t InvoiceType) IsValid() bool {
	return t == InvoiceTypeInvoice || t == InvoiceTypeCreditNote
}

// RecipientType identifies what kind of party an invoice is addressed to.
type RecipientType string

const (
	RecipientShareholder  RecipientType = "SHAREHOLDER"
	RecipientLessor       RecipientType = "LESSOR"
	RecipientParkOperator RecipientType = "PARK_OPERATOR"
	RecipientOther        RecipientType = "OTHER"
)

// ReferenceType links an invoice back to the document or process that produced it.
type ReferenceType string

const (
	ReferenceDistribution    ReferenceType = "DISTRIBUTION"
	ReferenceLeaseAdvance    ReferenceType = "LEASE_ADVANCE"
	ReferenceLeaseSettlement ReferenceType = "LEASE_SETTLEMENT"
	ReferenceManagementFee   ReferenceType = "MANAGEMENT_FEE"
	ReferenceBillingRule     ReferenceType = "BILLING_RULE"
)

// InvoiceStatus is the lifecycle state of an invoice. The engine only creates DRAFT invoices.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "DRAFT"
)

// Invoice is a financial document emitted by the billing engine.
type Invoice struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenantId"`
	InvoiceNumber    string          `json:"invoiceNumber"`
	InvoiceType      InvoiceType     `json:"invoiceType"`
	Status           InvoiceStatus   `json:"status"`
	InvoiceDate      time.Time       `json:"invoiceDate"`
	DueDate          time.Time       `json:"dueDate"`
	RecipientType    RecipientType   `json:"recipientType"`
	RecipientID      *string         `json:"recipientId,omitempty"`
	RecipientName    string          `json:"recipientName"`
	RecipientAddress string          `json:"recipientAddress"`
	NetAmount        decimal.Decimal `json:"netAmount"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	GrossAmount      decimal.Decimal `json:"grossAmount"`
	ReferenceType    ReferenceType   `json:"referenceType"`
	ReferenceID      *string         `json:"referenceId,omitempty"`
	ParkID           *string         `json:"parkId,omitempty"`
	PeriodYear       *int            `json:"periodYear,omitempty"`
	PeriodMonth      *int            `json:"periodMonth,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
	Items            []InvoiceItem   `json:"items"`
	AuditFields
}

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoiceId"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	NetAmount   decimal.Decimal `json:"netAmount"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	GrossAmount decimal.Decimal `json:"grossAmount"`
}

// InvoiceLine is the input for one invoice item before totals are computed.
type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal // percent, e.g. 19
}

var hundred = decimal.NewFromInt(100)

// BuildItems computes the money columns of each line, rounding every amount to cents.
func BuildItems(lines []InvoiceLine) []InvoiceItem {
	items := make([]InvoiceItem, 0, len(lines))
	for i, l := range lines {
		qty := l.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		net := RoundMoney(qty.Mul(l.UnitPrice))
		tax := RoundMoney(net.Mul(l.TaxRate).Div(hundred))
		items = append(items, InvoiceItem{
			Position:    i + 1,
			Description: l.Description,
			Quantity:    qty,
			UnitPrice:   l.UnitPrice,
			NetAmount:   net,
			TaxRate:     l.TaxRate,
			TaxAmount:   tax,
			GrossAmount: net.Add(tax),
		})
	}
	return items
}

// ApplyItems sets the items and recomputes the invoice totals from them. The
// header tax rate is the rate shared by all lines, or the highest line rate
// when they differ.
func (inv *Invoice) ApplyItems(items []InvoiceItem) {
	inv.Items = items
	inv.NetAmount, inv.TaxAmount, inv.GrossAmount = decimal.Zero, decimal.Zero, decimal.Zero
	inv.TaxRate = decimal.Zero
	for i := range items {
		inv.Items[i].InvoiceID = inv.ID
		inv.NetAmount = inv.NetAmount.Add(items[i].NetAmount)
		inv.TaxAmount = inv.TaxAmount.Add(items[i].TaxAmount)
		inv.GrossAmount = inv.GrossAmount.Add(items[i].GrossAmount)
		if items[i].TaxRate.GreaterThan(inv.TaxRate) {
			inv.TaxRate = items[i].TaxRate
		}
	}
}

// NewInvoiceFromLines turns lines into items with fresh ids and fills in the totals of header.
func NewInvoiceFromLines(header Invoice, lines []InvoiceLine) Invoice {
	items := BuildItems(lines)
	for i := range items {
		items[i].ID = uuid.NewString()
	}
	header.ApplyItems(items)
	return header
}

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
