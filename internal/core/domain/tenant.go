package domain

import "github.com/shopspring/decimal"

// TenantSettings carries the per-tenant billing configuration. It is loaded
// once per operation and passed into the calculators explicitly.
type TenantSettings struct {
	TenantID         string          `json:"tenantId"`
	PaymentTermDays  int             `json:"paymentTermDays"`
	DefaultTaxRate   decimal.Decimal `json:"defaultTaxRate"`
	InvoicePrefix    string          `json:"invoicePrefix"`
	CreditNotePrefix string          `json:"creditNotePrefix"`
}

const (
	DefaultPaymentTermDays  = 14
	DefaultInvoicePrefix    = "RE"
	DefaultCreditNotePrefix = "GS"
)

// DefaultTenantSettings is used when a tenant has no settings row yet.
func DefaultTenantSettings(tenantID string) TenantSettings {
	return TenantSettings{
		TenantID:         tenantID,
		PaymentTermDays:  DefaultPaymentTermDays,
		DefaultTaxRate:   decimal.NewFromInt(19),
		InvoicePrefix:    DefaultInvoicePrefix,
		CreditNotePrefix: DefaultCreditNotePrefix,
	}
}

// PrefixFor returns the number prefix for an invoice type.
func (s TenantSettings) PrefixFor(t InvoiceType) string {
	if t == InvoiceTypeCreditNote {
		if s.CreditNotePrefix != "" {
			return s.CreditNotePrefix
		}
		return DefaultCreditNotePrefix
	}
	if s.InvoicePrefix != "" {
		return s.InvoicePrefix
	}
	return DefaultInvoicePrefix
}

// AuditEntry is written after mutating operations; failures to write it never
// affect the operation itself.
type AuditEntry struct {
	TenantID   string         `json:"tenantId"`
	ActorID    string         `json:"actorId"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
