package services

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
)

// InvoiceNumberAllocatorSvc hands out gap-free contiguous invoice numbers.
type InvoiceNumberAllocatorSvc interface {
	// Allocate reserves count numbers in its own transaction.
	Allocate(ctx context.Context, tenantID string, invoiceType domain.InvoiceType, count int) ([]string, error)
	// AllocateWithin reserves count numbers through a transaction-bound sequence
	// repository, so the reservation rolls back with the caller's unit of work.
	AllocateWithin(ctx context.Context, seq portsrepo.InvoiceSequenceRepository, settings domain.TenantSettings, invoiceType domain.InvoiceType, count int) ([]string, error)
}

// AuditLoggerSvc records audit entries. Failures are logged, never returned.
type AuditLoggerSvc interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}
