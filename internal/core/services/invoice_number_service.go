package services

import (
	"context"
	"fmt"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/metrics"
)

// maxNumbersPerAllocation bounds a single reservation.
const maxNumbersPerAllocation = 10000

type invoiceNumberService struct {
	BaseService
	sequences portsrepo.InvoiceSequenceRepository
	settings  portsrepo.TenantSettingsReader
}

// NewInvoiceNumberService creates the invoice number allocator.
func NewInvoiceNumberService(sequences portsrepo.InvoiceSequenceRepository, settings portsrepo.TenantSettingsReader, opts ...ServiceOption) portssvc.InvoiceNumberAllocatorSvc {
	return &invoiceNumberService{
		BaseService: newBaseService(opts),
		sequences:   sequences,
		settings:    settings,
	}
}

var _ portssvc.InvoiceNumberAllocatorSvc = (*invoiceNumberService)(nil)

// Allocate reserves count numbers using the pool-bound counter; the single
// increment statement is its own transaction.
func (s *invoiceNumberService) Allocate(ctx context.Context, tenantID string, invoiceType domain.InvoiceType, count int) ([]string, error) {
	settings, err := s.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	return s.AllocateWithin(ctx, s.sequences, settings, invoiceType, count)
}

// AllocateWithin reserves count contiguous numbers through seq.
func (s *invoiceNumberService) AllocateWithin(ctx context.Context, seq portsrepo.InvoiceSequenceRepository, settings domain.TenantSettings, invoiceType domain.InvoiceType, count int) ([]string, error) {
	if count < 1 || count > maxNumbersPerAllocation {
		return nil, fmt.Errorf("%w: count must be between 1 and %d, got %d", apperrors.ErrValidation, maxNumbersPerAllocation, count)
	}
	if !invoiceType.IsValid() {
		return nil, fmt.Errorf("%w: unknown invoice type %q", apperrors.ErrValidation, invoiceType)
	}

	last, err := seq.Increment(ctx, settings.TenantID, invoiceType, count)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve %d %s numbers: %w", count, invoiceType, err)
	}

	first := last - int64(count) + 1
	prefix := settings.PrefixFor(invoiceType)
	year := s.Now().Year()
	numbers := make([]string, count)
	for i := range numbers {
		numbers[i] = FormatInvoiceNumber(prefix, year, first+int64(i))
	}
	metrics.AddNumbersAllocated(string(invoiceType), count)
	return numbers, nil
}

// FormatInvoiceNumber renders {prefix}-{year}-{seq:05}.
func FormatInvoiceNumber(prefix string, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}
