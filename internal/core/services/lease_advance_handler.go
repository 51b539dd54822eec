package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

type leaseAdvanceHandler struct {
	BaseService
	uow      portsrepo.UnitOfWork
	parks    portsrepo.ParkReader
	invoices portsrepo.InvoiceReader
	settings portsrepo.TenantSettingsReader
	numbers  portssvc.InvoiceNumberAllocatorSvc
}

// NewLeaseAdvanceHandler creates the LEASE_ADVANCE handler.
func NewLeaseAdvanceHandler(
	uow portsrepo.UnitOfWork,
	parks portsrepo.ParkReader,
	invoices portsrepo.InvoiceReader,
	settings portsrepo.TenantSettingsReader,
	numbers portssvc.InvoiceNumberAllocatorSvc,
	opts ...ServiceOption,
) portssvc.RuleHandler[domain.LeaseAdvanceParams] {
	return &leaseAdvanceHandler{
		BaseService: newBaseService(opts),
		uow:         uow,
		parks:       parks,
		invoices:    invoices,
		settings:    settings,
		numbers:     numbers,
	}
}

// Run issues one advance credit note per lessor for the period containing
// params.Month. Each lessor is committed on its own, so a failing lessor
// leaves the others' invoices in place.
func (h *leaseAdvanceHandler) Run(ctx context.Context, tenantID string, params domain.LeaseAdvanceParams, opts domain.RunOptions) (*domain.ExecutionResult, error) {
	settings, err := h.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	if params.ParkID != nil {
		if _, err := h.parks.FindParkByID(ctx, tenantID, *params.ParkID); err != nil {
			return nil, err
		}
	}

	monthPeriod := domain.SettlementPeriod{Year: params.Year, Month: &params.Month, PeriodType: domain.PeriodFinal}
	from, to := monthPeriod.Range()
	leases, err := h.parks.ListActiveLeases(ctx, tenantID, params.ParkID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load active leases: %w", err)
	}

	byPark := make(map[string][]domain.Lease)
	for _, l := range leases {
		byPark[l.ParkID] = append(byPark[l.ParkID], l)
	}
	parkIDs := make([]string, 0, len(byPark))
	for id := range byPark {
		parkIDs = append(parkIDs, id)
	}
	sort.Strings(parkIDs)

	rec := domain.NewResultRecorder()
	for _, parkID := range parkIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		park, err := h.parks.FindParkByID(ctx, tenantID, parkID)
		if err != nil {
			rec.Fail(parkID, parkID, decimal.Zero, err)
			continue
		}
		h.runPark(ctx, rec, settings, *park, byPark[parkID], params, opts)
	}
	return rec.Result(), nil
}

func (h *leaseAdvanceHandler) runPark(ctx context.Context, rec *domain.ResultRecorder, settings domain.TenantSettings, park domain.Park, leases []domain.Lease, params domain.LeaseAdvanceParams, opts domain.RunOptions) {
	logger := h.GetLogger(ctx).With(slog.String("park_id", park.ID))

	interval := park.FeeConfig.AdvanceInterval
	if !interval.IsValid() {
		interval = domain.AdvanceMonthly
	}
	period, err := domain.SettlementPeriod{
		Year:            params.Year,
		Month:           &params.Month,
		PeriodType:      domain.PeriodAdvance,
		AdvanceInterval: &interval,
	}.Normalize()
	if err != nil {
		rec.Fail(park.ID, park.Name, decimal.Zero, err)
		return
	}

	fraction := period.Fraction()
	fees, err := CalculateLeaseFees(LeaseFeeInput{
		Config:              park.FeeConfig,
		Fraction:            fraction,
		RevenueEur:          park.FeeConfig.EstimatedAnnualRevenueEur.Mul(fraction),
		MinimumGuaranteeEur: park.FeeConfig.MinimumGuaranteeEur.Mul(fraction),
		Leases:              leases,
	})
	if err != nil {
		rec.Fail(park.ID, park.Name, decimal.Zero, err)
		return
	}

	dueDays := settings.PaymentTermDays
	if params.DueDays != nil {
		dueDays = *params.DueDays
	}
	invoiceDate := dateOf(opts.Now)
	description := fmt.Sprintf("Lease advance %s, %s", periodLabel(period), park.Name)

	for _, lf := range fees.Lessors {
		lessor := lf.Lessor
		amount := lf.Item.SubtotalEur

		if err := lessor.CheckPayable(); err != nil {
			logger.Warn("Lessor not payable", slog.String("lessor_id", lessor.ID), slog.String("error", err.Error()))
			rec.Fail(lessor.ID, lessor.Name, amount, err)
			continue
		}
		if !amount.IsPositive() {
			rec.Skip(lessor.ID, lessor.Name, "no advance due for period")
			continue
		}

		lessorID, parkID, year := lessor.ID, park.ID, period.Year
		exists, err := h.invoices.ExistsPeriodInvoice(ctx, portsrepo.PeriodInvoiceQuery{
			TenantID:      settings.TenantID,
			ReferenceType: domain.ReferenceLeaseAdvance,
			ParkID:        parkID,
			RecipientID:   &lessorID,
			Year:          year,
			Month:         period.Month,
		})
		if err != nil {
			rec.Fail(lessor.ID, lessor.Name, amount, fmt.Errorf("failed to check existing advance: %w", err))
			continue
		}
		if exists && !opts.ForceRun {
			rec.Skip(lessor.ID, lessor.Name, "advance already invoiced for period")
			continue
		}

		taxable, exempt := lf.Item.TaxableAmountEur, lf.Item.ExemptAmountEur
		if params.TaxType != nil && *params.TaxType == domain.LeaseAdvanceTaxExempt {
			taxable, exempt = decimal.Zero, amount
		}

		if opts.DryRun {
			rec.Success(lessor.ID, lessor.Name, amount, nil, nil)
			continue
		}

		draftInv := invoiceDraft{
			Type:             domain.InvoiceTypeCreditNote,
			RecipientType:    domain.RecipientLessor,
			RecipientID:      &lessorID,
			RecipientName:    lessor.Name,
			RecipientAddress: lessor.Address(),
			ReferenceType:    domain.ReferenceLeaseAdvance,
			ParkID:           &parkID,
			PeriodYear:       &year,
			PeriodMonth:      period.Month,
			InvoiceDate:      invoiceDate,
			DueDate:          invoiceDate.AddDate(0, 0, dueDays),
			Lines:            feeLines(description, taxable, exempt, settings.DefaultTaxRate),
		}
		inv, err := issueSingle(ctx, h.uow, h.numbers, settings, draftInv, opts.ActorID, opts.Now)
		if err != nil {
			logger.Error("Failed to create advance invoice", slog.String("lessor_id", lessor.ID), slog.String("error", err.Error()))
			rec.Fail(lessor.ID, lessor.Name, amount, err)
			continue
		}
		rec.Success(lessor.ID, lessor.Name, amount, &inv.ID, &inv.InvoiceNumber)
	}
}
