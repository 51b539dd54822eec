package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// leasePaymentHandler settles a park's lease fees through the settlement engine.
type leasePaymentHandler struct {
	BaseService
	settlements portssvc.SettlementSvcFacade
	parks       portsrepo.ParkReader
	revenues    portsrepo.RevenueReader
}

// NewLeasePaymentHandler creates the LEASE_PAYMENT handler.
func NewLeasePaymentHandler(settlements portssvc.SettlementSvcFacade, parks portsrepo.ParkReader, revenues portsrepo.RevenueReader, opts ...ServiceOption) portssvc.RuleHandler[domain.LeasePaymentParams] {
	return &leasePaymentHandler{
		BaseService: newBaseService(opts),
		settlements: settlements,
		parks:       parks,
		revenues:    revenues,
	}
}

func (h *leasePaymentHandler) Run(ctx context.Context, tenantID string, p domain.LeasePaymentParams, opts domain.RunOptions) (*domain.ExecutionResult, error) {
	park, err := h.parks.FindParkByID(ctx, tenantID, p.ParkID)
	if err != nil {
		return nil, err
	}
	period := domain.SettlementPeriod{Year: p.Year, Month: p.Month, PeriodType: p.PeriodType, AdvanceInterval: p.AdvanceInterval}
	if period.PeriodType == domain.PeriodAdvance && period.AdvanceInterval == nil {
		interval := park.FeeConfig.AdvanceInterval
		if !interval.IsValid() {
			interval = domain.AdvanceMonthly
		}
		period.AdvanceInterval = &interval
	}
	period, err = period.Normalize()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid settlement period: %v", err)
	}

	revenue := p.TotalParkRevenueEur
	if revenue == nil {
		from, to := period.Range()
		sum, err := h.revenues.SumParkRevenue(ctx, tenantID, park.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to sum park revenue: %w", err)
		}
		revenue = &sum
	}
	in := domain.SettlementInput{
		ParkID:              park.ID,
		Period:              period,
		TotalParkRevenueEur: revenue,
		MinimumGuaranteeEur: p.MinimumGuaranteeEur,
	}

	rec := domain.NewResultRecorder()
	if opts.DryRun {
		st, err := h.settlements.PreviewSettlement(ctx, tenantID, in)
		if err != nil {
			return nil, err
		}
		for _, item := range st.Items {
			amount := settlementItemAmount(st.PeriodType, item)
			if amount.IsZero() {
				rec.Skip(item.LessorID, item.LessorName, "nothing to settle")
				continue
			}
			rec.Success(item.LessorID, item.LessorName, amount, nil, nil)
		}
		return rec.Result(), nil
	}

	st, _, err := h.settlements.CreateSettlement(ctx, tenantID, opts.ActorID, in)
	if errors.Is(err, apperrors.ErrConflict) {
		rec.Skip(park.ID, park.Name, "settlement for period is already settled")
		return rec.Result(), nil
	}
	if err != nil {
		return nil, err
	}
	st, err = h.settlements.CalculateSettlement(ctx, tenantID, opts.ActorID, st.ID)
	if err != nil {
		return nil, err
	}

	if p.AutoSettle != nil && !*p.AutoSettle {
		for _, item := range st.Items {
			rec.Success(item.LessorID, item.LessorName, settlementItemAmount(st.PeriodType, item), nil, nil)
		}
		return rec.Result(), nil
	}

	st, invoices, err := h.settlements.SettleSettlement(ctx, tenantID, opts.ActorID, st.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}
	for _, item := range st.Items {
		if item.InvoiceID == nil {
			rec.Skip(item.LessorID, item.LessorName, "nothing to settle")
			continue
		}
		inv := byID[*item.InvoiceID]
		rec.Success(item.LessorID, item.LessorName, inv.GrossAmount, &inv.ID, &inv.InvoiceNumber)
	}
	return rec.Result(), nil
}

// settlementItemAmount is the absolute amount an item would be billed for.
func settlementItemAmount(periodType domain.SettlementPeriodType, item domain.LeaseRevenueSettlementItem) decimal.Decimal {
	if periodType == domain.PeriodAdvance {
		return item.SubtotalEur
	}
	return item.RemainderEur.Abs()
}

// distributionRuleHandler creates, and optionally executes, a fund distribution.
type distributionRuleHandler struct {
	BaseService
	distributions portssvc.DistributionSvcFacade
}

// NewDistributionRuleHandler creates the DISTRIBUTION handler.
func NewDistributionRuleHandler(distributions portssvc.DistributionSvcFacade, opts ...ServiceOption) portssvc.RuleHandler[domain.DistributionParams] {
	return &distributionRuleHandler{BaseService: newBaseService(opts), distributions: distributions}
}

func (h *distributionRuleHandler) Run(ctx context.Context, tenantID string, p domain.DistributionParams, opts domain.RunOptions) (*domain.ExecutionResult, error) {
	in := domain.DistributionInput{
		FundID:           p.FundID,
		TotalAmount:      p.TotalAmount,
		DistributionDate: *p.DistributionDate,
		Description:      p.Description,
	}
	rec := domain.NewResultRecorder()

	if opts.DryRun {
		d, err := h.distributions.PreviewDistribution(ctx, tenantID, in)
		if err != nil {
			return nil, err
		}
		for _, item := range d.Items {
			rec.Success(item.ShareholderID, item.ShareholderName, item.Amount, nil, nil)
		}
		return rec.Result(), nil
	}

	d, err := h.distributions.CreateDistribution(ctx, tenantID, opts.ActorID, in)
	if err != nil {
		return nil, err
	}
	if !p.AutoExecute {
		for _, item := range d.Items {
			rec.Success(item.ShareholderID, item.ShareholderName, item.Amount, nil, nil)
		}
		return rec.Result(), nil
	}

	d, invoices, err := h.distributions.ExecuteDistribution(ctx, tenantID, opts.ActorID, d.ID)
	if err != nil {
		return nil, err
	}
	numbers := make(map[string]string, len(invoices))
	for _, inv := range invoices {
		numbers[inv.ID] = inv.InvoiceNumber
	}
	for _, item := range d.Items {
		if item.InvoiceID == nil {
			rec.Skip(item.ShareholderID, item.ShareholderName, "zero amount")
			continue
		}
		number := numbers[*item.InvoiceID]
		rec.Success(item.ShareholderID, item.ShareholderName, item.Amount, item.InvoiceID, &number)
	}
	return rec.Result(), nil
}

// managementFeeHandler invoices the park operator for the management fee.
type managementFeeHandler struct {
	BaseService
	uow      portsrepo.UnitOfWork
	parks    portsrepo.ParkReader
	revenues portsrepo.RevenueReader
	invoices portsrepo.InvoiceReader
	settings portsrepo.TenantSettingsReader
	numbers  portssvc.InvoiceNumberAllocatorSvc
}

// NewManagementFeeHandler creates the MANAGEMENT_FEE handler.
func NewManagementFeeHandler(
	uow portsrepo.UnitOfWork,
	parks portsrepo.ParkReader,
	revenues portsrepo.RevenueReader,
	invoices portsrepo.InvoiceReader,
	settings portsrepo.TenantSettingsReader,
	numbers portssvc.InvoiceNumberAllocatorSvc,
	opts ...ServiceOption,
) portssvc.RuleHandler[domain.ManagementFeeParams] {
	return &managementFeeHandler{
		BaseService: newBaseService(opts),
		uow:         uow,
		parks:       parks,
		revenues:    revenues,
		invoices:    invoices,
		settings:    settings,
		numbers:     numbers,
	}
}

func (h *managementFeeHandler) Run(ctx context.Context, tenantID string, p domain.ManagementFeeParams, opts domain.RunOptions) (*domain.ExecutionResult, error) {
	park, err := h.parks.FindParkByID(ctx, tenantID, p.ParkID)
	if err != nil {
		return nil, err
	}
	settings, err := h.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	month := p.Month
	period := domain.SettlementPeriod{Year: p.Year, Month: &month, PeriodType: domain.PeriodFinal}
	amount := decimal.Zero
	if p.FixedAmountEur != nil {
		amount = domain.RoundMoney(*p.FixedAmountEur)
	} else {
		from, to := period.Range()
		revenue, err := h.revenues.SumParkRevenue(ctx, tenantID, park.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to sum park revenue: %w", err)
		}
		amount = domain.RoundMoney(revenue.Mul(*p.FeePercentage).Div(hundred))
	}

	rec := domain.NewResultRecorder()
	if !amount.IsPositive() {
		rec.Skip(park.ID, park.OperatorName, "no management fee for period")
		return rec.Result(), nil
	}

	exists, err := h.invoices.ExistsPeriodInvoice(ctx, portsrepo.PeriodInvoiceQuery{
		TenantID:      tenantID,
		ReferenceType: domain.ReferenceManagementFee,
		ParkID:        park.ID,
		Year:          p.Year,
		Month:         &month,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing management fee: %w", err)
	}
	if exists && !opts.ForceRun {
		rec.Skip(park.ID, park.OperatorName, "management fee already invoiced for period")
		return rec.Result(), nil
	}
	if opts.DryRun {
		rec.Success(park.ID, park.OperatorName, amount, nil, nil)
		return rec.Result(), nil
	}

	description := fmt.Sprintf("Management fee %s, %s", periodLabel(period), park.Name)
	if p.Description != nil && *p.Description != "" {
		description = *p.Description
	}
	invoiceDate := dateOf(opts.Now)
	parkID, year := park.ID, p.Year
	draftInv := invoiceDraft{
		Type:             domain.InvoiceTypeInvoice,
		RecipientType:    domain.RecipientParkOperator,
		RecipientName:    park.OperatorName,
		RecipientAddress: park.OperatorAddress,
		ReferenceType:    domain.ReferenceManagementFee,
		ParkID:           &parkID,
		PeriodYear:       &year,
		PeriodMonth:      &month,
		InvoiceDate:      invoiceDate,
		DueDate:          invoiceDate.AddDate(0, 0, settings.PaymentTermDays),
		Lines: []domain.InvoiceLine{{
			Description: description,
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   amount,
			TaxRate:     settings.DefaultTaxRate,
		}},
	}
	inv, err := issueSingle(ctx, h.uow, h.numbers, settings, draftInv, opts.ActorID, opts.Now)
	if err != nil {
		rec.Fail(park.ID, park.OperatorName, amount, err)
		return rec.Result(), nil
	}
	rec.Success(park.ID, park.OperatorName, inv.GrossAmount, &inv.ID, &inv.InvoiceNumber)
	return rec.Result(), nil
}

// customRuleHandler emits one invoice with configured lines.
type customRuleHandler struct {
	BaseService
	uow      portsrepo.UnitOfWork
	settings portsrepo.TenantSettingsReader
	numbers  portssvc.InvoiceNumberAllocatorSvc
}

// NewCustomRuleHandler creates the CUSTOM handler.
func NewCustomRuleHandler(uow portsrepo.UnitOfWork, settings portsrepo.TenantSettingsReader, numbers portssvc.InvoiceNumberAllocatorSvc, opts ...ServiceOption) portssvc.RuleHandler[domain.CustomParams] {
	return &customRuleHandler{BaseService: newBaseService(opts), uow: uow, settings: settings, numbers: numbers}
}

func (h *customRuleHandler) Run(ctx context.Context, tenantID string, p domain.CustomParams, opts domain.RunOptions) (*domain.ExecutionResult, error) {
	settings, err := h.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}
	lines := make([]domain.InvoiceLine, len(p.Lines))
	for i, l := range p.Lines {
		rate := settings.DefaultTaxRate
		if l.TaxRate != nil {
			rate = *l.TaxRate
		}
		lines[i] = domain.InvoiceLine{Description: l.Description, Quantity: l.Quantity, UnitPrice: l.UnitPrice, TaxRate: rate}
	}

	invoiceDate := dateOf(opts.Now)
	var ruleID *string
	if opts.RuleID != "" {
		id := opts.RuleID
		ruleID = &id
	}
	draftInv := invoiceDraft{
		Type:             p.InvoiceType,
		RecipientType:    domain.RecipientOther,
		RecipientName:    p.RecipientName,
		RecipientAddress: p.RecipientAddress,
		ReferenceType:    domain.ReferenceBillingRule,
		ReferenceID:      ruleID,
		InvoiceDate:      invoiceDate,
		DueDate:          invoiceDate.AddDate(0, 0, settings.PaymentTermDays),
		Lines:            lines,
	}

	rec := domain.NewResultRecorder()
	if opts.DryRun {
		preview := draftInv.build(tenantID, "", opts.ActorID, opts.Now)
		rec.Success("", p.RecipientName, preview.GrossAmount, nil, nil)
		return rec.Result(), nil
	}
	inv, err := issueSingle(ctx, h.uow, h.numbers, settings, draftInv, opts.ActorID, opts.Now)
	if err != nil {
		rec.Fail("", p.RecipientName, decimal.Zero, err)
		return rec.Result(), nil
	}
	rec.Success("", p.RecipientName, inv.GrossAmount, &inv.ID, &inv.InvoiceNumber)
	return rec.Result(), nil
}

// issueSingle stores one invoice in its own unit of work.
func issueSingle(ctx context.Context, uow portsrepo.UnitOfWork, numbers portssvc.InvoiceNumberAllocatorSvc, settings domain.TenantSettings, draftInv invoiceDraft, actor string, now time.Time) (*domain.Invoice, error) {
	var created []domain.Invoice
	err := uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		invs, err := issueInvoices(ctx, numbers, repos, settings, []invoiceDraft{draftInv}, actor, now)
		created = invs
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(created) != 1 {
		return nil, errors.New("invoice was not created")
	}
	countEmitted(created)
	return &created[0], nil
}
