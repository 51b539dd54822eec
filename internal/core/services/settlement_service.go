package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const createSettlementAttempts = 2

type settlementService struct {
	BaseService
	uow         portsrepo.UnitOfWork
	settlements portsrepo.SettlementReader
	parks       portsrepo.ParkReader
	invoices    portsrepo.InvoiceReader
	settings    portsrepo.TenantSettingsReader
	numbers     portssvc.InvoiceNumberAllocatorSvc
}

// NewSettlementService creates the lease revenue settlement engine.
func NewSettlementService(
	uow portsrepo.UnitOfWork,
	settlements portsrepo.SettlementReader,
	parks portsrepo.ParkReader,
	invoices portsrepo.InvoiceReader,
	settings portsrepo.TenantSettingsReader,
	numbers portssvc.InvoiceNumberAllocatorSvc,
	opts ...ServiceOption,
) portssvc.SettlementSvcFacade {
	return &settlementService{
		BaseService: newBaseService(opts),
		uow:         uow,
		settlements: settlements,
		parks:       parks,
		invoices:    invoices,
		settings:    settings,
		numbers:     numbers,
	}
}

var _ portssvc.SettlementSvcFacade = (*settlementService)(nil)

func (s *settlementService) GetSettlement(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	return s.settlements.FindSettlementByID(ctx, tenantID, settlementID)
}

// PreviewSettlement computes what a settlement for in would look like without storing it.
func (s *settlementService) PreviewSettlement(ctx context.Context, tenantID string, in domain.SettlementInput) (*domain.LeaseRevenueSettlement, error) {
	period, err := in.Period.Normalize()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid settlement period: %v", err)
	}
	park, err := s.parks.FindParkByID(ctx, tenantID, in.ParkID)
	if err != nil {
		return nil, err
	}
	st := newSettlement(tenantID, domain.SystemActor, *park, period, in, s.Now())
	if err := s.compute(ctx, tenantID, *park, &st); err != nil {
		return nil, err
	}
	st.Status = domain.SettlementCalculated
	return &st, nil
}

// CreateSettlement creates an OPEN settlement, or merges the inputs into the
// OPEN or CALCULATED settlement that already has the same period key.
func (s *settlementService) CreateSettlement(ctx context.Context, tenantID, userID string, in domain.SettlementInput) (*domain.LeaseRevenueSettlement, bool, error) {
	period, err := in.Period.Normalize()
	if err != nil {
		return nil, false, apperrors.NewValidationError("invalid settlement period: %v", err)
	}
	if err := validateSettlementMoney(in); err != nil {
		return nil, false, err
	}
	park, err := s.parks.FindParkByID(ctx, tenantID, in.ParkID)
	if err != nil {
		return nil, false, err
	}

	var result *domain.LeaseRevenueSettlement
	var created bool
	for attempt := 1; attempt <= createSettlementAttempts; attempt++ {
		now := s.Now()
		err = s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
			existing, err := repos.Settlements.FindSettlementByPeriod(ctx, tenantID, in.ParkID, period)
			if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			if existing != nil {
				if !existing.Status.IsMergeable() {
					return apperrors.NewConflictError("settlement %s for this period is already %s", existing.ID, existing.Status)
				}
				mergeSettlementInputs(existing, in, userID, now)
				if err := repos.Settlements.UpdateSettlementInputs(ctx, *existing); err != nil {
					return err
				}
				// A calculated settlement must never keep amounts derived from the old inputs.
				if existing.Status == domain.SettlementCalculated {
					if err := s.compute(ctx, tenantID, *park, existing); err != nil {
						return err
					}
					existing.CalculatedAt = &now
					if err := repos.Settlements.SaveCalculation(ctx, *existing); err != nil {
						return err
					}
				}
				result, created = existing, false
				return nil
			}
			st := newSettlement(tenantID, userID, *park, period, in, now)
			if err := repos.Settlements.CreateSettlement(ctx, st); err != nil {
				return err
			}
			result, created = &st, true
			return nil
		})
		// A concurrent request created the same key; the next attempt merges into it.
		if errors.Is(err, apperrors.ErrDuplicate) && attempt < createSettlementAttempts {
			continue
		}
		break
	}
	if err != nil {
		return nil, false, err
	}

	action := "settlement.merged"
	if created {
		action = "settlement.created"
	}
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: action,
		EntityType: "lease_revenue_settlement", EntityID: result.ID,
		Metadata: map[string]any{"park_id": result.ParkID, "year": result.Year, "period_type": string(result.PeriodType)},
	})
	return result, created, nil
}

// CalculateSettlement computes the items of an OPEN or CALCULATED settlement.
func (s *settlementService) CalculateSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	var out *domain.LeaseRevenueSettlement
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		st, err := repos.Settlements.FindSettlementForUpdate(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}
		if err := domain.ValidateSettlementTransition(st.Status, domain.SettlementCalculated); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrConflict, err)
		}
		park, err := s.parks.FindParkByID(ctx, tenantID, st.ParkID)
		if err != nil {
			return err
		}
		if err := s.compute(ctx, tenantID, *park, st); err != nil {
			return err
		}
		now := s.Now()
		st.Status = domain.SettlementCalculated
		st.CalculatedAt = &now
		st.LastUpdatedAt, st.LastUpdatedBy = now, userID
		if err := repos.Settlements.SaveCalculation(ctx, *st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Settlement calculated",
		slog.String("settlement_id", out.ID),
		slog.String("actual_fee_eur", out.ActualFeeEur.StringFixed(2)),
		slog.Bool("used_minimum", out.UsedMinimum))
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "settlement.calculated",
		EntityType: "lease_revenue_settlement", EntityID: out.ID,
		Metadata: map[string]any{"actual_fee_eur": out.ActualFeeEur.StringFixed(2), "used_minimum": out.UsedMinimum},
	})
	return out, nil
}

// SettleSettlement emits the invoices of a CALCULATED settlement and marks it
// SETTLED, all in one transaction.
func (s *settlementService) SettleSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, []domain.Invoice, error) {
	settings, err := s.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	var out *domain.LeaseRevenueSettlement
	var invoices []domain.Invoice
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		st, err := repos.Settlements.FindSettlementForUpdate(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}
		if err := domain.ValidateSettlementTransition(st.Status, domain.SettlementSettled); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrConflict, err)
		}
		park, err := s.parks.FindParkByID(ctx, tenantID, st.ParkID)
		if err != nil {
			return err
		}
		lessors, err := s.lessorDirectory(ctx, tenantID, st)
		if err != nil {
			return err
		}

		now := s.Now()
		drafts, owners, err := settlementInvoiceDrafts(st, *park, lessors, settings, now)
		if err != nil {
			return err
		}
		invoices, err = issueInvoices(ctx, s.numbers, repos, settings, drafts, userID, now)
		if err != nil {
			return err
		}
		for j := range invoices {
			st.Items[owners[j]].InvoiceID = &invoices[j].ID
		}

		st.Status = domain.SettlementSettled
		st.SettledAt = &now
		if st.SettlementDate == nil {
			d := dateOf(now)
			st.SettlementDate = &d
		}
		st.LastUpdatedAt, st.LastUpdatedBy = now, userID
		if err := repos.Settlements.MarkSettled(ctx, *st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	countEmitted(invoices)
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "settlement.settled",
		EntityType: "lease_revenue_settlement", EntityID: out.ID,
		Metadata: map[string]any{"invoices_created": len(invoices)},
	})
	return out, invoices, nil
}

// CloseSettlement archives a SETTLED settlement.
func (s *settlementService) CloseSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	var out *domain.LeaseRevenueSettlement
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		st, err := repos.Settlements.FindSettlementForUpdate(ctx, tenantID, settlementID)
		if err != nil {
			return err
		}
		if err := domain.ValidateSettlementTransition(st.Status, domain.SettlementClosed); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrConflict, err)
		}
		now := s.Now()
		st.Status = domain.SettlementClosed
		st.ClosedAt = &now
		st.LastUpdatedAt, st.LastUpdatedBy = now, userID
		if err := repos.Settlements.MarkClosed(ctx, *st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "settlement.closed",
		EntityType: "lease_revenue_settlement", EntityID: out.ID,
	})
	return out, nil
}

// ImportHistoricalSettlement stores an externally computed settlement as
// CLOSED. Supplied totals are kept as they are; fee components stay zero.
func (s *settlementService) ImportHistoricalSettlement(ctx context.Context, tenantID, userID string, in domain.HistoricalSettlementInput) (*domain.LeaseRevenueSettlement, error) {
	period, err := in.Period.Normalize()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid settlement period: %v", err)
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.LessorID) == "" {
			return nil, apperrors.NewValidationError("item %d: lessorId is required", i+1)
		}
	}
	if _, err := s.parks.FindParkByID(ctx, tenantID, in.ParkID); err != nil {
		return nil, err
	}

	now := s.Now()
	st := domain.LeaseRevenueSettlement{
		ID:                  uuid.NewString(),
		TenantID:            tenantID,
		ParkID:              in.ParkID,
		Year:                period.Year,
		Month:               period.Month,
		PeriodType:          period.PeriodType,
		AdvanceInterval:     period.AdvanceInterval,
		Status:              domain.SettlementClosed,
		TotalParkRevenueEur: in.TotalParkRevenueEur,
		RevenueSharePercent: in.RevenueSharePercent,
		CalculatedFeeEur:    in.CalculatedFeeEur,
		MinimumGuaranteeEur: in.MinimumGuaranteeEur,
		ActualFeeEur:        in.ActualFeeEur,
		UsedMinimum:         in.MinimumGuaranteeEur.GreaterThan(in.CalculatedFeeEur),
		IsHistorical:        true,
		SettlementDate:      in.SettlementDate,
		Notes:               in.Notes,
		ClosedAt:            &now,
		AuditFields:         newAuditFields(userID, now),
	}
	for _, item := range in.Items {
		st.Items = append(st.Items, domain.LeaseRevenueSettlementItem{
			ID:               uuid.NewString(),
			SettlementID:     st.ID,
			LessorID:         item.LessorID,
			LessorName:       item.LessorName,
			PoolAreaSqm:      decimal.Zero,
			StandortFeeEur:   decimal.Zero,
			PoolFeeEur:       decimal.Zero,
			SealedAreaFeeEur: decimal.Zero,
			RoadFeeEur:       decimal.Zero,
			CableFeeEur:      decimal.Zero,
			SubtotalEur:      item.SubtotalEur,
			TaxableAmountEur: item.TaxableAmountEur,
			ExemptAmountEur:  item.ExemptAmountEur,
			AdvancePaidEur:   item.AdvancePaidEur,
			RemainderEur:     item.SubtotalEur.Sub(item.AdvancePaidEur),
		})
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		existing, err := repos.Settlements.FindSettlementByPeriod(ctx, tenantID, in.ParkID, period)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if existing != nil {
			return apperrors.NewConflictError("a settlement for this period already exists (%s)", existing.ID)
		}
		return repos.Settlements.CreateSettlement(ctx, st)
	})
	if errors.Is(err, apperrors.ErrDuplicate) {
		return nil, apperrors.NewConflictError("a settlement for this period already exists")
	}
	if err != nil {
		return nil, err
	}
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "settlement.imported",
		EntityType: "lease_revenue_settlement", EntityID: st.ID,
		Metadata: map[string]any{"park_id": st.ParkID, "year": st.Year, "items": len(st.Items)},
	})
	return &st, nil
}

// compute fills in the totals and items of st from the park's active leases.
func (s *settlementService) compute(ctx context.Context, tenantID string, park domain.Park, st *domain.LeaseRevenueSettlement) error {
	period := st.Period()
	from, to := period.Range()
	leases, err := s.parks.ListActiveLeases(ctx, tenantID, &park.ID, from, to)
	if err != nil {
		return fmt.Errorf("failed to load active leases: %w", err)
	}
	fees, err := CalculateLeaseFees(LeaseFeeInput{
		Config:              park.FeeConfig,
		Fraction:            period.Fraction(),
		RevenueEur:          st.TotalParkRevenueEur,
		MinimumGuaranteeEur: st.MinimumGuaranteeEur,
		Leases:              leases,
	})
	if err != nil {
		return err
	}

	st.RevenueSharePercent = fees.RevenueSharePercent
	st.CalculatedFeeEur = fees.CalculatedFeeEur
	st.MinimumGuaranteeEur = fees.MinimumGuaranteeEur
	st.ActualFeeEur = fees.ActualFeeEur
	st.UsedMinimum = fees.UsedMinimum

	items := fees.Items()
	paid := map[string]decimal.Decimal{}
	if st.PeriodType == domain.PeriodFinal {
		paid, err = s.invoices.SumAdvancePayments(ctx, tenantID, park.ID, st.Year, st.Month)
		if err != nil {
			return fmt.Errorf("failed to sum advance payments: %w", err)
		}
	}
	for i := range items {
		items[i].ID = uuid.NewString()
		items[i].SettlementID = st.ID
		items[i].AdvancePaidEur = decimal.Zero
		if p, ok := paid[items[i].LessorID]; ok {
			items[i].AdvancePaidEur = p
		}
		items[i].RemainderEur = items[i].SubtotalEur.Sub(items[i].AdvancePaidEur)
	}
	st.Items = items
	return nil
}

// lessorDirectory maps the lessors of the settlement period by id.
func (s *settlementService) lessorDirectory(ctx context.Context, tenantID string, st *domain.LeaseRevenueSettlement) (map[string]domain.Lessor, error) {
	from, to := st.Period().Range()
	leases, err := s.parks.ListActiveLeases(ctx, tenantID, &st.ParkID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load lessors: %w", err)
	}
	out := make(map[string]domain.Lessor, len(leases))
	for _, l := range leases {
		out[l.Lessor.ID] = l.Lessor
	}
	return out, nil
}

// settlementInvoiceDrafts derives one invoice per item that has an amount to
// bill. owners[j] is the item index of the j-th draft.
func settlementInvoiceDrafts(st *domain.LeaseRevenueSettlement, park domain.Park, lessors map[string]domain.Lessor, settings domain.TenantSettings, now time.Time) ([]invoiceDraft, []int, error) {
	invoiceDate := dateOf(now)
	period := st.Period()
	var drafts []invoiceDraft
	var owners []int

	for i := range st.Items {
		item := &st.Items[i]
		var amount decimal.Decimal
		invoiceType := domain.InvoiceTypeCreditNote
		reference := domain.ReferenceLeaseSettlement
		description := fmt.Sprintf("Lease settlement %s, %s", periodLabel(period), park.Name)

		if st.PeriodType == domain.PeriodAdvance {
			amount = item.SubtotalEur
			reference = domain.ReferenceLeaseAdvance
			description = fmt.Sprintf("Lease advance %s, %s", periodLabel(period), park.Name)
			item.AdvancePaidEur = item.SubtotalEur
			item.RemainderEur = decimal.Zero
		} else {
			amount = item.RemainderEur
			if amount.IsNegative() {
				invoiceType = domain.InvoiceTypeInvoice
				amount = amount.Neg()
				description = fmt.Sprintf("Lease advance refund %s, %s", periodLabel(period), park.Name)
			}
		}
		if !amount.IsPositive() {
			continue
		}

		taxable, exempt, err := splitAmount(amount, item.TaxableAmountEur, item.ExemptAmountEur)
		if err != nil {
			return nil, nil, err
		}
		lessor := lessors[item.LessorID]
		lessorID, parkID, year := item.LessorID, st.ParkID, st.Year
		drafts = append(drafts, invoiceDraft{
			Type:             invoiceType,
			RecipientType:    domain.RecipientLessor,
			RecipientID:      &lessorID,
			RecipientName:    item.LessorName,
			RecipientAddress: lessor.Address(),
			ReferenceType:    reference,
			ReferenceID:      &st.ID,
			ParkID:           &parkID,
			PeriodYear:       &year,
			PeriodMonth:      st.Month,
			InvoiceDate:      invoiceDate,
			DueDate:          invoiceDate.AddDate(0, 0, settings.PaymentTermDays),
			Lines:            feeLines(description, taxable, exempt, settings.DefaultTaxRate),
		})
		owners = append(owners, i)
	}
	return drafts, owners, nil
}

// splitAmount divides amount in the proportion of taxable to exempt. With no
// basis the whole amount is exempt.
func splitAmount(amount, taxable, exempt decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if taxable.Add(exempt).Equal(amount) {
		return taxable, exempt, nil
	}
	if taxable.IsNegative() || exempt.IsNegative() {
		return decimal.Zero, amount, nil
	}
	parts, err := accounting.AllocateMoney(amount, []decimal.Decimal{taxable, exempt})
	if errors.Is(err, accounting.ErrNoWeight) {
		return decimal.Zero, amount, nil
	}
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return parts[0], parts[1], nil
}

func newSettlement(tenantID, userID string, park domain.Park, period domain.SettlementPeriod, in domain.SettlementInput, now time.Time) domain.LeaseRevenueSettlement {
	st := domain.LeaseRevenueSettlement{
		ID:                  uuid.NewString(),
		TenantID:            tenantID,
		ParkID:              park.ID,
		Year:                period.Year,
		Month:               period.Month,
		PeriodType:          period.PeriodType,
		AdvanceInterval:     period.AdvanceInterval,
		Status:              domain.SettlementOpen,
		TotalParkRevenueEur: decimal.Zero,
		RevenueSharePercent: park.FeeConfig.WeaSharePercentage.Add(park.FeeConfig.PoolSharePercentage),
		CalculatedFeeEur:    decimal.Zero,
		MinimumGuaranteeEur: domain.RoundMoney(park.FeeConfig.MinimumGuaranteeEur.Mul(period.Fraction())),
		ActualFeeEur:        decimal.Zero,
		SettlementDate:      in.SettlementDate,
		Notes:               in.Notes,
		Items:               []domain.LeaseRevenueSettlementItem{},
		AuditFields:         newAuditFields(userID, now),
	}
	if in.TotalParkRevenueEur != nil {
		st.TotalParkRevenueEur = *in.TotalParkRevenueEur
	}
	if in.MinimumGuaranteeEur != nil {
		st.MinimumGuaranteeEur = *in.MinimumGuaranteeEur
	}
	return st
}

// mergeSettlementInputs applies the fields set on in to an existing settlement.
func mergeSettlementInputs(st *domain.LeaseRevenueSettlement, in domain.SettlementInput, userID string, now time.Time) {
	if in.TotalParkRevenueEur != nil {
		st.TotalParkRevenueEur = *in.TotalParkRevenueEur
	}
	if in.MinimumGuaranteeEur != nil {
		st.MinimumGuaranteeEur = *in.MinimumGuaranteeEur
	}
	if in.SettlementDate != nil {
		st.SettlementDate = in.SettlementDate
	}
	if in.Notes != nil {
		st.Notes = in.Notes
	}
	st.LastUpdatedAt, st.LastUpdatedBy = now, userID
}

func validateSettlementMoney(in domain.SettlementInput) error {
	if in.TotalParkRevenueEur != nil && in.TotalParkRevenueEur.IsNegative() {
		return apperrors.NewValidationError("totalParkRevenueEur must not be negative")
	}
	if in.MinimumGuaranteeEur != nil && in.MinimumGuaranteeEur.IsNegative() {
		return apperrors.NewValidationError("minimumGuaranteeEur must not be negative")
	}
	return nil
}

func newAuditFields(actor string, now time.Time) domain.AuditFields {
	return domain.AuditFields{CreatedAt: now, CreatedBy: actor, LastUpdatedAt: now, LastUpdatedBy: actor}
}
