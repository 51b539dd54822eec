package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// distributionNumberAttempts bounds retries when a concurrent create took the same number.
const distributionNumberAttempts = 3

type distributionService struct {
	BaseService
	uow           portsrepo.UnitOfWork
	distributions portsrepo.DistributionReader
	funds         portsrepo.FundReader
	settings      portsrepo.TenantSettingsReader
	numbers       portssvc.InvoiceNumberAllocatorSvc
}

// NewDistributionService creates the profit distribution engine.
func NewDistributionService(
	uow portsrepo.UnitOfWork,
	distributions portsrepo.DistributionReader,
	funds portsrepo.FundReader,
	settings portsrepo.TenantSettingsReader,
	numbers portssvc.InvoiceNumberAllocatorSvc,
	opts ...ServiceOption,
) portssvc.DistributionSvcFacade {
	return &distributionService{
		BaseService:   newBaseService(opts),
		uow:           uow,
		distributions: distributions,
		funds:         funds,
		settings:      settings,
		numbers:       numbers,
	}
}

var _ portssvc.DistributionSvcFacade = (*distributionService)(nil)

func (s *distributionService) GetDistribution(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error) {
	return s.distributions.FindDistributionByID(ctx, tenantID, distributionID)
}

func (s *distributionService) ListDistributions(ctx context.Context, tenantID, fundID string) ([]domain.Distribution, error) {
	if _, err := s.funds.FindFundByID(ctx, tenantID, fundID); err != nil {
		return nil, err
	}
	return s.distributions.ListDistributions(ctx, tenantID, fundID)
}

// PreviewDistribution computes the items a distribution of in would get.
func (s *distributionService) PreviewDistribution(ctx context.Context, tenantID string, in domain.DistributionInput) (*domain.Distribution, error) {
	d, err := s.draft(ctx, tenantID, domain.SystemActor, in)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDistribution stores a DRAFT distribution with its items.
func (s *distributionService) CreateDistribution(ctx context.Context, tenantID, userID string, in domain.DistributionInput) (*domain.Distribution, error) {
	d, err := s.draft(ctx, tenantID, userID, in)
	if err != nil {
		return nil, err
	}

	year := d.DistributionDate.Year()
	for attempt := 1; attempt <= distributionNumberAttempts; attempt++ {
		err = s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
			maxSeq, err := repos.Distributions.MaxDistributionSequence(ctx, tenantID, year)
			if err != nil {
				return err
			}
			d.DistributionNumber = domain.FormatDistributionNumber(year, maxSeq+1)
			return repos.Distributions.SaveDistribution(ctx, *d)
		})
		if errors.Is(err, apperrors.ErrDuplicate) && attempt < distributionNumberAttempts {
			s.LogDebug(ctx, "Distribution number taken, retrying", slog.String("number", d.DistributionNumber), slog.Int("attempt", attempt))
			continue
		}
		break
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create distribution: %w", err)
	}

	s.LogInfo(ctx, "Distribution created",
		slog.String("distribution_id", d.ID),
		slog.String("number", d.DistributionNumber),
		slog.Int("items", len(d.Items)))
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "distribution.created",
		EntityType: "distribution", EntityID: d.ID,
		Metadata: map[string]any{"number": d.DistributionNumber, "total_amount": d.TotalAmount.StringFixed(2)},
	})
	return d, nil
}

// ExecuteDistribution issues one tax-free credit note per item and marks the
// distribution EXECUTED. Nothing is visible unless every step succeeds.
func (s *distributionService) ExecuteDistribution(ctx context.Context, tenantID, userID, distributionID string) (*domain.Distribution, []domain.Invoice, error) {
	settings, err := s.settings.GetTenantSettings(ctx, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	var out *domain.Distribution
	var invoices []domain.Invoice
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		d, err := repos.Distributions.FindDistributionForUpdate(ctx, tenantID, distributionID)
		if err != nil {
			return err
		}
		if d.Status != domain.DistributionDraft {
			return apperrors.NewConflictError("distribution %s is %s, only DRAFT distributions can be executed", d.DistributionNumber, d.Status)
		}
		shareholders, err := s.funds.ListActiveShareholders(ctx, d.FundID)
		if err != nil {
			return fmt.Errorf("failed to load shareholders: %w", err)
		}
		addresses := make(map[string]string, len(shareholders))
		for _, sh := range shareholders {
			addresses[sh.ID] = sh.Address
		}

		now := s.Now()
		invoiceDate := dateOf(d.DistributionDate)
		description := fmt.Sprintf("Distribution %s", d.DistributionNumber)
		if d.Description != nil && *d.Description != "" {
			description = fmt.Sprintf("%s: %s", description, *d.Description)
		}
		drafts := make([]invoiceDraft, 0, len(d.Items))
		owners := make([]int, 0, len(d.Items))
		for i, item := range d.Items {
			if !item.Amount.IsPositive() {
				continue
			}
			shareholderID, distID := item.ShareholderID, d.ID
			drafts = append(drafts, invoiceDraft{
				Type:             domain.InvoiceTypeCreditNote,
				RecipientType:    domain.RecipientShareholder,
				RecipientID:      &shareholderID,
				RecipientName:    item.ShareholderName,
				RecipientAddress: addresses[item.ShareholderID],
				ReferenceType:    domain.ReferenceDistribution,
				ReferenceID:      &distID,
				InvoiceDate:      invoiceDate,
				DueDate:          invoiceDate.AddDate(0, 0, settings.PaymentTermDays),
				Lines: []domain.InvoiceLine{{
					Description: description,
					Quantity:    decimal.NewFromInt(1),
					UnitPrice:   item.Amount,
					TaxRate:     decimal.Zero,
				}},
			})
			owners = append(owners, i)
		}

		invoices, err = issueInvoices(ctx, s.numbers, repos, settings, drafts, userID, now)
		if err != nil {
			return err
		}
		for j := range invoices {
			d.Items[owners[j]].InvoiceID = &invoices[j].ID
		}
		d.Status = domain.DistributionExecuted
		d.ExecutedAt = &now
		d.LastUpdatedAt, d.LastUpdatedBy = now, userID
		if err := repos.Distributions.MarkExecuted(ctx, *d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	countEmitted(invoices)
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "distribution.executed",
		EntityType: "distribution", EntityID: out.ID,
		Metadata: map[string]any{"invoices_created": len(invoices)},
	})
	return out, invoices, nil
}

// DeleteDistribution removes a DRAFT distribution.
func (s *distributionService) DeleteDistribution(ctx context.Context, tenantID, userID, distributionID string) error {
	err := s.uow.WithinTx(ctx, func(ctx context.Context, repos portsrepo.TxRepositories) error {
		deleted, err := repos.Distributions.DeleteDraftDistribution(ctx, tenantID, distributionID)
		if err != nil || deleted {
			return err
		}
		d, err := repos.Distributions.FindDistributionByID(ctx, tenantID, distributionID)
		if err != nil {
			return err
		}
		return apperrors.NewConflictError("distribution %s is %s, only DRAFT distributions can be deleted", d.DistributionNumber, d.Status)
	})
	if err != nil {
		return err
	}
	s.RecordAudit(ctx, domain.AuditEntry{
		TenantID: tenantID, ActorID: userID, Action: "distribution.deleted",
		EntityType: "distribution", EntityID: distributionID,
	})
	return nil
}

// draft validates in and builds an unsaved DRAFT distribution.
func (s *distributionService) draft(ctx context.Context, tenantID, userID string, in domain.DistributionInput) (*domain.Distribution, error) {
	if !in.TotalAmount.IsPositive() {
		return nil, apperrors.NewValidationError("totalAmount must be positive")
	}
	if in.DistributionDate.IsZero() {
		return nil, apperrors.NewValidationError("distributionDate is required")
	}
	if _, err := s.funds.FindFundByID(ctx, tenantID, in.FundID); err != nil {
		return nil, err
	}
	shareholders, err := s.funds.ListActiveShareholders(ctx, in.FundID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shareholders: %w", err)
	}

	now := s.Now()
	d := &domain.Distribution{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		FundID:           in.FundID,
		TotalAmount:      domain.RoundMoney(in.TotalAmount),
		DistributionDate: dateOf(in.DistributionDate),
		Description:      in.Description,
		Status:           domain.DistributionDraft,
		AuditFields:      newAuditFields(userID, now),
	}
	items, err := distributionItems(d.ID, d.TotalAmount, shareholders)
	if err != nil {
		return nil, err
	}
	d.Items = items
	return d, nil
}

// distributionItems prorates total over the shareholders' weights. Shareholders
// without weight get no item; amounts sum to total and percentages to 100.
func distributionItems(distributionID string, total decimal.Decimal, shareholders []domain.Shareholder) ([]domain.DistributionItem, error) {
	if len(shareholders) == 0 {
		return nil, apperrors.NewValidationError("fund has no active shareholders")
	}
	var weighted []domain.Shareholder
	var weights []decimal.Decimal
	for _, sh := range shareholders {
		w := sh.DistributionWeight()
		if w.IsNegative() {
			return nil, apperrors.NewValidationError("shareholder %s has a negative percentage", sh.Name)
		}
		if w.IsZero() {
			continue
		}
		weighted = append(weighted, sh)
		weights = append(weights, w)
	}
	if len(weighted) == 0 {
		return nil, apperrors.NewValidationError("all shareholder percentages are zero")
	}

	percentages, err := accounting.Percentages(weights)
	if err != nil {
		return nil, err
	}
	amounts, err := accounting.AllocateMoney(total, weights)
	if err != nil {
		return nil, err
	}
	items := make([]domain.DistributionItem, len(weighted))
	for i, sh := range weighted {
		items[i] = domain.DistributionItem{
			ID:              uuid.NewString(),
			DistributionID:  distributionID,
			ShareholderID:   sh.ID,
			ShareholderName: sh.Name,
			Position:        i + 1,
			Percentage:      percentages[i],
			Amount:          amounts[i],
		}
	}
	return items, nil
}
