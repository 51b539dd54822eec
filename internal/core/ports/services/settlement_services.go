package services

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
)

// SettlementReaderSvc defines read operations for lease revenue settlements.
type SettlementReaderSvc interface {
	GetSettlement(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error)
	// PreviewSettlement computes a settlement for the input without persisting anything.
	PreviewSettlement(ctx context.Context, tenantID string, in domain.SettlementInput) (*domain.LeaseRevenueSettlement, error)
}

// SettlementWriterSvc defines the lifecycle operations of lease revenue settlements.
type SettlementWriterSvc interface {
	// CreateSettlement creates an OPEN settlement or merges into an OPEN/CALCULATED one with the
	// same period key; created is false on merge.
	CreateSettlement(ctx context.Context, tenantID, userID string, in domain.SettlementInput) (settlement *domain.LeaseRevenueSettlement, created bool, err error)
	CalculateSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, error)
	SettleSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, []domain.Invoice, error)
	CloseSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, error)
	ImportHistoricalSettlement(ctx context.Context, tenantID, userID string, in domain.HistoricalSettlementInput) (*domain.LeaseRevenueSettlement, error)
}

// SettlementSvcFacade combines all settlement operations.
type SettlementSvcFacade interface {
	SettlementReaderSvc
	SettlementWriterSvc
}
