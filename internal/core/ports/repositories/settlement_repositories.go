package repositories

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
)

// SettlementReader defines read operations for lease revenue settlements.
type SettlementReader interface {
	FindSettlementByID(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error)
	FindSettlementByPeriod(ctx context.Context, tenantID, parkID string, period domain.SettlementPeriod) (*domain.LeaseRevenueSettlement, error)
}

// SettlementWriter defines write operations for lease revenue settlements.
type SettlementWriter interface {
	CreateSettlement(ctx context.Context, settlement domain.LeaseRevenueSettlement) error
	// UpdateSettlementInputs rewrites the mutable input fields of an OPEN or CALCULATED settlement.
	UpdateSettlementInputs(ctx context.Context, settlement domain.LeaseRevenueSettlement) error
	FindSettlementForUpdate(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error)
	// SaveCalculation stores computed totals and replaces the items.
	SaveCalculation(ctx context.Context, settlement domain.LeaseRevenueSettlement) error
	// MarkSettled stores the SETTLED status along with item invoice links and advance figures.
	MarkSettled(ctx context.Context, settlement domain.LeaseRevenueSettlement) error
	MarkClosed(ctx context.Context, settlement domain.LeaseRevenueSettlement) error
}

// SettlementRepository combines reader and writer interfaces.
type SettlementRepository interface {
	SettlementReader
	SettlementWriter
}
