package repositories

import (
	"context"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ParkReader reads parks, leases, lessors and plots.
type ParkReader interface {
	FindParkByID(ctx context.Context, tenantID, parkID string) (*domain.Park, error)
	// ListActiveLeases returns ACTIVE leases overlapping [from, to), with lessor and plots loaded.
	// A nil parkID selects all parks of the tenant.
	ListActiveLeases(ctx context.Context, tenantID string, parkID *string, from, to time.Time) ([]domain.Lease, error)
}

// RevenueReader reads the park revenue ledger.
type RevenueReader interface {
	SumParkRevenue(ctx context.Context, tenantID, parkID string, from, to time.Time) (decimal.Decimal, error)
}
