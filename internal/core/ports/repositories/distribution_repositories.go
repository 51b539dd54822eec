package repositories

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
)

// FundReader reads funds and their shareholders.
type FundReader interface {
	FindFundByID(ctx context.Context, tenantID, fundID string) (*domain.Fund, error)
	ListActiveShareholders(ctx context.Context, fundID string) ([]domain.Shareholder, error)
}

// DistributionReader defines read operations for distributions.
type DistributionReader interface {
	FindDistributionByID(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error)
	ListDistributions(ctx context.Context, tenantID, fundID string) ([]domain.Distribution, error)
	// MaxDistributionSequence returns the highest sequence used in the tenant's numbers for year, 0 if none.
	MaxDistributionSequence(ctx context.Context, tenantID string, year int) (int, error)
}

// DistributionWriter defines write operations for distributions.
type DistributionWriter interface {
	SaveDistribution(ctx context.Context, distribution domain.Distribution) error
	// FindDistributionForUpdate loads and row-locks a distribution; only meaningful inside a unit of work.
	FindDistributionForUpdate(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error)
	MarkExecuted(ctx context.Context, distribution domain.Distribution) error
	// DeleteDraftDistribution deletes the distribution if it is still DRAFT and reports whether a row was removed.
	DeleteDraftDistribution(ctx context.Context, tenantID, distributionID string) (bool, error)
}

// DistributionRepository combines reader and writer interfaces.
type DistributionRepository interface {
	DistributionReader
	DistributionWriter
}
