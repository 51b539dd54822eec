package services

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
)

// DistributionReaderSvc defines read operations for distributions.
type DistributionReaderSvc interface {
	GetDistribution(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error)
	ListDistributions(ctx context.Context, tenantID, fundID string) ([]domain.Distribution, error)
	// PreviewDistribution computes items without persisting anything.
	PreviewDistribution(ctx context.Context, tenantID string, in domain.DistributionInput) (*domain.Distribution, error)
}

// DistributionWriterSvc defines write operations for distributions.
type DistributionWriterSvc interface {
	CreateDistribution(ctx context.Context, tenantID, userID string, in domain.DistributionInput) (*domain.Distribution, error)
	ExecuteDistribution(ctx context.Context, tenantID, userID, distributionID string) (*domain.Distribution, []domain.Invoice, error)
	DeleteDistribution(ctx context.Context, tenantID, userID, distributionID string) error
}

// DistributionSvcFacade combines all distribution operations.
type DistributionSvcFacade interface {
	DistributionReaderSvc
	DistributionWriterSvc
}
