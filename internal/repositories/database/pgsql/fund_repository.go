package pgsql

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
)

type PgxFundRepository struct {
	BaseRepository
}

func newPgxFundRepository(db DBTX) *PgxFundRepository {
	return &PgxFundRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.FundReader = (*PgxFundRepository)(nil)

func (r *PgxFundRepository) FindFundByID(ctx context.Context, tenantID, fundID string) (*domain.Fund, error) {
	var f domain.Fund
	err := r.DB.QueryRow(ctx, `
		SELECT id, tenant_id, name, created_at, created_by, last_updated_at, last_updated_by
		FROM funds
		WHERE tenant_id = $1 AND id = $2;`, tenantID, fundID,
	).Scan(&f.ID, &f.TenantID, &f.Name, &f.CreatedAt, &f.CreatedBy, &f.LastUpdatedAt, &f.LastUpdatedBy)
	if err != nil {
		return nil, mapNotFound(err, "fund", fundID)
	}
	return &f, nil
}

// ListActiveShareholders orders by name so allocation remainders land deterministically.
func (r *PgxFundRepository) ListActiveShareholders(ctx context.Context, fundID string) ([]domain.Shareholder, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, fund_id, name, address, iban, status, ownership_percentage, distribution_percentage
		FROM shareholders
		WHERE fund_id = $1 AND status = $2
		ORDER BY name, id;`, fundID, domain.ShareholderActive)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query shareholders", err)
	}
	defer rows.Close()

	out := []domain.Shareholder{}
	for rows.Next() {
		var s domain.Shareholder
		if err := rows.Scan(&s.ID, &s.FundID, &s.Name, &s.Address, &s.IBAN, &s.Status,
			&s.OwnershipPercentage, &s.DistributionPercentage); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan shareholder", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate shareholders", err)
	}
	return out, nil
}
