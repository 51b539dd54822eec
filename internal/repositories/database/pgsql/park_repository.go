package pgsql

import (
	"context"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

type PgxParkRepository struct {
	BaseRepository
}

func newPgxParkRepository(db DBTX) *PgxParkRepository {
	return &PgxParkRepository{BaseRepository: BaseRepository{DB: db}}
}

var (
	_ portsrepo.ParkReader    = (*PgxParkRepository)(nil)
	_ portsrepo.RevenueReader = (*PgxParkRepository)(nil)
)

func (r *PgxParkRepository) FindParkByID(ctx context.Context, tenantID, parkID string) (*domain.Park, error) {
	var p domain.Park
	err := r.DB.QueryRow(ctx, `
		SELECT id, tenant_id, name, operator_name, operator_address, fee_config,
		       created_at, created_by, last_updated_at, last_updated_by
		FROM parks
		WHERE tenant_id = $1 AND id = $2;`, tenantID, parkID,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.OperatorName, &p.OperatorAddress, &p.FeeConfig,
		&p.CreatedAt, &p.CreatedBy, &p.LastUpdatedAt, &p.LastUpdatedBy)
	if err != nil {
		return nil, mapNotFound(err, "park", parkID)
	}
	return &p, nil
}

// ListActiveLeases loads matching leases first and their plots in a second query.
func (r *PgxParkRepository) ListActiveLeases(ctx context.Context, tenantID string, parkID *string, from, to time.Time) ([]domain.Lease, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT l.id, l.tenant_id, l.park_id, l.status, l.start_date, l.end_date,
		       o.id, o.tenant_id, o.name, o.street, o.postal_code, o.city, o.iban, o.bic
		FROM leases l
		JOIN lessors o ON o.id = l.lessor_id
		WHERE l.tenant_id = $1
		  AND ($2::uuid IS NULL OR l.park_id = $2::uuid)
		  AND l.status = 'ACTIVE'
		  AND l.start_date < $4
		  AND (l.end_date IS NULL OR l.end_date > $3)
		ORDER BY o.name, o.id, l.start_date, l.id;`, tenantID, parkID, from, to)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query leases", err)
	}
	defer rows.Close()

	leases := []domain.Lease{}
	index := make(map[string]int)
	for rows.Next() {
		var l domain.Lease
		if err := rows.Scan(&l.ID, &l.TenantID, &l.ParkID, &l.Status, &l.StartDate, &l.EndDate,
			&l.Lessor.ID, &l.Lessor.TenantID, &l.Lessor.Name, &l.Lessor.Street, &l.Lessor.PostalCode,
			&l.Lessor.City, &l.Lessor.IBAN, &l.Lessor.BIC); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan lease", err)
		}
		l.Plots = []domain.Plot{}
		index[l.ID] = len(leases)
		leases = append(leases, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate leases", err)
	}
	if len(leases) == 0 {
		return leases, nil
	}

	ids := make([]string, len(leases))
	for i, l := range leases {
		ids[i] = l.ID
	}
	plotRows, err := r.DB.Query(ctx, `
		SELECT lp.lease_id, p.id, p.park_id, p.plot_number, p.area_sqm, p.pool_area_sqm,
		       p.sealed_area_sqm, p.road_area_sqm, p.cable_length_m, p.turbine_count
		FROM lease_plots lp
		JOIN plots p ON p.id = lp.plot_id
		WHERE lp.lease_id = ANY($1::uuid[])
		ORDER BY p.plot_number, p.id;`, ids)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query lease plots", err)
	}
	defer plotRows.Close()

	for plotRows.Next() {
		var leaseID string
		var p domain.Plot
		if err := plotRows.Scan(&leaseID, &p.ID, &p.ParkID, &p.PlotNumber, &p.AreaSqm, &p.PoolAreaSqm,
			&p.SealedAreaSqm, &p.RoadAreaSqm, &p.CableLengthM, &p.TurbineCount); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan plot", err)
		}
		i := index[leaseID]
		leases[i].Plots = append(leases[i].Plots, p)
	}
	if err := plotRows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate lease plots", err)
	}
	return leases, nil
}

// SumParkRevenue sums the revenue ledger over [from, to).
func (r *PgxParkRepository) SumParkRevenue(ctx context.Context, tenantID, parkID string, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_eur), 0)
		FROM park_revenues
		WHERE tenant_id = $1 AND park_id = $2 AND revenue_date >= $3 AND revenue_date < $4;`,
		tenantID, parkID, from, to,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, apperrors.NewAppError(500, "failed to sum park revenue", err)
	}
	return sum, nil
}
