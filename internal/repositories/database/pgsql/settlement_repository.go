package pgsql

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxSettlementRepository struct {
	BaseRepository
}

func newPgxSettlementRepository(db DBTX) *PgxSettlementRepository {
	return &PgxSettlementRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.SettlementRepository = (*PgxSettlementRepository)(nil)

const settlementSelect = `
SELECT
	s.id, s.tenant_id, s.park_id, s.year, s.month, s.period_type, s.advance_interval, s.status,
	s.total_park_revenue_eur, s.revenue_share_percent, s.calculated_fee_eur, s.minimum_guarantee_eur,
	s.actual_fee_eur, s.used_minimum, s.is_historical, s.settlement_date, s.notes,
	s.calculated_at, s.settled_at, s.closed_at,
	s.created_at, s.created_by, s.last_updated_at, s.last_updated_by
FROM lease_revenue_settlements s
`

func scanSettlement(row pgx.Row) (domain.LeaseRevenueSettlement, error) {
	var s domain.LeaseRevenueSettlement
	err := row.Scan(
		&s.ID, &s.TenantID, &s.ParkID, &s.Year, &s.Month, &s.PeriodType, &s.AdvanceInterval, &s.Status,
		&s.TotalParkRevenueEur, &s.RevenueSharePercent, &s.CalculatedFeeEur, &s.MinimumGuaranteeEur,
		&s.ActualFeeEur, &s.UsedMinimum, &s.IsHistorical, &s.SettlementDate, &s.Notes,
		&s.CalculatedAt, &s.SettledAt, &s.ClosedAt,
		&s.CreatedAt, &s.CreatedBy, &s.LastUpdatedAt, &s.LastUpdatedBy,
	)
	return s, err
}

func (r *PgxSettlementRepository) loadItems(ctx context.Context, s *domain.LeaseRevenueSettlement) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, settlement_id, lessor_id, lessor_name, turbine_count, pool_area_sqm,
		       standort_fee_eur, pool_fee_eur, sealed_area_fee_eur, road_fee_eur, cable_fee_eur,
		       subtotal_eur, taxable_amount_eur, exempt_amount_eur, advance_paid_eur, remainder_eur, invoice_id
		FROM lease_revenue_settlement_items
		WHERE settlement_id = $1
		ORDER BY position;`, s.ID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to query settlement items", err)
	}
	defer rows.Close()

	s.Items = []domain.LeaseRevenueSettlementItem{}
	for rows.Next() {
		var it domain.LeaseRevenueSettlementItem
		if err := rows.Scan(&it.ID, &it.SettlementID, &it.LessorID, &it.LessorName, &it.TurbineCount, &it.PoolAreaSqm,
			&it.StandortFeeEur, &it.PoolFeeEur, &it.SealedAreaFeeEur, &it.RoadFeeEur, &it.CableFeeEur,
			&it.SubtotalEur, &it.TaxableAmountEur, &it.ExemptAmountEur, &it.AdvancePaidEur, &it.RemainderEur,
			&it.InvoiceID); err != nil {
			return apperrors.NewAppError(500, "failed to scan settlement item", err)
		}
		s.Items = append(s.Items, it)
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewAppError(500, "failed to iterate settlement items", err)
	}
	return nil
}

func (r *PgxSettlementRepository) findOne(ctx context.Context, id, query string, args ...any) (*domain.LeaseRevenueSettlement, error) {
	s, err := scanSettlement(r.DB.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapNotFound(err, "settlement", id)
	}
	if err := r.loadItems(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PgxSettlementRepository) FindSettlementByID(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	return r.findOne(ctx, settlementID, settlementSelect+" WHERE s.tenant_id = $1 AND s.id = $2", tenantID, settlementID)
}

func (r *PgxSettlementRepository) FindSettlementForUpdate(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	return r.findOne(ctx, settlementID, settlementSelect+" WHERE s.tenant_id = $1 AND s.id = $2 FOR UPDATE", tenantID, settlementID)
}

// FindSettlementByPeriod locks the row so a concurrent merge waits for this one.
func (r *PgxSettlementRepository) FindSettlementByPeriod(ctx context.Context, tenantID, parkID string, period domain.SettlementPeriod) (*domain.LeaseRevenueSettlement, error) {
	query := settlementSelect + `
		WHERE s.tenant_id = $1 AND s.park_id = $2 AND s.year = $3 AND s.period_type = $4
		  AND s.month IS NOT DISTINCT FROM $5::int
		FOR UPDATE`
	return r.findOne(ctx, parkID, query, tenantID, parkID, period.Year, period.PeriodType, period.Month)
}

func (r *PgxSettlementRepository) CreateSettlement(ctx context.Context, s domain.LeaseRevenueSettlement) error {
	query := `
		INSERT INTO lease_revenue_settlements (
			id, tenant_id, park_id, year, month, period_type, advance_interval, status,
			total_park_revenue_eur, revenue_share_percent, calculated_fee_eur, minimum_guarantee_eur,
			actual_fee_eur, used_minimum, is_historical, settlement_date, notes,
			calculated_at, settled_at, closed_at,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24);
	`
	_, err := r.DB.Exec(ctx, query,
		s.ID, s.TenantID, s.ParkID, s.Year, s.Month, s.PeriodType, s.AdvanceInterval, s.Status,
		s.TotalParkRevenueEur, s.RevenueSharePercent, s.CalculatedFeeEur, s.MinimumGuaranteeEur,
		s.ActualFeeEur, s.UsedMinimum, s.IsHistorical, s.SettlementDate, s.Notes,
		s.CalculatedAt, s.SettledAt, s.ClosedAt,
		s.CreatedAt, s.CreatedBy, s.LastUpdatedAt, s.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "insert settlement "+s.ID)
	}
	return r.insertItems(ctx, s)
}

func (r *PgxSettlementRepository) insertItems(ctx context.Context, s domain.LeaseRevenueSettlement) error {
	batch := &pgx.Batch{}
	for i, it := range s.Items {
		batch.Queue(`
			INSERT INTO lease_revenue_settlement_items (
				id, settlement_id, position, lessor_id, lessor_name, turbine_count, pool_area_sqm,
				standort_fee_eur, pool_fee_eur, sealed_area_fee_eur, road_fee_eur, cable_fee_eur,
				subtotal_eur, taxable_amount_eur, exempt_amount_eur, advance_paid_eur, remainder_eur, invoice_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);`,
			it.ID, s.ID, i+1, it.LessorID, it.LessorName, it.TurbineCount, it.PoolAreaSqm,
			it.StandortFeeEur, it.PoolFeeEur, it.SealedAreaFeeEur, it.RoadFeeEur, it.CableFeeEur,
			it.SubtotalEur, it.TaxableAmountEur, it.ExemptAmountEur, it.AdvancePaidEur, it.RemainderEur, it.InvoiceID,
		)
	}
	return execBatch(ctx, r.DB, batch, "insert items of settlement "+s.ID)
}

// mustAffect turns a zero-row update into a conflict; the status guard in the WHERE clause caught it.
func mustAffect(rows int64, id, op string) error {
	if rows == 0 {
		return apperrors.NewConflictError("settlement %s cannot be %s in its current state", id, op)
	}
	return nil
}

func (r *PgxSettlementRepository) UpdateSettlementInputs(ctx context.Context, s domain.LeaseRevenueSettlement) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE lease_revenue_settlements
		SET total_park_revenue_eur = $3, minimum_guarantee_eur = $4, settlement_date = $5, notes = $6,
		    advance_interval = $7, last_updated_at = $8, last_updated_by = $9
		WHERE tenant_id = $1 AND id = $2 AND status IN ('OPEN', 'CALCULATED');`,
		s.TenantID, s.ID, s.TotalParkRevenueEur, s.MinimumGuaranteeEur, s.SettlementDate, s.Notes,
		s.AdvanceInterval, s.LastUpdatedAt, s.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to update settlement "+s.ID, err)
	}
	return mustAffect(tag.RowsAffected(), s.ID, "updated")
}

func (r *PgxSettlementRepository) SaveCalculation(ctx context.Context, s domain.LeaseRevenueSettlement) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE lease_revenue_settlements
		SET status = $3, total_park_revenue_eur = $4, revenue_share_percent = $5, calculated_fee_eur = $6,
		    minimum_guarantee_eur = $7, actual_fee_eur = $8, used_minimum = $9, calculated_at = $10,
		    last_updated_at = $11, last_updated_by = $12
		WHERE tenant_id = $1 AND id = $2 AND status IN ('OPEN', 'CALCULATED');`,
		s.TenantID, s.ID, s.Status, s.TotalParkRevenueEur, s.RevenueSharePercent, s.CalculatedFeeEur,
		s.MinimumGuaranteeEur, s.ActualFeeEur, s.UsedMinimum, s.CalculatedAt,
		s.LastUpdatedAt, s.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save settlement calculation", err)
	}
	if err := mustAffect(tag.RowsAffected(), s.ID, "calculated"); err != nil {
		return err
	}
	if _, err := r.DB.Exec(ctx, `DELETE FROM lease_revenue_settlement_items WHERE settlement_id = $1;`, s.ID); err != nil {
		return apperrors.NewAppError(500, "failed to clear settlement items", err)
	}
	return r.insertItems(ctx, s)
}

func (r *PgxSettlementRepository) MarkSettled(ctx context.Context, s domain.LeaseRevenueSettlement) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE lease_revenue_settlements
		SET status = $3, settled_at = $4, settlement_date = $5, last_updated_at = $6, last_updated_by = $7
		WHERE tenant_id = $1 AND id = $2 AND status = 'CALCULATED';`,
		s.TenantID, s.ID, s.Status, s.SettledAt, s.SettlementDate, s.LastUpdatedAt, s.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark settlement settled", err)
	}
	if err := mustAffect(tag.RowsAffected(), s.ID, "settled"); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, it := range s.Items {
		batch.Queue(`
			UPDATE lease_revenue_settlement_items
			SET advance_paid_eur = $2, remainder_eur = $3, invoice_id = $4
			WHERE id = $1;`,
			it.ID, it.AdvancePaidEur, it.RemainderEur, it.InvoiceID,
		)
	}
	return execBatch(ctx, r.DB, batch, "update settlement items")
}

func (r *PgxSettlementRepository) MarkClosed(ctx context.Context, s domain.LeaseRevenueSettlement) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE lease_revenue_settlements
		SET status = $3, closed_at = $4, last_updated_at = $5, last_updated_by = $6
		WHERE tenant_id = $1 AND id = $2 AND status = 'SETTLED';`,
		s.TenantID, s.ID, s.Status, s.ClosedAt, s.LastUpdatedAt, s.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to close settlement", err)
	}
	return mustAffect(tag.RowsAffected(), s.ID, "closed")
}
