package pgsql

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
)

type PgxDistributionRepository struct {
	BaseRepository
}

func newPgxDistributionRepository(db DBTX) *PgxDistributionRepository {
	return &PgxDistributionRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.DistributionRepository = (*PgxDistributionRepository)(nil)

const distributionSelect = `
SELECT
	d.id, d.tenant_id, d.fund_id, d.distribution_number, d.total_amount, d.distribution_date,
	d.description, d.status, d.executed_at,
	d.created_at, d.created_by, d.last_updated_at, d.last_updated_by
FROM distributions d
`

func scanDistribution(row pgx.Row) (domain.Distribution, error) {
	var d domain.Distribution
	err := row.Scan(
		&d.ID, &d.TenantID, &d.FundID, &d.DistributionNumber, &d.TotalAmount, &d.DistributionDate,
		&d.Description, &d.Status, &d.ExecutedAt,
		&d.CreatedAt, &d.CreatedBy, &d.LastUpdatedAt, &d.LastUpdatedBy,
	)
	return d, err
}

func (r *PgxDistributionRepository) loadItems(ctx context.Context, d *domain.Distribution) error {
	rows, err := r.DB.Query(ctx, `
		SELECT id, distribution_id, shareholder_id, shareholder_name, position, percentage, amount, invoice_id
		FROM distribution_items
		WHERE distribution_id = $1
		ORDER BY position;`, d.ID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to query distribution items", err)
	}
	defer rows.Close()

	d.Items = []domain.DistributionItem{}
	for rows.Next() {
		var it domain.DistributionItem
		if err := rows.Scan(&it.ID, &it.DistributionID, &it.ShareholderID, &it.ShareholderName,
			&it.Position, &it.Percentage, &it.Amount, &it.InvoiceID); err != nil {
			return apperrors.NewAppError(500, "failed to scan distribution item", err)
		}
		d.Items = append(d.Items, it)
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewAppError(500, "failed to iterate distribution items", err)
	}
	return nil
}

func (r *PgxDistributionRepository) findOne(ctx context.Context, query, tenantID, distributionID string) (*domain.Distribution, error) {
	d, err := scanDistribution(r.DB.QueryRow(ctx, query, tenantID, distributionID))
	if err != nil {
		return nil, mapNotFound(err, "distribution", distributionID)
	}
	if err := r.loadItems(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PgxDistributionRepository) FindDistributionByID(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error) {
	return r.findOne(ctx, distributionSelect+" WHERE d.tenant_id = $1 AND d.id = $2", tenantID, distributionID)
}

func (r *PgxDistributionRepository) FindDistributionForUpdate(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error) {
	return r.findOne(ctx, distributionSelect+" WHERE d.tenant_id = $1 AND d.id = $2 FOR UPDATE", tenantID, distributionID)
}

// ListDistributions returns a fund's distributions newest first, without items.
func (r *PgxDistributionRepository) ListDistributions(ctx context.Context, tenantID, fundID string) ([]domain.Distribution, error) {
	rows, err := r.DB.Query(ctx, distributionSelect+`
		WHERE d.tenant_id = $1 AND d.fund_id = $2
		ORDER BY d.distribution_date DESC, d.distribution_number DESC`, tenantID, fundID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query distributions", err)
	}
	defer rows.Close()

	out := []domain.Distribution{}
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan distribution", err)
		}
		d.Items = []domain.DistributionItem{}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate distributions", err)
	}
	return out, nil
}

func (r *PgxDistributionRepository) MaxDistributionSequence(ctx context.Context, tenantID string, year int) (int, error) {
	prefix := domain.DistributionNumberPrefix(year)
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(distribution_number FROM $3) AS INTEGER)), 0)
		FROM distributions
		WHERE tenant_id = $1 AND distribution_number LIKE $2 || '%';
	`
	var maxSeq int
	if err := r.DB.QueryRow(ctx, query, tenantID, prefix, len(prefix)+1).Scan(&maxSeq); err != nil {
		return 0, apperrors.NewAppError(500, "failed to read distribution sequence", err)
	}
	return maxSeq, nil
}

func (r *PgxDistributionRepository) SaveDistribution(ctx context.Context, d domain.Distribution) error {
	query := `
		INSERT INTO distributions (
			id, tenant_id, fund_id, distribution_number, total_amount, distribution_date,
			description, status, executed_at,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.DB.Exec(ctx, query,
		d.ID, d.TenantID, d.FundID, d.DistributionNumber, d.TotalAmount, d.DistributionDate,
		d.Description, d.Status, d.ExecutedAt,
		d.CreatedAt, d.CreatedBy, d.LastUpdatedAt, d.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "insert distribution "+d.DistributionNumber)
	}

	batch := &pgx.Batch{}
	for _, it := range d.Items {
		batch.Queue(`
			INSERT INTO distribution_items (
				id, distribution_id, shareholder_id, shareholder_name, position, percentage, amount, invoice_id
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
			it.ID, d.ID, it.ShareholderID, it.ShareholderName, it.Position, it.Percentage, it.Amount, it.InvoiceID,
		)
	}
	return execBatch(ctx, r.DB, batch, "insert items of distribution "+d.DistributionNumber)
}

// MarkExecuted stores the EXECUTED status and links every item to its credit note.
func (r *PgxDistributionRepository) MarkExecuted(ctx context.Context, d domain.Distribution) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE distributions
		SET status = $3, executed_at = $4, last_updated_at = $5, last_updated_by = $6
		WHERE tenant_id = $1 AND id = $2 AND status = 'DRAFT';`,
		d.TenantID, d.ID, d.Status, d.ExecutedAt, d.LastUpdatedAt, d.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to mark distribution executed", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewConflictError("distribution %s is not a draft", d.ID)
	}

	batch := &pgx.Batch{}
	for _, it := range d.Items {
		if it.InvoiceID == nil {
			continue
		}
		batch.Queue(`UPDATE distribution_items SET invoice_id = $2 WHERE id = $1;`, it.ID, *it.InvoiceID)
	}
	return execBatch(ctx, r.DB, batch, "link distribution items to invoices")
}

func (r *PgxDistributionRepository) DeleteDraftDistribution(ctx context.Context, tenantID, distributionID string) (bool, error) {
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM distributions WHERE tenant_id = $1 AND id = $2 AND status = 'DRAFT';`,
		tenantID, distributionID,
	)
	if err != nil {
		return false, apperrors.NewAppError(500, "failed to delete distribution "+distributionID, err)
	}
	return tag.RowsAffected() > 0, nil
}
