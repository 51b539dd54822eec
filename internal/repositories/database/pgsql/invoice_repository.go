package pgsql

import (
	"context"
	"strconv"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PgxInvoiceRepository struct {
	BaseRepository
}

func newPgxInvoiceRepository(db DBTX) *PgxInvoiceRepository {
	return &PgxInvoiceRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.InvoiceRepository = (*PgxInvoiceRepository)(nil)

// CreateInvoice inserts the header and then all items in one batch.
func (r *PgxInvoiceRepository) CreateInvoice(ctx context.Context, inv domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, tenant_id, invoice_number, invoice_type, status, invoice_date, due_date,
			recipient_type, recipient_id, recipient_name, recipient_address,
			net_amount, tax_rate, tax_amount, gross_amount,
			reference_type, reference_id, park_id, period_year, period_month, notes,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25);
	`
	_, err := r.DB.Exec(ctx, query,
		inv.ID, inv.TenantID, inv.InvoiceNumber, inv.InvoiceType, inv.Status, inv.InvoiceDate, inv.DueDate,
		inv.RecipientType, inv.RecipientID, inv.RecipientName, inv.RecipientAddress,
		inv.NetAmount, inv.TaxRate, inv.TaxAmount, inv.GrossAmount,
		inv.ReferenceType, inv.ReferenceID, inv.ParkID, inv.PeriodYear, inv.PeriodMonth, inv.Notes,
		inv.CreatedAt, inv.CreatedBy, inv.LastUpdatedAt, inv.LastUpdatedBy,
	)
	if err != nil {
		return mapWriteError(err, "insert invoice "+inv.InvoiceNumber)
	}

	batch := &pgx.Batch{}
	itemQuery := `
		INSERT INTO invoice_items (
			id, invoice_id, position, description, quantity, unit_price,
			net_amount, tax_rate, tax_amount, gross_amount
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	for _, it := range inv.Items {
		batch.Queue(itemQuery,
			it.ID, inv.ID, it.Position, it.Description, it.Quantity, it.UnitPrice,
			it.NetAmount, it.TaxRate, it.TaxAmount, it.GrossAmount,
		)
	}
	return execBatch(ctx, r.DB, batch, "insert items of invoice "+inv.InvoiceNumber)
}

// ExistsPeriodInvoice matches a missing month against invoices without a month.
func (r *PgxInvoiceRepository) ExistsPeriodInvoice(ctx context.Context, q portsrepo.PeriodInvoiceQuery) (bool, error) {
	args := []any{q.TenantID, q.ReferenceType, q.ParkID, q.Year}
	filter := "tenant_id = $1 AND reference_type = $2 AND park_id = $3 AND period_year = $4"
	if q.Month != nil {
		args = append(args, *q.Month)
		filter += " AND period_month = $" + strconv.Itoa(len(args))
	} else {
		filter += " AND period_month IS NULL"
	}
	if q.RecipientID != nil {
		args = append(args, *q.RecipientID)
		filter += " AND recipient_id = $" + strconv.Itoa(len(args))
	}

	var exists bool
	if err := r.DB.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM invoices WHERE "+filter+");", args...).Scan(&exists); err != nil {
		return false, apperrors.NewAppError(500, "failed to check existing invoices", err)
	}
	return exists, nil
}

func (r *PgxInvoiceRepository) SumAdvancePayments(ctx context.Context, tenantID, parkID string, year int, month *int) (map[string]decimal.Decimal, error) {
	args := []any{tenantID, domain.ReferenceLeaseAdvance, domain.InvoiceTypeCreditNote, parkID, year}
	query := `
		SELECT recipient_id, COALESCE(SUM(net_amount), 0)
		FROM invoices
		WHERE tenant_id = $1 AND reference_type = $2 AND invoice_type = $3
		  AND park_id = $4 AND period_year = $5 AND recipient_id IS NOT NULL`
	if month != nil {
		args = append(args, *month)
		query += " AND period_month = $6"
	}
	query += " GROUP BY recipient_id;"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to sum advance payments", err)
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var lessorID string
		var sum decimal.Decimal
		if err := rows.Scan(&lessorID, &sum); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan advance payment sum", err)
		}
		sums[lessorID] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "failed to iterate advance payment sums", err)
	}
	return sums, nil
}

type PgxInvoiceSequenceRepository struct {
	BaseRepository
}

func newPgxInvoiceSequenceRepository(db DBTX) *PgxInvoiceSequenceRepository {
	return &PgxInvoiceSequenceRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.InvoiceSequenceRepository = (*PgxInvoiceSequenceRepository)(nil)

// Increment reserves count numbers with a single upsert so concurrent callers never overlap.
func (r *PgxInvoiceSequenceRepository) Increment(ctx context.Context, tenantID string, invoiceType domain.InvoiceType, count int) (int64, error) {
	query := `
		INSERT INTO invoice_number_sequences (tenant_id, invoice_type, last_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, invoice_type)
		DO UPDATE SET last_value = invoice_number_sequences.last_value + EXCLUDED.last_value
		RETURNING last_value;
	`
	var last int64
	if err := r.DB.QueryRow(ctx, query, tenantID, invoiceType, count).Scan(&last); err != nil {
		return 0, apperrors.NewAppError(500, "failed to increment invoice number sequence", err)
	}
	return last, nil
}
