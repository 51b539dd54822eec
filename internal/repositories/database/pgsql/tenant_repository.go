package pgsql

import (
	"context"
	"errors"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PgxTenantRepository struct {
	BaseRepository
}

func newPgxTenantRepository(db DBTX) *PgxTenantRepository {
	return &PgxTenantRepository{BaseRepository: BaseRepository{DB: db}}
}

var (
	_ portsrepo.TenantSettingsReader = (*PgxTenantRepository)(nil)
	_ portsrepo.AuditLogWriter       = (*PgxTenantRepository)(nil)
)

func (r *PgxTenantRepository) GetTenantSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error) {
	s := domain.DefaultTenantSettings(tenantID)
	err := r.DB.QueryRow(ctx, `
		SELECT payment_term_days, default_tax_rate, invoice_prefix, credit_note_prefix
		FROM tenant_settings
		WHERE tenant_id = $1;`, tenantID,
	).Scan(&s.PaymentTermDays, &s.DefaultTaxRate, &s.InvoicePrefix, &s.CreditNotePrefix)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultTenantSettings(tenantID), nil
	}
	if err != nil {
		return s, apperrors.NewAppError(500, "failed to load tenant settings", err)
	}
	return s, nil
}

func (r *PgxTenantRepository) InsertAuditLog(ctx context.Context, entry domain.AuditEntry) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO audit_logs (id, tenant_id, actor_id, action, entity_type, entity_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`,
		uuid.NewString(), entry.TenantID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, entry.Metadata,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert audit log", err)
	}
	return nil
}
