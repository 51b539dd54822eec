package repositories

import (
	"context"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
)

// TenantSettingsReader loads per-tenant billing settings.
type TenantSettingsReader interface {
	// GetTenantSettings returns defaults when the tenant has no settings row.
	GetTenantSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error)
}

// AuditLogWriter appends audit log entries.
type AuditLogWriter interface {
	InsertAuditLog(ctx context.Context, entry domain.AuditEntry) error
}
