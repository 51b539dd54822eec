package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
)

const auditWriteTimeout = 5 * time.Second

type auditLogger struct {
	BaseService
	repo portsrepo.AuditLogWriter
}

// NewAuditLogger returns an audit logger that writes through repo and only logs failures.
func NewAuditLogger(repo portsrepo.AuditLogWriter) portssvc.AuditLoggerSvc {
	return &auditLogger{repo: repo}
}

var _ portssvc.AuditLoggerSvc = (*auditLogger)(nil)

// Record writes the entry detached from the caller's cancellation.
func (a *auditLogger) Record(ctx context.Context, entry domain.AuditEntry) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := a.repo.InsertAuditLog(writeCtx, entry); err != nil {
		a.LogError(ctx, err, "Failed to write audit log",
			slog.String("action", entry.Action),
			slog.String("entity_type", entry.EntityType),
			slog.String("entity_id", entry.EntityID))
	}
}
