package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Audit portssvc.AuditLoggerSvc
	Clock func() time.Time
}

// ServiceOption configures the shared parts of a service.
type ServiceOption func(*BaseService)

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *BaseService) {
		s.Clock = clock
	}
}

// WithAuditLogger makes the service record audit entries after mutations.
func WithAuditLogger(audit portssvc.AuditLoggerSvc) ServiceOption {
	return func(s *BaseService) {
		s.Audit = audit
	}
}

func newBaseService(opts []ServiceOption) BaseService {
	b := BaseService{}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Now returns the current time in UTC.
func (s *BaseService) Now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	s.GetLogger(ctx).Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// RecordAudit hands an entry to the audit logger, if one is configured.
func (s *BaseService) RecordAudit(ctx context.Context, entry domain.AuditEntry) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, entry)
}
