package pgsql

import (
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	parkRepo := newPgxParkRepository(dbPool)
	tenantRepo := newPgxTenantRepository(dbPool)

	return portsrepo.RepositoryProvider{
		UnitOfWork:     newPgxUnitOfWork(dbPool),
		BillingRules:   newPgxBillingRuleRepository(dbPool),
		Executions:     newPgxExecutionRepository(dbPool),
		Invoices:       newPgxInvoiceRepository(dbPool),
		Sequences:      newPgxInvoiceSequenceRepository(dbPool),
		Funds:          newPgxFundRepository(dbPool),
		Distributions:  newPgxDistributionRepository(dbPool),
		Parks:          parkRepo,
		Revenues:       parkRepo,
		Settlements:    newPgxSettlementRepository(dbPool),
		TenantSettings: tenantRepo,
		AuditLogs:      tenantRepo,
	}
}
