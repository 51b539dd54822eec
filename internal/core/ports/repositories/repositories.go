package repositories

// RepositoryProvider holds all pool-bound repositories and the unit of work.
type RepositoryProvider struct {
	UnitOfWork     UnitOfWork
	BillingRules   BillingRuleRepository
	Executions     ExecutionRepository
	Invoices       InvoiceRepository
	Sequences      InvoiceSequenceRepository
	Funds          FundReader
	Distributions  DistributionRepository
	Parks          ParkReader
	Revenues       RevenueReader
	Settlements    SettlementRepository
	TenantSettings TenantSettingsReader
	AuditLogs      AuditLogWriter
}
