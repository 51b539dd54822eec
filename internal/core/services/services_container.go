package services

import (
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}
	audit := WithAuditLogger(NewAuditLogger(repos.AuditLogs))

	// The number allocator is shared by every component that emits invoices
	container.Numbers = NewInvoiceNumberService(repos.Sequences, repos.TenantSettings)

	container.Distributions = NewDistributionService(
		repos.UnitOfWork,
		repos.Distributions,
		repos.Funds,
		repos.TenantSettings,
		container.Numbers,
		audit,
	)
	container.Settlements = NewSettlementService(
		repos.UnitOfWork,
		repos.Settlements,
		repos.Parks,
		repos.Invoices,
		repos.TenantSettings,
		container.Numbers,
		audit,
	)

	handlers := portssvc.RuleHandlers{
		LeasePayment:  NewLeasePaymentHandler(container.Settlements, repos.Parks, repos.Revenues),
		LeaseAdvance:  NewLeaseAdvanceHandler(repos.UnitOfWork, repos.Parks, repos.Invoices, repos.TenantSettings, container.Numbers),
		Distribution:  NewDistributionRuleHandler(container.Distributions),
		ManagementFee: NewManagementFeeHandler(repos.UnitOfWork, repos.Parks, repos.Revenues, repos.Invoices, repos.TenantSettings, container.Numbers),
		Custom:        NewCustomRuleHandler(repos.UnitOfWork, repos.TenantSettings, container.Numbers),
	}

	container.Executor = NewRuleExecutor(repos.BillingRules, repos.Executions, handlers, audit)
	container.Scheduler = NewRuleScheduler(repos.BillingRules, container.Executor, cfg.SchedulerMaxRulesPerTick)
	container.BillingRules = NewBillingRuleService(repos.BillingRules, repos.Executions, container.Executor, audit)

	return container
}
