package services

// ServiceContainer holds instances of all the application services.
// It is the entry point handlers and the scheduler use to reach the core.
type ServiceContainer struct {
	BillingRules  BillingRuleSvcFacade
	Executor      RuleExecutorSvc
	Scheduler     RuleSchedulerSvc
	Distributions DistributionSvcFacade
	Settlements   SettlementSvcFacade
	Numbers       InvoiceNumberAllocatorSvc
}
