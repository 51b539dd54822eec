package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func intPtr(i int) *int              { return &i }
func strPtr(s string) *string        { return &s }
func timePtr(t time.Time) *time.Time { return &t }
func dec(s string) decimal.Decimal   { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// --- Unit of work ---

// fakeUnitOfWork hands the tx-bound repositories to fn and counts outcomes.
type fakeUnitOfWork struct {
	repos     portsrepo.TxRepositories
	commits   int
	rollbacks int
}

func (u *fakeUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, repos portsrepo.TxRepositories) error) error {
	if err := fn(ctx, u.repos); err != nil {
		u.rollbacks++
		return err
	}
	u.commits++
	return nil
}

// fakeSequences is an in-memory invoice number counter.
type fakeSequences struct {
	mu   sync.Mutex
	last map[string]int64
	err  error
}

func newFakeSequences() *fakeSequences {
	return &fakeSequences{last: map[string]int64{}}
}

func (f *fakeSequences) Increment(ctx context.Context, tenantID string, invoiceType domain.InvoiceType, count int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	key := tenantID + "/" + string(invoiceType)
	f.last[key] += int64(count)
	return f.last[key], nil
}

// fakeTenantSettings returns defaults for every tenant.
type fakeTenantSettings struct{}

func (fakeTenantSettings) GetTenantSettings(ctx context.Context, tenantID string) (domain.TenantSettings, error) {
	return domain.DefaultTenantSettings(tenantID), nil
}

// --- Billing rules ---

type MockBillingRuleRepository struct {
	mock.Mock
}

func (m *MockBillingRuleRepository) FindRuleByID(ctx context.Context, tenantID, ruleID string) (*domain.BillingRule, error) {
	args := m.Called(ctx, tenantID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingRule), args.Error(1)
}

func (m *MockBillingRuleRepository) ListRules(ctx context.Context, tenantID string, limit int, after *pagination.Cursor) ([]domain.BillingRule, error) {
	args := m.Called(ctx, tenantID, limit, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BillingRule), args.Error(1)
}

func (m *MockBillingRuleRepository) FindDueRules(ctx context.Context, now, failedSince time.Time, limit int) ([]domain.BillingRule, error) {
	args := m.Called(ctx, now, failedSince, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BillingRule), args.Error(1)
}

func (m *MockBillingRuleRepository) SaveRule(ctx context.Context, rule domain.BillingRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *MockBillingRuleRepository) UpdateRule(ctx context.Context, rule domain.BillingRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *MockBillingRuleRepository) UpdateSchedule(ctx context.Context, ruleID string, lastRunAt, nextRunAt time.Time) error {
	return m.Called(ctx, ruleID, lastRunAt, nextRunAt).Error(0)
}

type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) CreateExecution(ctx context.Context, exec domain.BillingRuleExecution) error {
	return m.Called(ctx, exec).Error(0)
}

func (m *MockExecutionRepository) FinalizeExecution(ctx context.Context, exec domain.BillingRuleExecution) error {
	return m.Called(ctx, exec).Error(0)
}

func (m *MockExecutionRepository) HasExecutionSince(ctx context.Context, ruleID string, since time.Time) (bool, error) {
	args := m.Called(ctx, ruleID, since)
	return args.Bool(0), args.Error(1)
}

func (m *MockExecutionRepository) ListExecutions(ctx context.Context, tenantID, ruleID string, limit int, after *pagination.Cursor) ([]domain.BillingRuleExecution, error) {
	args := m.Called(ctx, tenantID, ruleID, limit, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BillingRuleExecution), args.Error(1)
}

type MockRuleHandler[P domain.RuleParameters] struct {
	mock.Mock
}

func (m *MockRuleHandler[P]) Run(ctx context.Context, tenantID string, params P, opts domain.RunOptions) (*domain.ExecutionResult, error) {
	args := m.Called(ctx, tenantID, params, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExecutionResult), args.Error(1)
}

type MockRuleExecutor struct {
	mock.Mock
}

func (m *MockRuleExecutor) Execute(ctx context.Context, rule domain.BillingRule, opts domain.ExecuteOptions) (*domain.ExecutionResult, error) {
	args := m.Called(ctx, rule, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExecutionResult), args.Error(1)
}

type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) Record(ctx context.Context, entry domain.AuditEntry) {
	m.Called(ctx, entry)
}

// --- Invoices ---

// MockInvoiceRepository records created invoices in addition to mock expectations.
type MockInvoiceRepository struct {
	mock.Mock
	mu      sync.Mutex
	Created []domain.Invoice
}

func (m *MockInvoiceRepository) ExistsPeriodInvoice(ctx context.Context, q portsrepo.PeriodInvoiceQuery) (bool, error) {
	args := m.Called(ctx, q)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) SumAdvancePayments(ctx context.Context, tenantID, parkID string, year int, month *int) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, parkID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *MockInvoiceRepository) CreateInvoice(ctx context.Context, invoice domain.Invoice) error {
	args := m.Called(ctx, invoice)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.Created = append(m.Created, invoice)
		m.mu.Unlock()
	}
	return args.Error(0)
}

// --- Funds and distributions ---

type MockFundReader struct {
	mock.Mock
}

func (m *MockFundReader) FindFundByID(ctx context.Context, tenantID, fundID string) (*domain.Fund, error) {
	args := m.Called(ctx, tenantID, fundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Fund), args.Error(1)
}

func (m *MockFundReader) ListActiveShareholders(ctx context.Context, fundID string) ([]domain.Shareholder, error) {
	args := m.Called(ctx, fundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Shareholder), args.Error(1)
}

type MockDistributionRepository struct {
	mock.Mock
}

func (m *MockDistributionRepository) FindDistributionByID(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error) {
	args := m.Called(ctx, tenantID, distributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}

func (m *MockDistributionRepository) ListDistributions(ctx context.Context, tenantID, fundID string) ([]domain.Distribution, error) {
	args := m.Called(ctx, tenantID, fundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Distribution), args.Error(1)
}

func (m *MockDistributionRepository) MaxDistributionSequence(ctx context.Context, tenantID string, year int) (int, error) {
	args := m.Called(ctx, tenantID, year)
	return args.Int(0), args.Error(1)
}

func (m *MockDistributionRepository) SaveDistribution(ctx context.Context, distribution domain.Distribution) error {
	return m.Called(ctx, distribution).Error(0)
}

func (m *MockDistributionRepository) FindDistributionForUpdate(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error) {
	args := m.Called(ctx, tenantID, distributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}

func (m *MockDistributionRepository) MarkExecuted(ctx context.Context, distribution domain.Distribution) error {
	return m.Called(ctx, distribution).Error(0)
}

func (m *MockDistributionRepository) DeleteDraftDistribution(ctx context.Context, tenantID, distributionID string) (bool, error) {
	args := m.Called(ctx, tenantID, distributionID)
	return args.Bool(0), args.Error(1)
}

// --- Parks and settlements ---

type MockParkReader struct {
	mock.Mock
}

func (m *MockParkReader) FindParkByID(ctx context.Context, tenantID, parkID string) (*domain.Park, error) {
	args := m.Called(ctx, tenantID, parkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Park), args.Error(1)
}

func (m *MockParkReader) ListActiveLeases(ctx context.Context, tenantID string, parkID *string, from, to time.Time) ([]domain.Lease, error) {
	args := m.Called(ctx, tenantID, parkID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Lease), args.Error(1)
}

type MockRevenueReader struct {
	mock.Mock
}

func (m *MockRevenueReader) SumParkRevenue(ctx context.Context, tenantID, parkID string, from, to time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, parkID, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) FindSettlementByID(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

func (m *MockSettlementRepository) FindSettlementByPeriod(ctx context.Context, tenantID, parkID string, period domain.SettlementPeriod) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, parkID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

func (m *MockSettlementRepository) CreateSettlement(ctx context.Context, settlement domain.LeaseRevenueSettlement) error {
	return m.Called(ctx, settlement).Error(0)
}

func (m *MockSettlementRepository) UpdateSettlementInputs(ctx context.Context, settlement domain.LeaseRevenueSettlement) error {
	return m.Called(ctx, settlement).Error(0)
}

func (m *MockSettlementRepository) FindSettlementForUpdate(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

func (m *MockSettlementRepository) SaveCalculation(ctx context.Context, settlement domain.LeaseRevenueSettlement) error {
	return m.Called(ctx, settlement).Error(0)
}

func (m *MockSettlementRepository) MarkSettled(ctx context.Context, settlement domain.LeaseRevenueSettlement) error {
	return m.Called(ctx, settlement).Error(0)
}

func (m *MockSettlementRepository) MarkClosed(ctx context.Context, settlement domain.LeaseRevenueSettlement) error {
	return m.Called(ctx, settlement).Error(0)
}

type MockAuditLogWriter struct {
	mock.Mock
}

func (m *MockAuditLogWriter) InsertAuditLog(ctx context.Context, entry domain.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

// --- Services used by rule handlers ---

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) GetSettlement(ctx context.Context, tenantID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

func (m *MockSettlementService) PreviewSettlement(ctx context.Context, tenantID string, in domain.SettlementInput) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

func (m *MockSettlementService) CreateSettlement(ctx context.Context, tenantID, userID string, in domain.SettlementInput) (*domain.LeaseRevenueSettlement, bool, error) {
	args := m.Called(ctx, tenantID, userID, in)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Bool(1), args.Error(2)
}

func (m *MockSettlementService) CalculateSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, userID, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

func (m *MockSettlementService) SettleSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, []domain.Invoice, error) {
	args := m.Called(ctx, tenantID, userID, settlementID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Get(1).([]domain.Invoice), args.Error(2)
}

func (m *MockSettlementService) CloseSettlement(ctx context.Context, tenantID, userID, settlementID string) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, userID, settlementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

func (m *MockSettlementService) ImportHistoricalSettlement(ctx context.Context, tenantID, userID string, in domain.HistoricalSettlementInput) (*domain.LeaseRevenueSettlement, error) {
	args := m.Called(ctx, tenantID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LeaseRevenueSettlement), args.Error(1)
}

type MockDistributionService struct {
	mock.Mock
}

func (m *MockDistributionService) GetDistribution(ctx context.Context, tenantID, distributionID string) (*domain.Distribution, error) {
	args := m.Called(ctx, tenantID, distributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}

func (m *MockDistributionService) ListDistributions(ctx context.Context, tenantID, fundID string) ([]domain.Distribution, error) {
	args := m.Called(ctx, tenantID, fundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Distribution), args.Error(1)
}

func (m *MockDistributionService) PreviewDistribution(ctx context.Context, tenantID string, in domain.DistributionInput) (*domain.Distribution, error) {
	args := m.Called(ctx, tenantID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}

func (m *MockDistributionService) CreateDistribution(ctx context.Context, tenantID, userID string, in domain.DistributionInput) (*domain.Distribution, error) {
	args := m.Called(ctx, tenantID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}

func (m *MockDistributionService) ExecuteDistribution(ctx context.Context, tenantID, userID, distributionID string) (*domain.Distribution, []domain.Invoice, error) {
	args := m.Called(ctx, tenantID, userID, distributionID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Distribution), args.Get(1).([]domain.Invoice), args.Error(2)
}

func (m *MockDistributionService) DeleteDistribution(ctx context.Context, tenantID, userID, distributionID string) error {
	return m.Called(ctx, tenantID, userID, distributionID).Error(0)
}
