package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/dto"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testSecret   = "test-secret-key-that-is-long-enough"
	testIssuer   = "billing-test"
	testTenantID = "tenant-1"
	testUserID   = "user-1"
)

// --- Mock BillingRuleService ---
type MockBillingRuleService struct {
	mock.Mock
}

func (m *MockBillingRuleService) GetRule(ctx context.Context, tenantID, ruleID string) (*domain.BillingRule, error) {
	args := m.Called(ctx, tenantID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingRule), args.Error(1)
}

func (m *MockBillingRuleService) ListRules(ctx context.Context, tenantID string, params dto.ListParams) (*dto.ListBillingRulesResponse, error) {
	args := m.Called(ctx, tenantID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListBillingRulesResponse), args.Error(1)
}

func (m *MockBillingRuleService) ListExecutions(ctx context.Context, tenantID, ruleID string, params dto.ListParams) (*dto.ListExecutionsResponse, error) {
	args := m.Called(ctx, tenantID, ruleID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListExecutionsResponse), args.Error(1)
}

func (m *MockBillingRuleService) CreateRule(ctx context.Context, tenantID, userID string, req dto.CreateBillingRuleRequest) (*domain.BillingRule, error) {
	args := m.Called(ctx, tenantID, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingRule), args.Error(1)
}

func (m *MockBillingRuleService) UpdateRule(ctx context.Context, tenantID, userID, ruleID string, req dto.UpdateBillingRuleRequest) (*domain.BillingRule, error) {
	args := m.Called(ctx, tenantID, userID, ruleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingRule), args.Error(1)
}

func (m *MockBillingRuleService) ExecuteRule(ctx context.Context, tenantID, userID, ruleID string, opts domain.ExecuteOptions) (*domain.ExecutionResult, error) {
	args := m.Called(ctx, tenantID, userID, ruleID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExecutionResult), args.Error(1)
}

var _ portssvc.BillingRuleSvcFacade = (*MockBillingRuleService)(nil)

// --- Mock DistributionService ---
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

var _ portssvc.DistributionSvcFacade = (*MockDistributionService)(nil)

// --- Mock SettlementService ---
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

var _ portssvc.SettlementSvcFacade = (*MockSettlementService)(nil)

// handlerSuite carries the router and request helpers shared by the handler suites.
type handlerSuite struct {
	suite.Suite
	router *gin.Engine
	v1     *gin.RouterGroup
}

func (s *handlerSuite) setupRouter() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.v1 = s.router.Group("/api/v1", middleware.AuthMiddleware(testSecret, testIssuer))
}

// generateTestToken creates a signed JWT for the given tenant and user.
func (s *handlerSuite) generateTestToken(tenantID, userID string) string {
	claims := middleware.Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		s.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

// do serves a request authenticated as testUserID of testTenantID. A nil body sends none.
func (s *handlerSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		s.Require().NoError(json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.generateTestToken(testTenantID, testUserID))

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *handlerSuite) decodeError(w *httptest.ResponseRecorder) string {
	var resp dto.ErrorResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}
