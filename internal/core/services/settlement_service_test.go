package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/apperrors"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/domain"
	portsrepo "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/repositories"
	portssvc "github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/ports/services"
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testParkID = "7b0e4a36-3f0e-4d57-9a47-0c1f5a0de010"

type SettlementServiceTestSuite struct {
	suite.Suite
	now         time.Time
	park        *domain.Park
	parks       *MockParkReader
	settlements *MockSettlementRepository
	invoices    *MockInvoiceRepository
	uow         *fakeUnitOfWork
	service     portssvc.SettlementSvcFacade
}

func (suite *SettlementServiceTestSuite) SetupTest() {
	suite.now = time.Date(2025, time.February, 10, 8, 0, 0, 0, time.UTC)
	cfg := baseFeeConfig()
	cfg.MinimumGuaranteeEur = dec("12000")
	suite.park = &domain.Park{ID: testParkID, TenantID: testTenantID, Name: "Windpark Nordfeld", FeeConfig: cfg}

	suite.parks = new(MockParkReader)
	suite.settlements = new(MockSettlementRepository)
	suite.invoices = new(MockInvoiceRepository)
	sequences := newFakeSequences()
	suite.uow = &fakeUnitOfWork{repos: portsrepo.TxRepositories{
		Settlements: suite.settlements,
		Invoices:    suite.invoices,
		Sequences:   sequences,
	}}
	suite.parks.On("FindParkByID", mock.Anything, testTenantID, testParkID).Return(suite.park, nil).Maybe()

	clock := services.WithClock(fixedClock(suite.now))
	numbers := services.NewInvoiceNumberService(sequences, fakeTenantSettings{}, clock)
	suite.service = services.NewSettlementService(suite.uow, suite.settlements, suite.parks, suite.invoices, fakeTenantSettings{}, numbers, clock)
}

func finalPeriod(year int) domain.SettlementPeriod {
	return domain.SettlementPeriod{Year: year, PeriodType: domain.PeriodFinal}
}

func (suite *SettlementServiceTestSuite) notFound() error {
	return apperrors.NewNotFoundError("settlement", "period")
}

func (suite *SettlementServiceTestSuite) TestCreateSettlement_New() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementByPeriod", mock.Anything, testTenantID, testParkID, finalPeriod(2024)).Return(nil, suite.notFound()).Once()
	suite.settlements.On("CreateSettlement", mock.Anything, mock.MatchedBy(func(s domain.LeaseRevenueSettlement) bool {
		return s.Status == domain.SettlementOpen && s.Year == 2024
	})).Return(nil).Once()

	st, created, err := suite.service.CreateSettlement(ctx, testTenantID, testUserID, domain.SettlementInput{
		ParkID:              testParkID,
		Period:              finalPeriod(2024),
		TotalParkRevenueEur: decPtr("100000"),
	})

	suite.Require().NoError(err)
	suite.True(created)
	suite.Equal(domain.SettlementOpen, st.Status)
	suite.Equal("12000.00", st.MinimumGuaranteeEur.StringFixed(2))
	suite.Equal("100000.00", st.TotalParkRevenueEur.StringFixed(2))
	suite.Equal(1, suite.uow.commits)
}

func (suite *SettlementServiceTestSuite) TestCreateSettlement_NormalizesQuarterlyAdvance() {
	ctx := context.Background()
	quarterly := domain.AdvanceQuarterly
	suite.settlements.On("FindSettlementByPeriod", mock.Anything, testTenantID, testParkID, mock.MatchedBy(func(p domain.SettlementPeriod) bool {
		return p.Month != nil && *p.Month == 4
	})).Return(nil, suite.notFound()).Once()
	suite.settlements.On("CreateSettlement", mock.Anything, mock.Anything).Return(nil).Once()

	st, _, err := suite.service.CreateSettlement(ctx, testTenantID, testUserID, domain.SettlementInput{
		ParkID: testParkID,
		Period: domain.SettlementPeriod{Year: 2025, Month: intPtr(5), PeriodType: domain.PeriodAdvance, AdvanceInterval: &quarterly},
	})

	suite.Require().NoError(err)
	suite.Equal(4, *st.Month)
	suite.Equal("3000.00", st.MinimumGuaranteeEur.StringFixed(2))
}

func (suite *SettlementServiceTestSuite) TestCreateSettlement_MergesIntoOpen() {
	ctx := context.Background()
	existing := &domain.LeaseRevenueSettlement{
		ID: "st-1", TenantID: testTenantID, ParkID: testParkID, Year: 2024, PeriodType: domain.PeriodFinal,
		Status: domain.SettlementOpen, TotalParkRevenueEur: dec("50000"), MinimumGuaranteeEur: dec("12000"),
	}
	suite.settlements.On("FindSettlementByPeriod", mock.Anything, testTenantID, testParkID, finalPeriod(2024)).Return(existing, nil).Once()
	suite.settlements.On("UpdateSettlementInputs", mock.Anything, mock.MatchedBy(func(s domain.LeaseRevenueSettlement) bool {
		return s.ID == "st-1" && s.TotalParkRevenueEur.Equal(dec("100000")) && s.MinimumGuaranteeEur.Equal(dec("12000"))
	})).Return(nil).Once()

	st, created, err := suite.service.CreateSettlement(ctx, testTenantID, testUserID, domain.SettlementInput{
		ParkID:              testParkID,
		Period:              finalPeriod(2024),
		TotalParkRevenueEur: decPtr("100000"),
	})

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal("st-1", st.ID)
	suite.settlements.AssertNotCalled(suite.T(), "CreateSettlement", mock.Anything, mock.Anything)
	suite.settlements.AssertExpectations(suite.T())
	suite.settlements.AssertNotCalled(suite.T(), "SaveCalculation", mock.Anything, mock.Anything)
}

func (suite *SettlementServiceTestSuite) TestCreateSettlement_MergeRecalculatesCalculated() {
	ctx := context.Background()
	existing := &domain.LeaseRevenueSettlement{
		ID: "st-1", TenantID: testTenantID, ParkID: testParkID, Year: 2024, PeriodType: domain.PeriodFinal,
		Status: domain.SettlementCalculated, TotalParkRevenueEur: dec("50000"), MinimumGuaranteeEur: dec("12000"),
		CalculatedFeeEur: dec("7500"), ActualFeeEur: dec("12000"), UsedMinimum: true,
		Items: []domain.LeaseRevenueSettlementItem{{ID: "it-old", LessorID: "l-1", SubtotalEur: dec("12000"), RemainderEur: dec("12000")}},
	}
	suite.settlements.On("FindSettlementByPeriod", mock.Anything, testTenantID, testParkID, finalPeriod(2024)).Return(existing, nil).Once()
	suite.settlements.On("UpdateSettlementInputs", mock.Anything, mock.Anything).Return(nil).Once()
	suite.parks.On("ListActiveLeases", mock.Anything, testTenantID, mock.Anything, mock.Anything, mock.Anything).Return(twoLessors(), nil).Once()
	suite.invoices.On("SumAdvancePayments", mock.Anything, testTenantID, testParkID, 2024, mock.Anything).
		Return(map[string]decimal.Decimal{}, nil).Once()
	suite.settlements.On("SaveCalculation", mock.Anything, mock.MatchedBy(func(s domain.LeaseRevenueSettlement) bool {
		return s.ID == "st-1" && s.Status == domain.SettlementCalculated &&
			s.TotalParkRevenueEur.Equal(dec("1000000")) && s.ActualFeeEur.Equal(dec("150000")) && len(s.Items) == 2
	})).Return(nil).Once()

	st, created, err := suite.service.CreateSettlement(ctx, testTenantID, testUserID, domain.SettlementInput{
		ParkID:              testParkID,
		Period:              finalPeriod(2024),
		TotalParkRevenueEur: decPtr("1000000"),
	})

	suite.Require().NoError(err)
	suite.False(created)
	suite.Equal(domain.SettlementCalculated, st.Status)
	suite.Equal("150000.00", st.CalculatedFeeEur.StringFixed(2))
	suite.Equal("150000.00", st.ActualFeeEur.StringFixed(2))
	suite.False(st.UsedMinimum)
	suite.Require().NotNil(st.CalculatedAt)
	suite.Equal(suite.now, *st.CalculatedAt)
	total := decimal.Zero
	for _, item := range st.Items {
		suite.NotEqual("it-old", item.ID)
		total = total.Add(item.SubtotalEur)
	}
	suite.Equal("150000.00", total.StringFixed(2))
	suite.Equal(1, suite.uow.commits)
	suite.settlements.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestCreateSettlement_RejectsClosedPeriod() {
	ctx := context.Background()
	closed := &domain.LeaseRevenueSettlement{ID: "st-1", Status: domain.SettlementClosed}
	suite.settlements.On("FindSettlementByPeriod", mock.Anything, testTenantID, testParkID, finalPeriod(2024)).Return(closed, nil).Once()

	_, _, err := suite.service.CreateSettlement(ctx, testTenantID, testUserID, domain.SettlementInput{ParkID: testParkID, Period: finalPeriod(2024)})

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.Equal(1, suite.uow.rollbacks)
}

func (suite *SettlementServiceTestSuite) TestCreateSettlement_ValidatesInput() {
	ctx := context.Background()

	_, _, err := suite.service.CreateSettlement(ctx, testTenantID, testUserID, domain.SettlementInput{
		ParkID: testParkID,
		Period: domain.SettlementPeriod{Year: 2025, Month: intPtr(3), PeriodType: domain.PeriodAdvance},
	})
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, _, err = suite.service.CreateSettlement(ctx, testTenantID, testUserID, domain.SettlementInput{
		ParkID:              testParkID,
		Period:              finalPeriod(2024),
		TotalParkRevenueEur: decPtr("-1"),
	})
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal(0, suite.uow.commits+suite.uow.rollbacks)
}

func (suite *SettlementServiceTestSuite) openSettlement(status domain.SettlementStatus) *domain.LeaseRevenueSettlement {
	return &domain.LeaseRevenueSettlement{
		ID: "st-1", TenantID: testTenantID, ParkID: testParkID, Year: 2024, PeriodType: domain.PeriodFinal,
		Status: status, TotalParkRevenueEur: dec("100000"), MinimumGuaranteeEur: decimal.Zero,
	}
}

func (suite *SettlementServiceTestSuite) TestCalculateSettlement_DeductsAdvances() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementForUpdate", mock.Anything, testTenantID, "st-1").Return(suite.openSettlement(domain.SettlementOpen), nil).Once()
	suite.parks.On("ListActiveLeases", mock.Anything, testTenantID, mock.Anything,
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)).Return(twoLessors(), nil).Once()
	suite.invoices.On("SumAdvancePayments", mock.Anything, testTenantID, testParkID, 2024, mock.Anything).
		Return(map[string]decimal.Decimal{"l-1": dec("5000")}, nil).Once()
	suite.settlements.On("SaveCalculation", mock.Anything, mock.MatchedBy(func(s domain.LeaseRevenueSettlement) bool {
		return s.Status == domain.SettlementCalculated && s.CalculatedAt != nil && len(s.Items) == 2
	})).Return(nil).Once()

	st, err := suite.service.CalculateSettlement(ctx, testTenantID, testUserID, "st-1")

	suite.Require().NoError(err)
	suite.Equal("15000.00", st.ActualFeeEur.StringFixed(2))
	suite.Equal("l-1", st.Items[0].LessorID)
	suite.Equal("9666.67", st.Items[0].SubtotalEur.StringFixed(2))
	suite.Equal("5000.00", st.Items[0].AdvancePaidEur.StringFixed(2))
	suite.Equal("4666.67", st.Items[0].RemainderEur.StringFixed(2))
	suite.Equal("5333.33", st.Items[1].RemainderEur.StringFixed(2))
	suite.settlements.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestCalculateSettlement_RejectsSettled() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementForUpdate", mock.Anything, testTenantID, "st-1").Return(suite.openSettlement(domain.SettlementSettled), nil).Once()

	_, err := suite.service.CalculateSettlement(ctx, testTenantID, testUserID, "st-1")

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.ErrorIs(err, domain.ErrInvalidTransition)
	suite.settlements.AssertNotCalled(suite.T(), "SaveCalculation", mock.Anything, mock.Anything)
}

func (suite *SettlementServiceTestSuite) calculatedFinal() *domain.LeaseRevenueSettlement {
	st := suite.openSettlement(domain.SettlementCalculated)
	st.Items = []domain.LeaseRevenueSettlementItem{
		{ID: "it-1", LessorID: "l-1", LessorName: "Albers, Heinrich", SubtotalEur: dec("9666.67"), TaxableAmountEur: decimal.Zero,
			ExemptAmountEur: dec("9666.67"), AdvancePaidEur: dec("8000"), RemainderEur: dec("1666.67")},
		{ID: "it-2", LessorID: "l-2", LessorName: "Brandt, Maria", SubtotalEur: dec("5333.33"), TaxableAmountEur: decimal.Zero,
			ExemptAmountEur: dec("5333.33"), AdvancePaidEur: dec("5533.33"), RemainderEur: dec("-200")},
		{ID: "it-3", LessorID: "l-3", LessorName: "Carstens, Jan", SubtotalEur: dec("1000"), TaxableAmountEur: decimal.Zero,
			ExemptAmountEur: dec("1000"), AdvancePaidEur: dec("1000"), RemainderEur: decimal.Zero},
	}
	return st
}

func (suite *SettlementServiceTestSuite) TestSettleSettlement_FinalIssuesCreditNotesAndRefundInvoices() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementForUpdate", mock.Anything, testTenantID, "st-1").Return(suite.calculatedFinal(), nil).Once()
	suite.parks.On("ListActiveLeases", mock.Anything, testTenantID, mock.Anything, mock.Anything, mock.Anything).Return(twoLessors(), nil).Once()
	suite.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return(nil).Twice()
	suite.settlements.On("MarkSettled", mock.Anything, mock.MatchedBy(func(s domain.LeaseRevenueSettlement) bool {
		return s.Status == domain.SettlementSettled && s.Items[0].InvoiceID != nil && s.Items[1].InvoiceID != nil && s.Items[2].InvoiceID == nil
	})).Return(nil).Once()

	st, invoices, err := suite.service.SettleSettlement(ctx, testTenantID, testUserID, "st-1")

	suite.Require().NoError(err)
	suite.Equal(domain.SettlementSettled, st.Status)
	suite.Require().NotNil(st.SettlementDate)
	suite.Require().Len(invoices, 2)

	credit, refund := invoices[0], invoices[1]
	suite.Equal(domain.InvoiceTypeCreditNote, credit.InvoiceType)
	suite.Equal("GS-2025-00001", credit.InvoiceNumber)
	suite.Equal("1666.67", credit.GrossAmount.StringFixed(2))
	suite.True(credit.TaxAmount.IsZero())
	suite.Equal(domain.ReferenceLeaseSettlement, credit.ReferenceType)
	suite.Equal("Dorfstr. 4, 25899 Niebüll", credit.RecipientAddress)

	suite.Equal(domain.InvoiceTypeInvoice, refund.InvoiceType)
	suite.Equal("RE-2025-00001", refund.InvoiceNumber)
	suite.Equal("200.00", refund.NetAmount.StringFixed(2))
	suite.Equal(1, suite.uow.commits)
}

func (suite *SettlementServiceTestSuite) TestSettleSettlement_AdvanceSplitsTaxableShare() {
	ctx := context.Background()
	monthly := domain.AdvanceMonthly
	st := suite.openSettlement(domain.SettlementCalculated)
	st.PeriodType, st.AdvanceInterval, st.Month = domain.PeriodAdvance, &monthly, intPtr(2)
	st.Items = []domain.LeaseRevenueSettlementItem{{
		ID: "it-1", LessorID: "l-1", LessorName: "Albers, Heinrich", SubtotalEur: dec("1500"),
		TaxableAmountEur: dec("1000"), ExemptAmountEur: dec("500"), AdvancePaidEur: decimal.Zero, RemainderEur: dec("1500"),
	}}
	suite.settlements.On("FindSettlementForUpdate", mock.Anything, testTenantID, "st-1").Return(st, nil).Once()
	suite.parks.On("ListActiveLeases", mock.Anything, testTenantID, mock.Anything, mock.Anything, mock.Anything).Return(twoLessors(), nil).Once()
	suite.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return(nil).Once()
	suite.settlements.On("MarkSettled", mock.Anything, mock.Anything).Return(nil).Once()

	out, invoices, err := suite.service.SettleSettlement(ctx, testTenantID, testUserID, "st-1")

	suite.Require().NoError(err)
	suite.Require().Len(invoices, 1)
	inv := invoices[0]
	suite.Equal(domain.ReferenceLeaseAdvance, inv.ReferenceType)
	suite.Require().Len(inv.Items, 2)
	suite.Equal("1000.00", inv.Items[0].NetAmount.StringFixed(2))
	suite.Equal("190.00", inv.Items[0].TaxAmount.StringFixed(2))
	suite.True(inv.Items[1].TaxRate.IsZero())
	suite.Equal("1690.00", inv.GrossAmount.StringFixed(2))
	suite.Equal(2, *inv.PeriodMonth)
	suite.Equal("1500.00", out.Items[0].AdvancePaidEur.StringFixed(2))
	suite.True(out.Items[0].RemainderEur.IsZero())
}

func (suite *SettlementServiceTestSuite) TestSettleSettlement_RequiresCalculated() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementForUpdate", mock.Anything, testTenantID, "st-1").Return(suite.openSettlement(domain.SettlementOpen), nil).Once()

	_, _, err := suite.service.SettleSettlement(ctx, testTenantID, testUserID, "st-1")

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.invoices.AssertNotCalled(suite.T(), "CreateInvoice", mock.Anything, mock.Anything)
}

func (suite *SettlementServiceTestSuite) TestCloseSettlement() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementForUpdate", mock.Anything, testTenantID, "st-1").Return(suite.openSettlement(domain.SettlementSettled), nil).Once()
	suite.settlements.On("MarkClosed", mock.Anything, mock.MatchedBy(func(s domain.LeaseRevenueSettlement) bool {
		return s.Status == domain.SettlementClosed && s.ClosedAt != nil
	})).Return(nil).Once()

	st, err := suite.service.CloseSettlement(ctx, testTenantID, testUserID, "st-1")

	suite.Require().NoError(err)
	suite.Equal(domain.SettlementClosed, st.Status)
}

func (suite *SettlementServiceTestSuite) TestCloseSettlement_RequiresSettled() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementForUpdate", mock.Anything, testTenantID, "st-1").Return(suite.openSettlement(domain.SettlementCalculated), nil).Once()

	_, err := suite.service.CloseSettlement(ctx, testTenantID, testUserID, "st-1")

	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *SettlementServiceTestSuite) TestImportHistoricalSettlement() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementByPeriod", mock.Anything, testTenantID, testParkID, finalPeriod(2022)).Return(nil, suite.notFound()).Once()
	suite.settlements.On("CreateSettlement", mock.Anything, mock.MatchedBy(func(s domain.LeaseRevenueSettlement) bool {
		return s.IsHistorical && s.Status == domain.SettlementClosed
	})).Return(nil).Once()

	st, err := suite.service.ImportHistoricalSettlement(ctx, testTenantID, testUserID, domain.HistoricalSettlementInput{
		ParkID:              testParkID,
		Period:              finalPeriod(2022),
		TotalParkRevenueEur: dec("80000"),
		CalculatedFeeEur:    dec("9000"),
		MinimumGuaranteeEur: dec("10000"),
		ActualFeeEur:        dec("10000"),
		Items: []domain.HistoricalItemInput{
			{LessorID: "l-1", LessorName: "Albers, Heinrich", SubtotalEur: dec("10000"), ExemptAmountEur: dec("10000"), AdvancePaidEur: dec("9000")},
		},
	})

	suite.Require().NoError(err)
	suite.True(st.UsedMinimum)
	suite.Require().Len(st.Items, 1)
	suite.Equal("1000.00", st.Items[0].RemainderEur.StringFixed(2))
	suite.True(st.Items[0].StandortFeeEur.IsZero())
}

func (suite *SettlementServiceTestSuite) TestImportHistoricalSettlement_RejectsExistingPeriod() {
	ctx := context.Background()
	suite.settlements.On("FindSettlementByPeriod", mock.Anything, testTenantID, testParkID, finalPeriod(2022)).
		Return(&domain.LeaseRevenueSettlement{ID: "st-old", Status: domain.SettlementOpen}, nil).Once()

	_, err := suite.service.ImportHistoricalSettlement(ctx, testTenantID, testUserID, domain.HistoricalSettlementInput{
		ParkID: testParkID,
		Period: finalPeriod(2022),
	})

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.settlements.AssertNotCalled(suite.T(), "CreateSettlement", mock.Anything, mock.Anything)
}

func TestSettlementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SettlementServiceTestSuite))
}
