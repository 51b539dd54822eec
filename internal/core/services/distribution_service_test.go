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
	"github.com/Blubbiii/WKA-Verwaltung-sub016/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testTenantID = "7b0e4a36-3f0e-4d57-9a47-0c1f5a0de001"
	testFundID   = "7b0e4a36-3f0e-4d57-9a47-0c1f5a0de002"
	testUserID   = "7b0e4a36-3f0e-4d57-9a47-0c1f5a0de003"
)

type DistributionServiceTestSuite struct {
	suite.Suite
	now           time.Time
	funds         *MockFundReader
	distributions *MockDistributionRepository
	invoices      *MockInvoiceRepository
	sequences     *fakeSequences
	uow           *fakeUnitOfWork
	service       portssvc.DistributionSvcFacade
}

func (suite *DistributionServiceTestSuite) SetupTest() {
	suite.now = time.Date(2025, time.March, 20, 9, 30, 0, 0, time.UTC)
	suite.funds = new(MockFundReader)
	suite.distributions = new(MockDistributionRepository)
	suite.invoices = new(MockInvoiceRepository)
	suite.sequences = newFakeSequences()
	suite.uow = &fakeUnitOfWork{repos: portsrepo.TxRepositories{
		Distributions: suite.distributions,
		Invoices:      suite.invoices,
		Sequences:     suite.sequences,
	}}

	clock := services.WithClock(fixedClock(suite.now))
	numbers := services.NewInvoiceNumberService(suite.sequences, fakeTenantSettings{}, clock)
	suite.service = services.NewDistributionService(suite.uow, suite.distributions, suite.funds, fakeTenantSettings{}, numbers, clock)
}

func (suite *DistributionServiceTestSuite) shareholders(weights ...string) []domain.Shareholder {
	out := make([]domain.Shareholder, len(weights))
	names := []string{"Anna Becker", "Bernd Claussen", "Carla Dorn", "Dieter Ebert"}
	for i, w := range weights {
		out[i] = domain.Shareholder{
			ID:                  "sh-" + string(rune('a'+i)),
			FundID:              testFundID,
			Name:                names[i],
			Address:             "Hauptstr. 1, 25813 Husum",
			Status:              domain.ShareholderActive,
			OwnershipPercentage: decPtr(w),
		}
	}
	return out
}

func (suite *DistributionServiceTestSuite) expectFund(shareholders []domain.Shareholder) {
	suite.funds.On("FindFundByID", mock.Anything, testTenantID, testFundID).Return(&domain.Fund{ID: testFundID, TenantID: testTenantID}, nil)
	suite.funds.On("ListActiveShareholders", mock.Anything, testFundID).Return(shareholders, nil)
}

func (suite *DistributionServiceTestSuite) input(total string) domain.DistributionInput {
	return domain.DistributionInput{
		FundID:           testFundID,
		TotalAmount:      dec(total),
		DistributionDate: time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *DistributionServiceTestSuite) TestCreateDistribution_ProratesByOwnership() {
	ctx := context.Background()
	suite.expectFund(suite.shareholders("50", "30", "20"))
	suite.distributions.On("MaxDistributionSequence", mock.Anything, testTenantID, 2025).Return(0, nil).Once()
	suite.distributions.On("SaveDistribution", mock.Anything, mock.AnythingOfType("domain.Distribution")).Return(nil).Once()

	d, err := suite.service.CreateDistribution(ctx, testTenantID, testUserID, suite.input("10000"))

	suite.Require().NoError(err)
	suite.Equal("AS-2025-001", d.DistributionNumber)
	suite.Equal(domain.DistributionDraft, d.Status)
	suite.Require().Len(d.Items, 3)
	for i, want := range []string{"5000", "3000", "2000"} {
		suite.True(dec(want).Equal(d.Items[i].Amount), "item %d amount %s", i, d.Items[i].Amount)
		suite.Equal(i+1, d.Items[i].Position)
	}
	suite.True(dec("50").Equal(d.Items[0].Percentage))
	suite.Equal(1, suite.uow.commits)
	suite.distributions.AssertExpectations(suite.T())
}

func (suite *DistributionServiceTestSuite) TestCreateDistribution_RoundingStaysExact() {
	ctx := context.Background()
	suite.expectFund(suite.shareholders("1", "1", "1"))
	suite.distributions.On("MaxDistributionSequence", mock.Anything, testTenantID, 2025).Return(4, nil).Once()
	suite.distributions.On("SaveDistribution", mock.Anything, mock.Anything).Return(nil).Once()

	d, err := suite.service.CreateDistribution(ctx, testTenantID, testUserID, suite.input("100"))

	suite.Require().NoError(err)
	suite.Equal("AS-2025-005", d.DistributionNumber)
	amounts := make([]decimal.Decimal, len(d.Items))
	for i, item := range d.Items {
		amounts[i] = item.Amount
	}
	suite.True(dec("100").Equal(accounting.Sum(amounts)))
	suite.True(dec("33.34").Equal(amounts[0]))
}

func (suite *DistributionServiceTestSuite) TestCreateDistribution_PrefersDistributionPercentage() {
	ctx := context.Background()
	holders := suite.shareholders("50", "50")
	holders[0].DistributionPercentage = decPtr("75")
	holders[1].DistributionPercentage = decPtr("25")
	suite.expectFund(holders)

	d, err := suite.service.PreviewDistribution(ctx, testTenantID, suite.input("1000"))

	suite.Require().NoError(err)
	suite.True(dec("750").Equal(d.Items[0].Amount))
	suite.True(dec("250").Equal(d.Items[1].Amount))
	suite.distributions.AssertNotCalled(suite.T(), "SaveDistribution", mock.Anything, mock.Anything)
}

func (suite *DistributionServiceTestSuite) TestCreateDistribution_SkipsZeroWeights() {
	ctx := context.Background()
	holders := suite.shareholders("60", "0", "40")
	suite.expectFund(holders)

	d, err := suite.service.PreviewDistribution(ctx, testTenantID, suite.input("500"))

	suite.Require().NoError(err)
	suite.Require().Len(d.Items, 2)
	suite.Equal(holders[2].ID, d.Items[1].ShareholderID)
}

func (suite *DistributionServiceTestSuite) TestCreateDistribution_ValidationErrors() {
	ctx := context.Background()

	_, err := suite.service.CreateDistribution(ctx, testTenantID, testUserID, suite.input("0"))
	suite.ErrorIs(err, apperrors.ErrValidation)

	suite.expectFund(suite.shareholders("0", "0"))
	_, err = suite.service.CreateDistribution(ctx, testTenantID, testUserID, suite.input("100"))
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "all shareholder percentages are zero")
	suite.Equal(0, suite.uow.commits+suite.uow.rollbacks)
}

func (suite *DistributionServiceTestSuite) TestCreateDistribution_NoActiveShareholders() {
	ctx := context.Background()
	suite.expectFund([]domain.Shareholder{})

	_, err := suite.service.CreateDistribution(ctx, testTenantID, testUserID, suite.input("100"))

	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "no active shareholders")
}

func (suite *DistributionServiceTestSuite) TestCreateDistribution_RetriesTakenNumber() {
	ctx := context.Background()
	suite.expectFund(suite.shareholders("100"))
	suite.distributions.On("MaxDistributionSequence", mock.Anything, testTenantID, 2025).Return(1, nil).Once()
	suite.distributions.On("MaxDistributionSequence", mock.Anything, testTenantID, 2025).Return(2, nil).Once()
	suite.distributions.On("SaveDistribution", mock.Anything, mock.Anything).Return(apperrors.ErrDuplicate).Once()
	suite.distributions.On("SaveDistribution", mock.Anything, mock.Anything).Return(nil).Once()

	d, err := suite.service.CreateDistribution(ctx, testTenantID, testUserID, suite.input("100"))

	suite.Require().NoError(err)
	suite.Equal("AS-2025-003", d.DistributionNumber)
	suite.Equal(1, suite.uow.rollbacks)
	suite.Equal(1, suite.uow.commits)
}

func (suite *DistributionServiceTestSuite) draftDistribution() *domain.Distribution {
	return &domain.Distribution{
		ID:                 "dist-1",
		TenantID:           testTenantID,
		FundID:             testFundID,
		DistributionNumber: "AS-2025-001",
		TotalAmount:        dec("10000"),
		DistributionDate:   time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		Status:             domain.DistributionDraft,
		Items: []domain.DistributionItem{
			{ID: "i-1", ShareholderID: "sh-a", ShareholderName: "Anna Becker", Position: 1, Percentage: dec("50"), Amount: dec("5000")},
			{ID: "i-2", ShareholderID: "sh-b", ShareholderName: "Bernd Claussen", Position: 2, Percentage: dec("30"), Amount: dec("3000")},
			{ID: "i-3", ShareholderID: "sh-c", ShareholderName: "Carla Dorn", Position: 3, Percentage: dec("20"), Amount: dec("2000")},
		},
	}
}

func (suite *DistributionServiceTestSuite) TestExecuteDistribution_IssuesTaxFreeCreditNotes() {
	ctx := context.Background()
	suite.funds.On("ListActiveShareholders", mock.Anything, testFundID).Return(suite.shareholders("50", "30", "20"), nil)
	suite.distributions.On("FindDistributionForUpdate", mock.Anything, testTenantID, "dist-1").Return(suite.draftDistribution(), nil).Once()
	suite.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return(nil).Times(3)
	suite.distributions.On("MarkExecuted", mock.Anything, mock.MatchedBy(func(d domain.Distribution) bool {
		for _, item := range d.Items {
			if item.InvoiceID == nil {
				return false
			}
		}
		return d.Status == domain.DistributionExecuted && d.ExecutedAt != nil
	})).Return(nil).Once()

	d, invoices, err := suite.service.ExecuteDistribution(ctx, testTenantID, testUserID, "dist-1")

	suite.Require().NoError(err)
	suite.Equal(domain.DistributionExecuted, d.Status)
	suite.Require().Len(invoices, 3)
	for i, inv := range invoices {
		suite.Equal(domain.InvoiceTypeCreditNote, inv.InvoiceType)
		suite.Equal(domain.ReferenceDistribution, inv.ReferenceType)
		suite.True(inv.TaxRate.IsZero())
		suite.True(inv.NetAmount.Equal(inv.GrossAmount))
		suite.True(d.Items[i].Amount.Equal(inv.GrossAmount))
		suite.Equal(d.DistributionDate.AddDate(0, 0, domain.DefaultPaymentTermDays), inv.DueDate)
	}
	suite.Equal("GS-2025-00001", invoices[0].InvoiceNumber)
	suite.Equal("GS-2025-00003", invoices[2].InvoiceNumber)
	suite.Equal(1, suite.uow.commits)
	suite.distributions.AssertExpectations(suite.T())
}

func (suite *DistributionServiceTestSuite) TestExecuteDistribution_RejectsSecondExecution() {
	ctx := context.Background()
	executed := suite.draftDistribution()
	executed.Status = domain.DistributionExecuted
	suite.distributions.On("FindDistributionForUpdate", mock.Anything, testTenantID, "dist-1").Return(executed, nil).Once()

	_, _, err := suite.service.ExecuteDistribution(ctx, testTenantID, testUserID, "dist-1")

	suite.ErrorIs(err, apperrors.ErrConflict)
	suite.invoices.AssertNotCalled(suite.T(), "CreateInvoice", mock.Anything, mock.Anything)
	suite.Equal(1, suite.uow.rollbacks)
}

func (suite *DistributionServiceTestSuite) TestExecuteDistribution_RollsBackOnInvoiceFailure() {
	ctx := context.Background()
	suite.funds.On("ListActiveShareholders", mock.Anything, testFundID).Return(suite.shareholders("50", "30", "20"), nil)
	suite.distributions.On("FindDistributionForUpdate", mock.Anything, testTenantID, "dist-1").Return(suite.draftDistribution(), nil).Once()
	suite.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return(nil).Once()
	suite.invoices.On("CreateInvoice", mock.Anything, mock.Anything).Return(apperrors.ErrDuplicate).Once()

	_, _, err := suite.service.ExecuteDistribution(ctx, testTenantID, testUserID, "dist-1")

	suite.Error(err)
	suite.Equal(1, suite.uow.rollbacks)
	suite.distributions.AssertNotCalled(suite.T(), "MarkExecuted", mock.Anything, mock.Anything)
}

func (suite *DistributionServiceTestSuite) TestDeleteDistribution() {
	ctx := context.Background()
	suite.distributions.On("DeleteDraftDistribution", mock.Anything, testTenantID, "dist-1").Return(true, nil).Once()

	suite.NoError(suite.service.DeleteDistribution(ctx, testTenantID, testUserID, "dist-1"))
}

func (suite *DistributionServiceTestSuite) TestDeleteDistribution_RejectsExecuted() {
	ctx := context.Background()
	executed := suite.draftDistribution()
	executed.Status = domain.DistributionExecuted
	suite.distributions.On("DeleteDraftDistribution", mock.Anything, testTenantID, "dist-1").Return(false, nil).Once()
	suite.distributions.On("FindDistributionByID", mock.Anything, testTenantID, "dist-1").Return(executed, nil).Once()

	err := suite.service.DeleteDistribution(ctx, testTenantID, testUserID, "dist-1")

	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *DistributionServiceTestSuite) TestDeleteDistribution_NotFound() {
	ctx := context.Background()
	suite.distributions.On("DeleteDraftDistribution", mock.Anything, testTenantID, "missing").Return(false, nil).Once()
	suite.distributions.On("FindDistributionByID", mock.Anything, testTenantID, "missing").
		Return(nil, apperrors.NewNotFoundError("distribution", "missing")).Once()

	err := suite.service.DeleteDistribution(ctx, testTenantID, testUserID, "missing")

	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func TestDistributionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DistributionServiceTestSuite))
}
