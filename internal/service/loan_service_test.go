package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segara/lending-engine/internal/config"
	"github.com/segara/lending-engine/internal/domain"
	"github.com/segara/lending-engine/internal/repository"
	"github.com/segara/lending-engine/internal/service"
	apperrors "github.com/segara/lending-engine/pkg/errors"
	"github.com/segara/lending-engine/tests/mocks"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Business.MinLoanAmount = "100.00"
	cfg.Redis.CacheTTL = "5m"
	return cfg
}

func newService(loanRepo *mocks.MockLoanRepository, repaymentRepo *mocks.MockRepaymentRepository) *service.LoanService {
	return service.NewLoanService(loanRepo, repaymentRepo, nil, testConfig())
}

func approvedLoan(amount int64, term int) (*domain.LoanApplication, []*domain.Repayment) {
	loan := &domain.LoanApplication{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(amount),
		Term:   term,
		Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		State:  domain.LoanStateApproved,
	}
	return loan, domain.NewSchedule(loan.ID, loan.Amount, loan.Term, loan.Date)
}

func TestCreateLoan(t *testing.T) {
	userID := uuid.New()
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		request        *domain.CreateLoanRequest
		setupMocks     func(*mocks.MockLoanRepository)
		expectedCode   string
		validateResult func(*testing.T, *domain.LoanResponse)
	}{
		{
			name:    "Success - Create new loan with schedule",
			request: &domain.CreateLoanRequest{Amount: decimal.NewFromInt(1000), Term: 3, Date: date},
			setupMocks: func(loanRepo *mocks.MockLoanRepository) {
				loanRepo.On("Create", mock.Anything,
					mock.MatchedBy(func(loan *domain.LoanApplication) bool {
						return loan.UserID == userID && loan.State == domain.LoanStatePending
					}),
					mock.MatchedBy(func(repayments []*domain.Repayment) bool {
						return len(repayments) == 3
					}),
				).Return(nil)
			},
			validateResult: func(t *testing.T, resp *domain.LoanResponse) {
				require.Len(t, resp.Repayments, 3)
				assert.Equal(t, "333.33", resp.Repayments[0].Amount.StringFixed(2))
				assert.Equal(t, "333.33", resp.Repayments[1].Amount.StringFixed(2))
				assert.Equal(t, "333.34", resp.Repayments[2].Amount.StringFixed(2))
				assert.Equal(t, date.AddDate(0, 0, 7), resp.Repayments[0].DueDate)
				assert.Equal(t, date.AddDate(0, 0, 21), resp.Repayments[2].DueDate)
				assert.True(t, resp.PendingAmount.Equal(decimal.NewFromInt(1000)))
				assert.Equal(t, 3, resp.PendingTerms)
			},
		},
		{
			name:         "Failure - Principal below floor",
			request:      &domain.CreateLoanRequest{Amount: decimal.NewFromInt(50), Term: 3, Date: date},
			setupMocks:   func(loanRepo *mocks.MockLoanRepository) {},
			expectedCode: apperrors.ErrCodePrincipalTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loanRepo := new(mocks.MockLoanRepository)
			repaymentRepo := new(mocks.MockRepaymentRepository)
			tt.setupMocks(loanRepo)

			svc := newService(loanRepo, repaymentRepo)
			resp, err := svc.CreateLoan(context.Background(), userID, tt.request)

			if tt.expectedCode != "" {
				require.Error(t, err)
				var businessErr *apperrors.BusinessError
				require.ErrorAs(t, err, &businessErr)
				assert.Equal(t, tt.expectedCode, businessErr.Code)
				loanRepo.AssertNotCalled(t, "Create")
			} else {
				require.NoError(t, err)
				tt.validateResult(t, resp)
			}
			loanRepo.AssertExpectations(t)
		})
	}
}

func TestMakePaymentExact(t *testing.T) {
	loan, repayments := approvedLoan(10000, 3)
	target := repayments[0]

	loanRepo := new(mocks.MockLoanRepository)
	repaymentRepo := new(mocks.MockRepaymentRepository)

	repaymentRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	repaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(repayments, nil)
	repaymentRepo.On("ApplySettlement", mock.Anything,
		mock.MatchedBy(func(s *repository.Settlement) bool {
			return s.Settled.ID == target.ID &&
				s.Settled.Amount.Equal(decimal.RequireFromString("3333.33")) &&
				len(s.Redistributed) == 0 &&
				!s.MarkLoanPaid
		}),
	).Return(nil)

	svc := newService(loanRepo, repaymentRepo)
	settled, err := svc.MakePayment(context.Background(), target.ID, decimal.RequireFromString("3333.33"))

	require.NoError(t, err)
	assert.Equal(t, domain.RepaymentStatePaid, settled.State)
	repaymentRepo.AssertExpectations(t)
}

func TestMakePaymentOverpaymentRedistributes(t *testing.T) {
	loan, repayments := approvedLoan(10000, 3)
	target := repayments[0]
	paid := decimal.RequireFromString("3334.00")

	loanRepo := new(mocks.MockLoanRepository)
	repaymentRepo := new(mocks.MockRepaymentRepository)

	repaymentRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	repaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(repayments, nil)

	var applied *repository.Settlement
	repaymentRepo.On("ApplySettlement", mock.Anything, mock.AnythingOfType("*repository.Settlement")).
		Run(func(args mock.Arguments) {
			applied = args.Get(1).(*repository.Settlement)
		}).Return(nil)

	svc := newService(loanRepo, repaymentRepo)
	settled, err := svc.MakePayment(context.Background(), target.ID, paid)

	require.NoError(t, err)
	assert.True(t, settled.Amount.Equal(paid))
	assert.Equal(t, domain.RepaymentStatePaid, settled.State)

	require.NotNil(t, applied)
	require.Len(t, applied.Redistributed, 2)
	assert.False(t, applied.MarkLoanPaid)

	// Remaining installments absorb exactly 10000.00 - 3334.00.
	sum := applied.Redistributed[0].Amount.Add(applied.Redistributed[1].Amount)
	assert.True(t, sum.Equal(decimal.RequireFromString("6666.00")), "got %s", sum)
	assert.Equal(t, "3333.00", applied.Redistributed[0].Amount.StringFixed(2))
	assert.Equal(t, "3333.00", applied.Redistributed[1].Amount.StringFixed(2))
}

func TestMakePaymentLastInstallmentSettlesLoan(t *testing.T) {
	loan, repayments := approvedLoan(10000, 3)
	repayments[0].State = domain.RepaymentStatePaid
	repayments[1].State = domain.RepaymentStatePaid
	target := repayments[2]

	loanRepo := new(mocks.MockLoanRepository)
	repaymentRepo := new(mocks.MockRepaymentRepository)

	repaymentRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
	loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	repaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(repayments, nil)
	repaymentRepo.On("ApplySettlement", mock.Anything,
		mock.MatchedBy(func(s *repository.Settlement) bool {
			return s.Settled.ID == target.ID && s.MarkLoanPaid && len(s.Redistributed) == 0
		}),
	).Return(nil)

	svc := newService(loanRepo, repaymentRepo)
	settled, err := svc.MakePayment(context.Background(), target.ID, decimal.RequireFromString("3333.34"))

	require.NoError(t, err)
	assert.Equal(t, domain.RepaymentStatePaid, settled.State)
	repaymentRepo.AssertExpectations(t)
}

func TestMakePaymentValidationFailures(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(loan *domain.LoanApplication, repayments []*domain.Repayment) (target *domain.Repayment, amount decimal.Decimal)
		expectedCode string
	}{
		{
			name: "already settled",
			mutate: func(loan *domain.LoanApplication, repayments []*domain.Repayment) (*domain.Repayment, decimal.Decimal) {
				repayments[0].State = domain.RepaymentStatePaid
				return repayments[0], repayments[0].Amount
			},
			expectedCode: apperrors.ErrCodeAlreadySettled,
		},
		{
			name: "loan not approved",
			mutate: func(loan *domain.LoanApplication, repayments []*domain.Repayment) (*domain.Repayment, decimal.Decimal) {
				loan.State = domain.LoanStatePending
				return repayments[0], repayments[0].Amount
			},
			expectedCode: apperrors.ErrCodeLoanNotApproved,
		},
		{
			name: "out of order",
			mutate: func(loan *domain.LoanApplication, repayments []*domain.Repayment) (*domain.Repayment, decimal.Decimal) {
				return repayments[2], repayments[2].Amount
			},
			expectedCode: apperrors.ErrCodeOutOfOrderPayment,
		},
		{
			name: "partial payment",
			mutate: func(loan *domain.LoanApplication, repayments []*domain.Repayment) (*domain.Repayment, decimal.Decimal) {
				return repayments[0], decimal.NewFromInt(100)
			},
			expectedCode: apperrors.ErrCodeAmountDecreased,
		},
		{
			name: "amount exceeds pending balance",
			mutate: func(loan *domain.LoanApplication, repayments []*domain.Repayment) (*domain.Repayment, decimal.Decimal) {
				return repayments[0], decimal.NewFromInt(20000)
			},
			expectedCode: apperrors.ErrCodeAmountExceedsLoan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan, repayments := approvedLoan(10000, 3)
			target, amount := tt.mutate(loan, repayments)

			loanRepo := new(mocks.MockLoanRepository)
			repaymentRepo := new(mocks.MockRepaymentRepository)
			repaymentRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
			loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
			repaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(repayments, nil)

			svc := newService(loanRepo, repaymentRepo)
			_, err := svc.MakePayment(context.Background(), target.ID, amount)

			require.Error(t, err)
			var businessErr *apperrors.BusinessError
			require.ErrorAs(t, err, &businessErr)
			assert.Equal(t, tt.expectedCode, businessErr.Code)

			// Validation failures must never reach the write path.
			repaymentRepo.AssertNotCalled(t, "ApplySettlement")
		})
	}
}

func TestMakePaymentRepaymentNotFound(t *testing.T) {
	loanRepo := new(mocks.MockLoanRepository)
	repaymentRepo := new(mocks.MockRepaymentRepository)

	missingID := uuid.New()
	repaymentRepo.On("GetByID", mock.Anything, missingID).Return(nil, sql.ErrNoRows)

	svc := newService(loanRepo, repaymentRepo)
	_, err := svc.MakePayment(context.Background(), missingID, decimal.NewFromInt(100))

	require.Error(t, err)
	var businessErr *apperrors.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, apperrors.ErrCodeRepaymentNotFound, businessErr.Code)
}

func TestSetLoanState(t *testing.T) {
	loan, repayments := approvedLoan(1000, 3)
	loan.State = domain.LoanStatePending

	loanRepo := new(mocks.MockLoanRepository)
	repaymentRepo := new(mocks.MockRepaymentRepository)

	loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	loanRepo.On("UpdateState", mock.Anything, loan.ID, domain.LoanStateApproved).Return(nil)
	repaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(repayments, nil)

	svc := newService(loanRepo, repaymentRepo)
	resp, err := svc.SetLoanState(context.Background(), loan.ID, domain.LoanStateApproved)

	require.NoError(t, err)
	assert.Equal(t, domain.LoanStateApproved, resp.Loan.State)
	loanRepo.AssertExpectations(t)
}

func TestSetLoanStateNotFound(t *testing.T) {
	loanRepo := new(mocks.MockLoanRepository)
	repaymentRepo := new(mocks.MockRepaymentRepository)

	missingID := uuid.New()
	loanRepo.On("GetByID", mock.Anything, missingID).Return(nil, sql.ErrNoRows)

	svc := newService(loanRepo, repaymentRepo)
	_, err := svc.SetLoanState(context.Background(), missingID, domain.LoanStateApproved)

	require.Error(t, err)
	var businessErr *apperrors.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, apperrors.ErrCodeLoanNotFound, businessErr.Code)
}

func TestGetLoanDerivedFields(t *testing.T) {
	loan, repayments := approvedLoan(10000, 3)
	repayments[0].State = domain.RepaymentStatePaid

	loanRepo := new(mocks.MockLoanRepository)
	repaymentRepo := new(mocks.MockRepaymentRepository)

	loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	repaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(repayments, nil)

	svc := newService(loanRepo, repaymentRepo)
	resp, err := svc.GetLoan(context.Background(), loan.ID)

	require.NoError(t, err)
	assert.True(t, resp.PendingAmount.Equal(decimal.RequireFromString("6666.67")))
	assert.Equal(t, 2, resp.PendingTerms)
}
