package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segara/lending-engine/internal/config"
	"github.com/segara/lending-engine/internal/domain"
	"github.com/segara/lending-engine/internal/handler"
	"github.com/segara/lending-engine/internal/service"
	"github.com/segara/lending-engine/pkg/auth"
	"github.com/segara/lending-engine/tests/mocks"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Business.MinLoanAmount = "100.00"
	cfg.Redis.CacheTTL = "5m"
	return cfg
}

func newLoanHandler(loanRepo *mocks.MockLoanRepository, repaymentRepo *mocks.MockRepaymentRepository) *handler.LoanHandler {
	svc := service.NewLoanService(loanRepo, repaymentRepo, nil, testConfig())
	return handler.NewLoanHandler(svc)
}

func withClaims(r *http.Request, userID uuid.UUID, isAdmin bool) *http.Request {
	claims := &auth.Claims{UserID: userID, IsAdmin: isAdmin}
	return r.WithContext(context.WithValue(r.Context(), auth.ClaimsKey, claims))
}

func TestCreateLoanHandler(t *testing.T) {
	userID := uuid.New()
	body, _ := json.Marshal(map[string]interface{}{
		"amount": "1000.00",
		"term":   3,
		"date":   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	t.Run("admin account is rejected", func(t *testing.T) {
		h := newLoanHandler(new(mocks.MockLoanRepository), new(mocks.MockRepaymentRepository))

		req := withClaims(httptest.NewRequest("POST", "/api/v1/loans", bytes.NewReader(body)), userID, true)
		rec := httptest.NewRecorder()
		h.CreateLoan(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("customer creates loan", func(t *testing.T) {
		loanRepo := new(mocks.MockLoanRepository)
		loanRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		h := newLoanHandler(loanRepo, new(mocks.MockRepaymentRepository))

		req := withClaims(httptest.NewRequest("POST", "/api/v1/loans", bytes.NewReader(body)), userID, false)
		rec := httptest.NewRecorder()
		h.CreateLoan(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("amount below floor maps to 400", func(t *testing.T) {
		h := newLoanHandler(new(mocks.MockLoanRepository), new(mocks.MockRepaymentRepository))

		lowBody, _ := json.Marshal(map[string]interface{}{
			"amount": "50.00",
			"term":   3,
			"date":   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		})
		req := withClaims(httptest.NewRequest("POST", "/api/v1/loans", bytes.NewReader(lowBody)), userID, false)
		rec := httptest.NewRecorder()
		h.CreateLoan(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMakePaymentHandler(t *testing.T) {
	userID := uuid.New()

	type fixture struct {
		loanRepo      *mocks.MockLoanRepository
		repaymentRepo *mocks.MockRepaymentRepository
		handler       *handler.LoanHandler
		target        *domain.Repayment
	}

	setup := func() *fixture {
		loan := &domain.LoanApplication{
			ID:     uuid.New(),
			UserID: userID,
			Amount: decimal.NewFromInt(10000),
			Term:   3,
			Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			State:  domain.LoanStateApproved,
		}
		repayments := domain.NewSchedule(loan.ID, loan.Amount, loan.Term, loan.Date)
		target := repayments[0]

		loanRepo := new(mocks.MockLoanRepository)
		repaymentRepo := new(mocks.MockRepaymentRepository)
		repaymentRepo.On("GetByID", mock.Anything, target.ID).Return(target, nil)
		loanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
		repaymentRepo.On("GetByLoanID", mock.Anything, loan.ID).Return(repayments, nil)

		return &fixture{
			loanRepo:      loanRepo,
			repaymentRepo: repaymentRepo,
			handler:       newLoanHandler(loanRepo, repaymentRepo),
			target:        target,
		}
	}

	newRequest := func(target *domain.Repayment, amount string, asUser uuid.UUID) *http.Request {
		body, _ := json.Marshal(map[string]string{"amount": amount})
		req := httptest.NewRequest("POST", "/api/v1/repayments/"+target.ID.String()+"/payment", bytes.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"repaymentId": target.ID.String()})
		return withClaims(req, asUser, false)
	}

	t.Run("owner settles installment", func(t *testing.T) {
		f := setup()
		f.repaymentRepo.On("ApplySettlement", mock.Anything, mock.Anything).Return(nil)

		rec := httptest.NewRecorder()
		f.handler.MakePayment(rec, newRequest(f.target, "3333.33", userID))

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("someone else's installment is forbidden", func(t *testing.T) {
		f := setup()

		rec := httptest.NewRecorder()
		f.handler.MakePayment(rec, newRequest(f.target, "3333.33", uuid.New()))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		f.repaymentRepo.AssertNotCalled(t, "ApplySettlement")
	})

	t.Run("partial payment maps to 400", func(t *testing.T) {
		f := setup()

		rec := httptest.NewRecorder()
		f.handler.MakePayment(rec, newRequest(f.target, "100.00", userID))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.repaymentRepo.AssertNotCalled(t, "ApplySettlement")
	})
}
