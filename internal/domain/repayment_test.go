package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/segara/lending-engine/pkg/errors"
)

func approvedLoanWithSchedule(t *testing.T, amount int64, term int) (*LoanApplication, []*Repayment) {
	t.Helper()

	loan := &LoanApplication{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(amount),
		Term:   term,
		Date:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		State:  LoanStateApproved,
	}
	return loan, NewSchedule(loan.ID, loan.Amount, loan.Term, loan.Date)
}

func TestValidatePayment(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal)
		expectedErr error
	}{
		{
			name: "valid exact payment on first installment",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				return repayments[0], repayments[0].Amount
			},
			expectedErr: nil,
		},
		{
			name: "already settled",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				repayments[0].State = RepaymentStatePaid
				return repayments[0], repayments[0].Amount
			},
			expectedErr: apperrors.ErrAlreadySettled,
		},
		{
			name: "loan not approved",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				loan.State = LoanStatePending
				return repayments[0], repayments[0].Amount
			},
			expectedErr: apperrors.ErrLoanNotApproved,
		},
		{
			name: "out of order payment",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				return repayments[1], repayments[1].Amount
			},
			expectedErr: apperrors.ErrOutOfOrderPayment,
		},
		{
			name: "second installment payable once first is settled",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				repayments[0].State = RepaymentStatePaid
				return repayments[1], repayments[1].Amount
			},
			expectedErr: nil,
		},
		{
			name: "amount below scheduled",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				return repayments[0], repayments[0].Amount.Sub(decimal.RequireFromString("0.01"))
			},
			expectedErr: apperrors.ErrAmountDecreased,
		},
		{
			name: "amount exceeds pending loan balance",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				return repayments[0], loan.Amount.Add(decimal.RequireFromString("0.01"))
			},
			expectedErr: apperrors.ErrAmountExceedsLoan,
		},
		{
			name: "overpayment within pending balance is valid",
			setup: func(loan *LoanApplication, repayments []*Repayment) (*Repayment, decimal.Decimal) {
				return repayments[0], repayments[0].Amount.Add(decimal.RequireFromString("0.67"))
			},
			expectedErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan, repayments := approvedLoanWithSchedule(t, 10000, 3)
			target, amount := tt.setup(loan, repayments)

			err := ValidatePayment(loan, target, repayments, amount)
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedErr), "expected %v, got %v", tt.expectedErr, err)
			}
		})
	}
}

func TestPendingAmount(t *testing.T) {
	loan, repayments := approvedLoanWithSchedule(t, 10000, 3)

	assert.True(t, loan.PendingAmount(repayments).Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 3, loan.PendingTerms(repayments))

	repayments[0].State = RepaymentStatePaid
	expected := decimal.NewFromInt(10000).Sub(repayments[0].Amount)
	assert.True(t, loan.PendingAmount(repayments).Equal(expected))
	assert.Equal(t, 2, loan.PendingTerms(repayments))

	for _, r := range repayments {
		r.State = RepaymentStatePaid
	}
	assert.True(t, loan.PendingAmount(repayments).IsZero())
	assert.Equal(t, 0, loan.PendingTerms(repayments))
}
