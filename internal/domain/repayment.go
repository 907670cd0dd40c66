package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/segara/lending-engine/pkg/errors"
)

const (
	RepaymentStatePending = "PENDING"
	RepaymentStatePaid    = "PAID"
)

// Repayment represents one scheduled installment of a loan
type Repayment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	LoanID    uuid.UUID       `json:"loan_id" db:"loan_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	DueDate   time.Time       `json:"due_date" db:"due_date"`
	State     string          `json:"state" db:"state"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ValidatePayment runs the full pre-mutation check chain for paying the
// target installment. siblings must contain every repayment of the loan,
// the target included. No state is touched here.
func ValidatePayment(loan *LoanApplication, target *Repayment, siblings []*Repayment, amount decimal.Decimal) error {
	if target.State == RepaymentStatePaid {
		return apperrors.WrapAlreadySettled(target.ID.String())
	}

	if loan.State != LoanStateApproved {
		return apperrors.WrapLoanNotApproved(loan.ID.String())
	}

	for _, r := range siblings {
		if r.ID == target.ID {
			continue
		}
		if r.State == RepaymentStatePending && r.DueDate.Before(target.DueDate) {
			return apperrors.WrapOutOfOrderPayment(r.ID.String())
		}
	}

	if amount.LessThan(target.Amount) {
		return apperrors.WrapAmountDecreased(target.Amount.StringFixed(2), amount.StringFixed(2))
	}

	if amount.GreaterThan(loan.PendingAmount(siblings)) {
		return apperrors.WrapAmountExceedsLoan(amount.StringFixed(2))
	}

	return nil
}
