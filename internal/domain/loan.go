package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatePending  = "PENDING"
	LoanStateApproved = "APPROVED"
	LoanStateRejected = "REJECTED"
	LoanStatePaid     = "PAID"
)

// LoanApplication represents a customer's loan application
type LoanApplication struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Term      int             `json:"term" db:"term"`
	Date      time.Time       `json:"date" db:"date"`
	State     string          `json:"state" db:"state"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// PendingAmount returns the part of the principal not paid yet.
// Always derived from the repayment rows, never stored.
func (l *LoanApplication) PendingAmount(repayments []*Repayment) decimal.Decimal {
	paid := decimal.Zero
	for _, r := range repayments {
		if r.State == RepaymentStatePaid {
			paid = paid.Add(r.Amount)
		}
	}
	return l.Amount.Sub(paid)
}

// PendingTerms returns the number of repayments still outstanding.
func (l *LoanApplication) PendingTerms(repayments []*Repayment) int {
	count := 0
	for _, r := range repayments {
		if r.State == RepaymentStatePending {
			count++
		}
	}
	return count
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Term   int             `json:"term" validate:"required,gt=0"`
	Date   time.Time       `json:"date" validate:"required"`
}

type LoanDecisionRequest struct {
	State string `json:"state" validate:"required,oneof=APPROVED REJECTED"`
}

type MakePaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type LoanResponse struct {
	Loan          *LoanApplication `json:"loan"`
	Repayments    []*Repayment     `json:"repayments"`
	PendingAmount decimal.Decimal  `json:"pending_amount"`
	PendingTerms  int              `json:"pending_terms"`
}
