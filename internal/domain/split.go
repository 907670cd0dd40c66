package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitEven divides amount into terms equal parts rounded to 2 decimal
// places. The last part absorbs the rounding remainder so the parts always
// sum to exactly amount.
func SplitEven(amount decimal.Decimal, terms int) []decimal.Decimal {
	even := amount.Div(decimal.NewFromInt(int64(terms))).Round(2)

	parts := make([]decimal.Decimal, terms)
	for i := range parts {
		parts[i] = even
	}
	parts[terms-1] = amount.Sub(even.Mul(decimal.NewFromInt(int64(terms - 1))))

	return parts
}

// NewSchedule builds the repayment schedule for a fresh loan: term
// installments of SplitEven(amount, term), due every 7 days starting 7 days
// after startDate.
func NewSchedule(loanID uuid.UUID, amount decimal.Decimal, term int, startDate time.Time) []*Repayment {
	parts := SplitEven(amount, term)

	repayments := make([]*Repayment, 0, term)
	for i, part := range parts {
		repayments = append(repayments, &Repayment{
			ID:      uuid.New(),
			LoanID:  loanID,
			Amount:  part,
			DueDate: startDate.AddDate(0, 0, 7*(i+1)),
			State:   RepaymentStatePending,
		})
	}

	return repayments
}

// Redistribute rewrites the amounts of the given pending repayments to an
// even split of amount, last-absorbs-remainder, preserving identities and
// due dates. terms must equal len(repayments); the caller guarantees this.
func Redistribute(amount decimal.Decimal, terms int, repayments []*Repayment) {
	parts := SplitEven(amount, terms)
	for i, r := range repayments {
		r.Amount = parts[i]
	}
}
