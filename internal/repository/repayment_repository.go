package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segara/lending-engine/internal/domain"
)

type repaymentRepository struct {
	db *sqlx.DB
}

func NewRepaymentRepository(db *sqlx.DB) RepaymentRepository {
	return &repaymentRepository{db: db}
}

func (r *repaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, amount, due_date, state, created_at, updated_at
		FROM repayments
		WHERE id = $1
	`

	var repayment domain.Repayment
	err := r.db.GetContext(ctx, &repayment, query, id)
	if err != nil {
		return nil, err
	}

	return &repayment, nil
}

func (r *repaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, amount, due_date, state, created_at, updated_at
		FROM repayments
		WHERE loan_id = $1
		ORDER BY due_date
	`

	var repayments []*domain.Repayment
	err := r.db.SelectContext(ctx, &repayments, query, loanID)
	if err != nil {
		return nil, err
	}

	return repayments, nil
}

func (r *repaymentRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, amount, due_date, state, created_at, updated_at
		FROM repayments
		WHERE state = 'PENDING' AND due_date < $1
		ORDER BY due_date
	`

	var repayments []*domain.Repayment
	err := r.db.SelectContext(ctx, &repayments, query, asOf)
	if err != nil {
		return nil, err
	}

	return repayments, nil
}

func (r *repaymentRepository) ListDueWithin(ctx context.Context, from, to time.Time) ([]*domain.Repayment, error) {
	query := `
		SELECT id, loan_id, amount, due_date, state, created_at, updated_at
		FROM repayments
		WHERE state = 'PENDING' AND due_date >= $1 AND due_date <= $2
		ORDER BY due_date
	`

	var repayments []*domain.Repayment
	err := r.db.SelectContext(ctx, &repayments, query, from, to)
	if err != nil {
		return nil, err
	}

	return repayments, nil
}

func (r *repaymentRepository) ApplySettlement(ctx context.Context, settlement *Settlement) error {
	settleQuery := `
		UPDATE repayments
		SET amount = $2, state = $3, updated_at = $4
		WHERE id = $1 AND state = 'PENDING'
	`
	redistributeQuery := `
		UPDATE repayments
		SET amount = $2, updated_at = $3
		WHERE id = $1 AND state = 'PENDING'
	`
	loanPaidQuery := `
		UPDATE loans
		SET state = $2, updated_at = $3
		WHERE id = $1
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serialize concurrent payments on the same loan.
	_, err = tx.ExecContext(ctx, `SELECT id FROM loans WHERE id = $1 FOR UPDATE`, settlement.Settled.LoanID)
	if err != nil {
		return err
	}

	now := time.Now()

	res, err := tx.ExecContext(ctx, settleQuery,
		settlement.Settled.ID,
		settlement.Settled.Amount,
		domain.RepaymentStatePaid,
		now,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Lost a race: the row was settled by a concurrent payment.
		return sql.ErrNoRows
	}

	for _, repayment := range settlement.Redistributed {
		_, err = tx.ExecContext(ctx, redistributeQuery, repayment.ID, repayment.Amount, now)
		if err != nil {
			return err
		}
	}

	if settlement.MarkLoanPaid {
		_, err = tx.ExecContext(ctx, loanPaidQuery, settlement.Settled.LoanID, domain.LoanStatePaid, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
