package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segara/lending-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.LoanApplication, repayments []*domain.Repayment) error {
	loanQuery := `
		INSERT INTO loans (id, user_id, amount, term, date, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	repaymentQuery := `
		INSERT INTO repayments (id, loan_id, amount, due_date, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	loan.CreatedAt = now
	loan.UpdatedAt = now

	_, err = tx.ExecContext(ctx, loanQuery,
		loan.ID,
		loan.UserID,
		loan.Amount,
		loan.Term,
		loan.Date,
		loan.State,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	for _, repayment := range repayments {
		repayment.CreatedAt = now
		repayment.UpdatedAt = now
		_, err = tx.ExecContext(ctx, repaymentQuery,
			repayment.ID,
			repayment.LoanID,
			repayment.Amount,
			repayment.DueDate,
			repayment.State,
			repayment.CreatedAt,
			repayment.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	query := `
		SELECT id, user_id, amount, term, date, state, created_at, updated_at
		FROM loans
		WHERE id = $1
	`

	var loan domain.LoanApplication
	err := r.db.GetContext(ctx, &loan, query, id)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context) ([]*domain.LoanApplication, error) {
	query := `
		SELECT id, user_id, amount, term, date, state, created_at, updated_at
		FROM loans
		ORDER BY state, created_at
	`

	var loans []*domain.LoanApplication
	err := r.db.SelectContext(ctx, &loans, query)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error) {
	query := `
		SELECT id, user_id, amount, term, date, state, created_at, updated_at
		FROM loans
		WHERE user_id = $1
		ORDER BY state, created_at
	`

	var loans []*domain.LoanApplication
	err := r.db.SelectContext(ctx, &loans, query, userID)
	if err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	query := `
		UPDATE loans
		SET state = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, state, time.Now())
	return err
}
