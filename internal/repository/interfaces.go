package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/segara/lending-engine/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create persists a loan together with its repayment schedule in one
	// transaction
	Create(ctx context.Context, loan *domain.LoanApplication, repayments []*domain.Repayment) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error)

	// List retrieves all loans
	List(ctx context.Context) ([]*domain.LoanApplication, error)

	// ListByUserID retrieves all loans of a user
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error)

	// UpdateState overwrites the loan state
	UpdateState(ctx context.Context, id uuid.UUID, state string) error
}

// Settlement describes the writes of one payment: the installment being
// settled, siblings whose amounts were redistributed, and whether the loan
// transitions to PAID. Applied atomically.
type Settlement struct {
	Settled       *domain.Repayment
	Redistributed []*domain.Repayment
	MarkLoanPaid  bool
}

// RepaymentRepository defines the interface for repayment data operations
type RepaymentRepository interface {
	// GetByID retrieves a repayment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Repayment, error)

	// GetByLoanID retrieves all repayments of a loan ordered by due date
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error)

	// ApplySettlement applies all writes of a payment in one transaction
	ApplySettlement(ctx context.Context, settlement *Settlement) error

	// ListOverdue retrieves pending repayments past due as of the given date
	ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.Repayment, error)

	// ListDueWithin retrieves pending repayments due inside the window
	ListDueWithin(ctx context.Context, from, to time.Time) ([]*domain.Repayment, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create persists a new user
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
