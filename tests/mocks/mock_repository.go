package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segara/lending-engine/internal/domain"
	"github.com/segara/lending-engine/internal/repository"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.LoanApplication, repayments []*domain.Repayment) error {
	args := m.Called(ctx, loan, repayments)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LoanApplication, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *MockLoanRepository) List(ctx context.Context) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *MockLoanRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *MockLoanRepository) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

type MockRepaymentRepository struct {
	mock.Mock
}

func (m *MockRepaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Repayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Repayment), args.Error(1)
}

func (m *MockRepaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Repayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}

func (m *MockRepaymentRepository) ApplySettlement(ctx context.Context, settlement *repository.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *MockRepaymentRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.Repayment, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}

func (m *MockRepaymentRepository) ListDueWithin(ctx context.Context, from, to time.Time) ([]*domain.Repayment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repayment), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
