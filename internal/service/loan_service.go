package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segara/lending-engine/internal/config"
	"github.com/segara/lending-engine/internal/domain"
	"github.com/segara/lending-engine/internal/repository"
	apperrors "github.com/segara/lending-engine/pkg/errors"
)

type LoanService struct {
	loanRepo      repository.LoanRepository
	repaymentRepo repository.RepaymentRepository
	redis         *redis.Client
	config        *config.Config
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	repaymentRepo repository.RepaymentRepository,
	redis *redis.Client,
	config *config.Config,
) *LoanService {
	return &LoanService{
		loanRepo:      loanRepo,
		repaymentRepo: repaymentRepo,
		redis:         redis,
		config:        config,
	}
}

// CreateLoan creates a new loan application with its repayment schedule.
// The loan and all installments are persisted as one atomic unit.
func (s *LoanService) CreateLoan(ctx context.Context, userID uuid.UUID, request *domain.CreateLoanRequest) (*domain.LoanResponse, error) {
	minAmount := s.config.GetMinLoanAmount()
	if request.Amount.LessThan(minAmount) {
		return nil, apperrors.WrapPrincipalTooLow(request.Amount.StringFixed(2), minAmount.StringFixed(2))
	}

	loan := &domain.LoanApplication{
		ID:     uuid.New(),
		UserID: userID,
		Amount: request.Amount,
		Term:   request.Term,
		Date:   request.Date,
		State:  domain.LoanStatePending,
	}

	repayments := domain.NewSchedule(loan.ID, loan.Amount, loan.Term, loan.Date)

	if err := s.loanRepo.Create(ctx, loan, repayments); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return &domain.LoanResponse{
		Loan:          loan,
		Repayments:    repayments,
		PendingAmount: loan.Amount,
		PendingTerms:  loan.Term,
	}, nil
}

// SetLoanState overwrites the state of a loan. Authorization is the
// caller's concern; no transition legality is enforced here.
func (s *LoanService) SetLoanState(ctx context.Context, loanID uuid.UUID, state string) (*domain.LoanResponse, error) {
	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	if err := s.loanRepo.UpdateState(ctx, loanID, state); err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	loan.State = state

	s.invalidateCache(ctx, loanID)

	return s.buildResponse(ctx, loan)
}

// MakePayment settles one installment. Validation runs before any
// mutation; all writes of a single payment commit atomically.
func (s *LoanService) MakePayment(ctx context.Context, repaymentID uuid.UUID, amount decimal.Decimal) (*domain.Repayment, error) {
	repayment, err := s.repaymentRepo.GetByID(ctx, repaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapRepaymentNotFound(repaymentID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	loan, err := s.loanRepo.GetByID(ctx, repayment.LoanID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	siblings, err := s.repaymentRepo.GetByLoanID(ctx, loan.ID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	if err := domain.ValidatePayment(loan, repayment, siblings, amount); err != nil {
		return nil, err
	}

	scheduled := repayment.Amount
	pendingAmount := loan.PendingAmount(siblings)
	pendingTermsAfter := loan.PendingTerms(siblings) - 1

	repayment.Amount = amount
	settlement := &repository.Settlement{Settled: repayment}

	switch {
	case pendingTermsAfter == 0:
		// Last outstanding installment settles the loan itself.
		settlement.MarkLoanPaid = true
	case amount.Equal(scheduled):
		// Exact payment, the rest of the schedule is untouched.
	default:
		// Overpayment: redistribute the new remaining balance over the
		// still-pending installments.
		remaining := pendingAmount.Sub(amount)
		others := make([]*domain.Repayment, 0, pendingTermsAfter)
		for _, r := range siblings {
			if r.ID != repayment.ID && r.State == domain.RepaymentStatePending {
				others = append(others, r)
			}
		}
		domain.Redistribute(remaining, pendingTermsAfter, others)
		settlement.Redistributed = others
	}

	if err := s.repaymentRepo.ApplySettlement(ctx, settlement); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapAlreadySettled(repaymentID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	repayment.State = domain.RepaymentStatePaid

	s.invalidateCache(ctx, loan.ID)

	zap.L().Info("repayment settled",
		zap.String("loan_id", loan.ID.String()),
		zap.String("repayment_id", repayment.ID.String()),
		zap.String("amount", amount.StringFixed(2)),
		zap.Bool("loan_paid", settlement.MarkLoanPaid),
	)

	return repayment, nil
}

// GetRepayment returns one installment by ID.
func (s *LoanService) GetRepayment(ctx context.Context, repaymentID uuid.UUID) (*domain.Repayment, error) {
	repayment, err := s.repaymentRepo.GetByID(ctx, repaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapRepaymentNotFound(repaymentID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}
	return repayment, nil
}

// GetLoan returns the loan with its schedule and derived pending
// amount/terms, read through the cache when available.
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.LoanResponse, error) {
	if cached := s.cacheGet(ctx, loanID); cached != nil {
		return cached, nil
	}

	loan, err := s.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.WrapLoanNotFound(loanID.String())
		}
		return nil, apperrors.WrapDatabaseError(err)
	}

	resp, err := s.buildResponse(ctx, loan)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, resp)

	return resp, nil
}

// ListLoans returns every loan in the system (admin view).
func (s *LoanService) ListLoans(ctx context.Context) ([]*domain.LoanResponse, error) {
	loans, err := s.loanRepo.List(ctx)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return s.buildResponses(ctx, loans)
}

// ListLoansByUser returns the loans owned by one user.
func (s *LoanService) ListLoansByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LoanResponse, error) {
	loans, err := s.loanRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}
	return s.buildResponses(ctx, loans)
}

func (s *LoanService) buildResponse(ctx context.Context, loan *domain.LoanApplication) (*domain.LoanResponse, error) {
	repayments, err := s.repaymentRepo.GetByLoanID(ctx, loan.ID)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err)
	}

	return &domain.LoanResponse{
		Loan:          loan,
		Repayments:    repayments,
		PendingAmount: loan.PendingAmount(repayments),
		PendingTerms:  loan.PendingTerms(repayments),
	}, nil
}

func (s *LoanService) buildResponses(ctx context.Context, loans []*domain.LoanApplication) ([]*domain.LoanResponse, error) {
	responses := make([]*domain.LoanResponse, 0, len(loans))
	for _, loan := range loans {
		resp, err := s.buildResponse(ctx, loan)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func cacheKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan:%s", loanID)
}

func (s *LoanService) cacheGet(ctx context.Context, loanID uuid.UUID) *domain.LoanResponse {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, cacheKey(loanID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("loan cache read failed", zap.Error(err))
		}
		return nil
	}

	var resp domain.LoanResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil
	}
	return &resp
}

func (s *LoanService) cacheSet(ctx context.Context, resp *domain.LoanResponse) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}

	if err := s.redis.Set(ctx, cacheKey(resp.Loan.ID), data, s.config.GetCacheTTL()).Err(); err != nil {
		zap.L().Warn("loan cache write failed", zap.Error(err))
	}
}

func (s *LoanService) invalidateCache(ctx context.Context, loanID uuid.UUID) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Del(ctx, cacheKey(loanID)).Err(); err != nil {
		zap.L().Warn("loan cache invalidation failed", zap.Error(err))
	}
}
