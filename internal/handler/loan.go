package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/segara/lending-engine/internal/domain"
	"github.com/segara/lending-engine/internal/service"
	"github.com/segara/lending-engine/pkg/auth"
	"github.com/segara/lending-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())
	if claims.IsAdmin {
		response.Forbidden(w, "Loan can be applied using customer account only")
		return
	}

	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), claims.UserID, &request)
	if err != nil {
		handleError(w, err)
		return
	}

	response.Created(w, loan)
}

// ListLoans handles GET /api/v1/loans. Admins see every loan, customers
// only their own.
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())

	var (
		loans []*domain.LoanResponse
		err   error
	)
	if claims.IsAdmin {
		loans, err = h.service.ListLoans(r.Context())
	} else {
		loans, err = h.service.ListLoansByUser(r.Context(), claims.UserID)
	}
	if err != nil {
		handleError(w, err)
		return
	}

	response.Success(w, loans)
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		handleError(w, err)
		return
	}

	claims := auth.FromContext(r.Context())
	if !claims.IsAdmin && loan.Loan.UserID != claims.UserID {
		response.Forbidden(w, "Unauthorized Access. Not enough permissions")
		return
	}

	response.Success(w, loan)
}

// DecideLoan handles PUT /api/v1/loans/{loanId}/decision (admin only)
func (h *LoanHandler) DecideLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	var request domain.LoanDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	loan, err := h.service.SetLoanState(r.Context(), loanID, request.State)
	if err != nil {
		handleError(w, err)
		return
	}

	response.Success(w, loan)
}

// MakePayment handles POST /api/v1/repayments/{repaymentId}/payment
func (h *LoanHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	repaymentID, err := uuid.Parse(mux.Vars(r)["repaymentId"])
	if err != nil {
		response.BadRequest(w, "Invalid repayment ID", err)
		return
	}

	var request domain.MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	repayment, err := h.service.GetRepayment(r.Context(), repaymentID)
	if err != nil {
		handleError(w, err)
		return
	}

	claims := auth.FromContext(r.Context())
	if !claims.IsAdmin {
		loan, err := h.service.GetLoan(r.Context(), repayment.LoanID)
		if err != nil {
			handleError(w, err)
			return
		}
		if loan.Loan.UserID != claims.UserID {
			response.Forbidden(w, "Authorization Error!")
			return
		}
	}

	settled, err := h.service.MakePayment(r.Context(), repaymentID, request.Amount)
	if err != nil {
		handleError(w, err)
		return
	}

	response.Success(w, settled)
}
