package handler

import (
	"errors"
	"net/http"

	apperrors "github.com/segara/lending-engine/pkg/errors"
	"github.com/segara/lending-engine/pkg/response"
)

var statusByCode = map[string]int{
	apperrors.ErrCodePrincipalTooLow:    http.StatusBadRequest,
	apperrors.ErrCodeLoanNotApproved:    http.StatusBadRequest,
	apperrors.ErrCodeAlreadySettled:     http.StatusBadRequest,
	apperrors.ErrCodeOutOfOrderPayment:  http.StatusBadRequest,
	apperrors.ErrCodeAmountDecreased:    http.StatusBadRequest,
	apperrors.ErrCodeAmountExceedsLoan:  http.StatusBadRequest,
	apperrors.ErrCodeEmailRegistered:    http.StatusBadRequest,
	apperrors.ErrCodeInvalidCredentials: http.StatusForbidden,
	apperrors.ErrCodeLoanNotFound:       http.StatusNotFound,
	apperrors.ErrCodeRepaymentNotFound:  http.StatusNotFound,
	apperrors.ErrCodeUserNotFound:       http.StatusNotFound,
}

// handleError translates domain errors to HTTP statuses. Anything without
// a mapping is an infrastructure fault.
func handleError(w http.ResponseWriter, err error) {
	var businessErr *apperrors.BusinessError
	if errors.As(err, &businessErr) {
		if status, ok := statusByCode[businessErr.Code]; ok {
			response.Error(w, status, businessErr.Message, businessErr.Err)
			return
		}
	}

	response.InternalServerError(w, "Internal server error", err)
}
