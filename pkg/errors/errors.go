package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrPrincipalTooLow    = errors.New("loan amount requested is too low")
	ErrLoanNotApproved    = errors.New("cannot repay an unapproved loan")
	ErrAlreadySettled     = errors.New("repayment is complete, no need to pay again")
	ErrOutOfOrderPayment  = errors.New("earlier repayments must be paid first")
	ErrAmountDecreased    = errors.New("amount paid must be greater than or equal to the repayment amount")
	ErrAmountExceedsLoan  = errors.New("amount paid is more than the pending loan amount")
	ErrLoanNotFound       = errors.New("loan not found")
	ErrRepaymentNotFound  = errors.New("repayment not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("user credentials did not match")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodePrincipalTooLow    = "PRINCIPAL_TOO_LOW"
	ErrCodeLoanNotApproved    = "LOAN_NOT_APPROVED"
	ErrCodeAlreadySettled     = "ALREADY_SETTLED"
	ErrCodeOutOfOrderPayment  = "OUT_OF_ORDER_PAYMENT"
	ErrCodeAmountDecreased    = "AMOUNT_DECREASED"
	ErrCodeAmountExceedsLoan  = "AMOUNT_EXCEEDS_LOAN"
	ErrCodeLoanNotFound       = "LOAN_NOT_FOUND"
	ErrCodeRepaymentNotFound  = "REPAYMENT_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeEmailRegistered    = "EMAIL_ALREADY_REGISTERED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeDatabaseError      = "DATABASE_ERROR"
	ErrCodeCacheError         = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapPrincipalTooLow(amount, floor string) *BusinessError {
	return NewBusinessError(
		ErrCodePrincipalTooLow,
		fmt.Sprintf("Requested amount %s is below the minimum loan amount %s", amount, floor),
		ErrPrincipalTooLow,
	)
}

func WrapLoanNotApproved(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotApproved,
		fmt.Sprintf("Loan %s is not approved for repayment", loanID),
		ErrLoanNotApproved,
	)
}

func WrapAlreadySettled(repaymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadySettled,
		fmt.Sprintf("Repayment %s is already paid", repaymentID),
		ErrAlreadySettled,
	)
}

func WrapOutOfOrderPayment(pendingID string) *BusinessError {
	return NewBusinessError(
		ErrCodeOutOfOrderPayment,
		fmt.Sprintf("Repayment %s with an earlier due date is still pending", pendingID),
		ErrOutOfOrderPayment,
	)
}

func WrapAmountDecreased(expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodeAmountDecreased,
		fmt.Sprintf("Amount paid %s is less than the scheduled repayment amount %s", actual, expected),
		ErrAmountDecreased,
	)
}

func WrapAmountExceedsLoan(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeAmountExceedsLoan,
		fmt.Sprintf("Amount paid %s exceeds the pending loan amount", amount),
		ErrAmountExceedsLoan,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapRepaymentNotFound(repaymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeRepaymentNotFound,
		fmt.Sprintf("Repayment with ID %s not found", repaymentID),
		ErrRepaymentNotFound,
	)
}

func WrapUserNotFound(userID string) *BusinessError {
	return NewBusinessError(
		ErrCodeUserNotFound,
		fmt.Sprintf("User with ID %s not found", userID),
		ErrUserNotFound,
	)
}

func WrapEmailRegistered(email string) *BusinessError {
	return NewBusinessError(
		ErrCodeEmailRegistered,
		fmt.Sprintf("Email %s is already registered, please login instead", email),
		ErrEmailRegistered,
	)
}

func WrapInvalidCredentials() *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidCredentials,
		"User credentials did not match, please try again",
		ErrInvalidCredentials,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
