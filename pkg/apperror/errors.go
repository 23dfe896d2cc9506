package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError for propagation decisions.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindContention
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindContention:
		return "contention"
	case KindFatal:
		return "fatal"
	default:
		return "internal"
	}
}

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Kind       Kind   `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so errors.Is(err, apperror.ErrUserNotFound()) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string, httpStatus int, kind Kind) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Kind:       kind,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, kind Kind, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Kind:       kind,
		Err:        err,
	}
}

// KindOf returns the kind of err, or KindInternal if err is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// CodeOf returns the error code of err, or SYS_000 for foreign errors.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "SYS_000"
}

// IsValidation reports whether err is a domain validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsRetryable reports whether the caller may retry the request with backoff.
func IsRetryable(err error) bool {
	return KindOf(err) == KindContention
}

// ---- Request (REQ) ----

func ErrInvalidRequest(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest, KindValidation)
}

// ---- Users (USR) ----

func ErrUserNotFound() *AppError {
	return New("USR_001", "User not found", http.StatusNotFound, KindNotFound)
}

// ---- Accounts (ACC) ----

func ErrAccountNotFound() *AppError {
	return New("ACC_001", "Account not found", http.StatusNotFound, KindNotFound)
}

func ErrUserAccountMismatch() *AppError {
	return New("ACC_002", "Account does not belong to user", http.StatusForbidden, KindValidation)
}

func ErrAccountAlreadyClosed() *AppError {
	return New("ACC_003", "Account is already closed", http.StatusConflict, KindValidation)
}

func ErrBalanceNotEmpty() *AppError {
	return New("ACC_004", "Account balance is not empty", http.StatusConflict, KindValidation)
}

func ErrMaxAccountPerUser(limit int) *AppError {
	return New("ACC_005", fmt.Sprintf("A user may hold at most %d accounts", limit), http.StatusConflict, KindValidation)
}

// ---- Transactions (TXN) ----

func ErrTransactionNotFound() *AppError {
	return New("TXN_001", "Transaction not found", http.StatusNotFound, KindNotFound)
}

func ErrAmountExceedsBalance() *AppError {
	return New("TXN_002", "Amount exceeds account balance", http.StatusUnprocessableEntity, KindValidation)
}

func ErrTransactionAccountMismatch() *AppError {
	return New("TXN_003", "Transaction does not belong to account", http.StatusForbidden, KindValidation)
}

func ErrCancelMustBeFull() *AppError {
	return New("TXN_004", "Cancel amount must equal the original transaction amount", http.StatusUnprocessableEntity, KindValidation)
}

func ErrTransactionAlreadyCancelled() *AppError {
	return New("TXN_005", "Transaction is already cancelled", http.StatusConflict, KindValidation)
}

func ErrTransactionNotCancelable() *AppError {
	return New("TXN_006", "Only successful use transactions can be cancelled", http.StatusUnprocessableEntity, KindValidation)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests, KindContention)
}

// ---- System & Infrastructure (SYS) ----

func ErrLockTimeout(err error) *AppError {
	return Wrap("SYS_002", "Account is busy, retry later", http.StatusServiceUnavailable, KindContention, err)
}

func ErrLedgerWrite(err error) *AppError {
	return Wrap("SYS_003", "Failed to record transaction", http.StatusInternalServerError, KindFatal, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, KindInternal, err)
}
