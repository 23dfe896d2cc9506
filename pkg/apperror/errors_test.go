package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("TXN_002", "Amount exceeds account balance", http.StatusUnprocessableEntity, KindValidation),
			expected: "[TXN_002] Amount exceeds account balance",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, KindInternal, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := InternalError(inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, ErrUserNotFound().Unwrap())
}

func TestAppError_IsMatchesCode(t *testing.T) {
	wrapped := fmt.Errorf("use balance: %w", ErrAmountExceedsBalance())

	assert.True(t, errors.Is(wrapped, ErrAmountExceedsBalance()))
	assert.False(t, errors.Is(wrapped, ErrCancelMustBeFull()))
}

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
		kind       Kind
	}{
		{"InvalidRequest", ErrInvalidRequest("bad"), "REQ_001", 400, KindValidation},
		{"UserNotFound", ErrUserNotFound(), "USR_001", 404, KindNotFound},
		{"AccountNotFound", ErrAccountNotFound(), "ACC_001", 404, KindNotFound},
		{"UserAccountMismatch", ErrUserAccountMismatch(), "ACC_002", 403, KindValidation},
		{"AccountAlreadyClosed", ErrAccountAlreadyClosed(), "ACC_003", 409, KindValidation},
		{"BalanceNotEmpty", ErrBalanceNotEmpty(), "ACC_004", 409, KindValidation},
		{"MaxAccountPerUser", ErrMaxAccountPerUser(10), "ACC_005", 409, KindValidation},
		{"TransactionNotFound", ErrTransactionNotFound(), "TXN_001", 404, KindNotFound},
		{"AmountExceedsBalance", ErrAmountExceedsBalance(), "TXN_002", 422, KindValidation},
		{"TransactionAccountMismatch", ErrTransactionAccountMismatch(), "TXN_003", 403, KindValidation},
		{"CancelMustBeFull", ErrCancelMustBeFull(), "TXN_004", 422, KindValidation},
		{"AlreadyCancelled", ErrTransactionAlreadyCancelled(), "TXN_005", 409, KindValidation},
		{"NotCancelable", ErrTransactionNotCancelable(), "TXN_006", 422, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.kind, tt.err.Kind)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")

	dbErr := InternalError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	lockErr := ErrLockTimeout(inner)
	assert.Equal(t, "SYS_002", lockErr.Code)
	assert.Equal(t, 503, lockErr.HTTPStatus)
	assert.True(t, IsRetryable(lockErr))

	ledgerErr := ErrLedgerWrite(inner)
	assert.Equal(t, "SYS_003", ledgerErr.Code)
	assert.Equal(t, KindFatal, ledgerErr.Kind)
	assert.False(t, IsRetryable(ledgerErr))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("ctx: %w", ErrCancelMustBeFull())))
	assert.Equal(t, KindNotFound, KindOf(ErrAccountNotFound()))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	assert.True(t, IsValidation(ErrUserAccountMismatch()))
	assert.False(t, IsValidation(ErrTransactionNotFound()))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "ACC_003", CodeOf(ErrAccountAlreadyClosed()))
	assert.Equal(t, "SYS_000", CodeOf(errors.New("boom")))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "contention", KindContention.String())
	assert.Equal(t, "internal", Kind(99).String())
}
