package domain

import (
	"strconv"
	"time"

	"account-ledger/pkg/apperror"

	"github.com/google/uuid"
)

// AccountStatus represents the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "ACTIVE"
	AccountStatusClosed AccountStatus = "CLOSED"
)

const (
	// FirstAccountNumber is issued when no account exists yet.
	FirstAccountNumber = "1000000000"
	// MaxAccountsPerUser caps how many accounts a single user may open.
	MaxAccountsPerUser = 10
)

// Account is a user's balance-holding account.
// Balance and Status are only mutated while the account lock is held.
type Account struct {
	ID            uuid.UUID     `json:"id"`
	UserID        uuid.UUID     `json:"user_id"`
	AccountNumber string        `json:"account_number"`
	Status        AccountStatus `json:"status"`
	Balance       int64         `json:"balance"`
	RegisteredAt  time.Time     `json:"registered_at"`
	ClosedAt      *time.Time    `json:"closed_at,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsActive returns true if the account accepts balance operations.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ValidateOwner checks that the account belongs to userID and is still open.
func (a *Account) ValidateOwner(userID uuid.UUID) error {
	if a.UserID != userID {
		return apperror.ErrUserAccountMismatch()
	}
	if !a.IsActive() {
		return apperror.ErrAccountAlreadyClosed()
	}
	return nil
}

// Use withdraws amount from the balance.
// The balance is left untouched when an error is returned.
func (a *Account) Use(amount int64, now time.Time) error {
	if amount <= 0 {
		return apperror.ErrInvalidRequest("amount must be positive")
	}
	if !a.IsActive() {
		return apperror.ErrAccountAlreadyClosed()
	}
	if amount > a.Balance {
		return apperror.ErrAmountExceedsBalance()
	}
	a.Balance -= amount
	a.UpdatedAt = now
	return nil
}

// Cancel restores amount to the balance.
func (a *Account) Cancel(amount int64, now time.Time) error {
	if amount < 0 {
		return apperror.ErrInvalidRequest("cancel amount must not be negative")
	}
	if !a.IsActive() {
		return apperror.ErrAccountAlreadyClosed()
	}
	a.Balance += amount
	a.UpdatedAt = now
	return nil
}

// Close moves the account to CLOSED. Only an empty, open account can be closed.
func (a *Account) Close(now time.Time) error {
	if !a.IsActive() {
		return apperror.ErrAccountAlreadyClosed()
	}
	if a.Balance != 0 {
		return apperror.ErrBalanceNotEmpty()
	}
	a.Status = AccountStatusClosed
	a.ClosedAt = &now
	a.UpdatedAt = now
	return nil
}

// NextAccountNumber returns the number following latest, or FirstAccountNumber
// when latest is empty.
func NextAccountNumber(latest string) (string, error) {
	if latest == "" {
		return FirstAccountNumber, nil
	}
	n, err := strconv.ParseInt(latest, 10, 64)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n+1, 10), nil
}

// LockKey is the lock key serializing balance changes on one account.
func LockKey(accountNumber string) string {
	return "account:" + accountNumber
}

// AccountNumberLockKey serializes account number allocation.
const AccountNumberLockKey = "account-number-seq"
