package ports

//go:generate mockgen -source=services.go -destination=mocks/services.go -package=mocks

import (
	"context"
	"time"

	"account-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// AccountLocker hands out exclusive per-key leases.
// Acquire blocks until the key is free, ctx is done or the configured wait
// elapses. Waiters on one key are served in arrival order. Not reentrant.
type AccountLocker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Lease is a held lock. Release must be called exactly once.
type Lease interface {
	Release(ctx context.Context) error
}

// TransactionCache is a read-through cache of immutable ledger entries.
type TransactionCache interface {
	// Get returns nil on a miss.
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	Set(ctx context.Context, txn *domain.Transaction, ttl time.Duration) error
}

// --- Service Ports (Business Logic) ---

// BalanceService performs balance mutations under the account lock.
type BalanceService interface {
	UseBalance(ctx context.Context, req UseBalanceRequest) (*domain.Transaction, error)
	CancelBalance(ctx context.Context, req CancelBalanceRequest) (*domain.Transaction, error)
	QueryTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error)
}

// UseBalanceRequest holds validated input for a withdrawal.
type UseBalanceRequest struct {
	UserID        uuid.UUID
	AccountNumber string
	Amount        int64
}

// CancelBalanceRequest holds validated input for cancelling a prior use.
type CancelBalanceRequest struct {
	TransactionID string
	AccountNumber string
	Amount        int64
}

// AccountService manages the account lifecycle.
type AccountService interface {
	CreateAccount(ctx context.Context, userID uuid.UUID, initialBalance int64) (*domain.Account, error)
	CloseAccount(ctx context.Context, userID uuid.UUID, accountNumber string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// UserService manages account users.
type UserService interface {
	CreateUser(ctx context.Context, name string) (*domain.AccountUser, error)
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
