package ports

//go:generate mockgen -source=repositories.go -destination=mocks/repositories.go -package=mocks

import (
	"context"
	"math"

	"account-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository defines persistence operations for account users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.AccountUser) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AccountUser, error)
}

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
// Lookups return (nil, nil) when the row does not exist.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error)
	// Update persists balance, status and timestamps.
	Update(ctx context.Context, tx pgx.Tx, account *domain.Account) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	// LatestAccountNumber returns "" when no account exists.
	LatestAccountNumber(ctx context.Context) (string, error)
}

// TransactionRepository defines persistence operations for ledger entries.
// Entries are append-only.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	// CancelExists reports whether a successful CANCEL references originalID.
	CancelExists(ctx context.Context, tx pgx.Tx, originalID string) (bool, error)
	ListByAccount(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// Transaction listing bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (MaxPage-1)*MaxPageSize well inside a 32-bit int.
	MaxPage = 1_000_000
)

// TransactionListParams holds filter + pagination for listing transactions.
type TransactionListParams struct {
	AccountNumber string
	Page          int
	PageSize      int
}

// Normalized returns p with page and page size clamped to the listing bounds.
// Page is only raised to 1; callers reject pages past MaxPage via PageInRange.
func (p TransactionListParams) Normalized() TransactionListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// PageInRange reports whether the page number is addressable.
func (p TransactionListParams) PageInRange() bool {
	return p.Page <= MaxPage
}

// Offset returns the row offset for the requested page (1-based). It never
// goes negative; an offset that would overflow saturates at math.MaxInt.
func (p TransactionListParams) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
