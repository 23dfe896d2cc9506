package memory

import (
	"context"
	"fmt"
	"sort"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct{ store *Store }

// NewUserRepo creates a UserRepo over store.
func NewUserRepo(store *Store) *UserRepo { return &UserRepo{store: store} }

func (r *UserRepo) Create(_ context.Context, u *domain.AccountUser) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.users[u.ID]; ok {
		return fmt.Errorf("insert user: %s already exists", u.ID)
	}
	r.store.users[u.ID] = *u
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.AccountUser, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct{ store *Store }

// NewAccountRepo creates an AccountRepo over store.
func NewAccountRepo(store *Store) *AccountRepo { return &AccountRepo{store: store} }

func (r *AccountRepo) Create(_ context.Context, a *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.accounts[a.AccountNumber]; ok {
		return fmt.Errorf("insert account: number %s already exists", a.AccountNumber)
	}
	r.store.accounts[a.AccountNumber] = *a
	return nil
}

func (r *AccountRepo) GetByNumber(_ context.Context, accountNumber string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	a, ok := r.store.accounts[accountNumber]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetByNumberForUpdate reads committed state. Row locking is left to the
// account lock, which every caller holds.
func (r *AccountRepo) GetByNumberForUpdate(ctx context.Context, tx pgx.Tx, accountNumber string) (*domain.Account, error) {
	if _, err := r.store.asTx(tx); err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return r.GetByNumber(ctx, accountNumber)
}

func (r *AccountRepo) Update(_ context.Context, tx pgx.Tx, a *domain.Account) error {
	mt, err := r.store.asTx(tx)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	updated := *a
	return mt.enqueue(op{
		check: func(s *Store) error {
			if _, ok := s.accounts[updated.AccountNumber]; !ok {
				return fmt.Errorf("update account %s: no rows affected", updated.AccountNumber)
			}
			return nil
		},
		apply: func(s *Store) {
			cur := s.accounts[updated.AccountNumber]
			cur.Balance = updated.Balance
			cur.Status = updated.Status
			cur.ClosedAt = updated.ClosedAt
			cur.UpdatedAt = updated.UpdatedAt
			s.accounts[updated.AccountNumber] = cur
		},
	})
}

func (r *AccountRepo) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, a := range r.store.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

// ListByUser returns the user's accounts, oldest first.
func (r *AccountRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.Account
	for _, a := range r.store.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return lessNumber(out[i].AccountNumber, out[j].AccountNumber)
	})
	return out, nil
}

func (r *AccountRepo) LatestAccountNumber(_ context.Context) (string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	latest := ""
	for n := range r.store.accounts {
		if latest == "" || lessNumber(latest, n) {
			latest = n
		}
	}
	return latest, nil
}

// lessNumber compares decimal account numbers without parsing them.
func lessNumber(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct{ store *Store }

// NewTransactionRepo creates a TransactionRepo over store.
func NewTransactionRepo(store *Store) *TransactionRepo { return &TransactionRepo{store: store} }

// Create buffers t in tx. A duplicate successful cancel fails here and again at commit.
func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, err := r.store.asTx(tx)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	entry := *t

	r.store.mu.RLock()
	err = r.store.checkTransaction(&entry)
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	return mt.enqueue(op{
		check: func(s *Store) error { return s.checkTransaction(&entry) },
		apply: func(s *Store) { s.applyTransaction(entry) },
	})
}

func (r *TransactionRepo) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.txns[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *TransactionRepo) CancelExists(_ context.Context, tx pgx.Tx, originalID string) (bool, error) {
	if _, err := r.store.asTx(tx); err != nil {
		return false, fmt.Errorf("check cancel exists: %w", err)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.cancels[originalID]
	return ok, nil
}

// ListByAccount returns one page of entries, newest first.
func (r *TransactionRepo) ListByAccount(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.store.mu.RLock()
	var all []domain.Transaction
	for _, t := range r.store.txns {
		if t.AccountNumber == params.AccountNumber {
			all = append(all, t)
		}
	}
	r.store.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].TransactedAt.Equal(all[j].TransactedAt) {
			return all[i].TransactedAt.After(all[j].TransactedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := int64(len(all))
	start := params.Offset()
	if start < 0 {
		start = 0
	}
	if start >= len(all) {
		return nil, total, nil
	}
	end := len(all)
	if params.PageSize > 0 && params.PageSize < end-start {
		end = start + params.PageSize
	}
	return all[start:end], total, nil
}

// AuditRepo implements ports.AuditRepository.
type AuditRepo struct{ store *Store }

// NewAuditRepo creates an AuditRepo over store.
func NewAuditRepo(store *Store) *AuditRepo { return &AuditRepo{store: store} }

func (r *AuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audits = append(r.store.audits, *entry)
	return nil
}
