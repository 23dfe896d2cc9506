// Package memory is a process-local storage driver for development and tests.
// It keeps the same contracts as the PostgreSQL repositories, including the
// single-cancel constraint, but nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"account-ledger/internal/core/domain"
	"account-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrSQLUnsupported is returned by the raw SQL methods of Tx.
var ErrSQLUnsupported = errors.New("memory store: raw SQL is not supported")

// Store holds every table under a single mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]domain.AccountUser
	accounts map[string]domain.Account
	txns     map[string]domain.Transaction
	// cancels maps an original transaction id to its successful cancel.
	cancels map[string]string
	audits  []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[uuid.UUID]domain.AccountUser),
		accounts: make(map[string]domain.Account),
		txns:     make(map[string]domain.Transaction),
		cancels:  make(map[string]string),
	}
}

// AuditLogs returns a copy of the recorded audit entries.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AuditLog, len(s.audits))
	copy(out, s.audits)
	return out
}

// op is one buffered write. check runs against committed state under the
// write lock; apply must not fail.
type op struct {
	check func(s *Store) error
	apply func(s *Store)
}

func (s *Store) checkTransaction(t *domain.Transaction) error {
	if _, ok := s.txns[t.ID]; ok {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	if t.Type == domain.TransactionTypeCancel && t.Result == domain.TransactionResultSuccess && t.OriginalTransactionID != nil {
		if _, ok := s.cancels[*t.OriginalTransactionID]; ok {
			return apperror.ErrTransactionAlreadyCancelled()
		}
	}
	return nil
}

func (s *Store) applyTransaction(t domain.Transaction) {
	s.txns[t.ID] = t
	if t.Type == domain.TransactionTypeCancel && t.Result == domain.TransactionResultSuccess && t.OriginalTransactionID != nil {
		s.cancels[*t.OriginalTransactionID] = t.ID
	}
}

// Tx buffers writes and applies them atomically on Commit.
// Reads inside a Tx see committed state only.
type Tx struct {
	store *Store
	mu    sync.Mutex
	ops   []op
	done  bool
}

var _ pgx.Tx = (*Tx)(nil)

func (t *Tx) enqueue(o op) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.ops = append(t.ops, o)
	return nil
}

// Commit validates every buffered write and then applies them all, or none.
func (t *Tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, o := range t.ops {
		if err := o.check(t.store); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	for _, o := range t.ops {
		o.apply(t.store)
	}
	t.ops = nil
	return nil
}

// Rollback discards buffered writes. It returns pgx.ErrTxClosed after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.ops = nil
	return nil
}

// Begin returns t itself; nested transactions share the outer buffer.
func (t *Tx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }

func (t *Tx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, ErrSQLUnsupported
}
func (t *Tx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return errBatch{} }
func (t *Tx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *Tx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, ErrSQLUnsupported
}
func (t *Tx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, ErrSQLUnsupported
}
func (t *Tx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, ErrSQLUnsupported
}
func (t *Tx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return errRow{} }
func (t *Tx) Conn() *pgx.Conn                                        { return nil }

type errRow struct{}

func (errRow) Scan(_ ...any) error { return ErrSQLUnsupported }

type errBatch struct{}

func (errBatch) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, ErrSQLUnsupported }
func (errBatch) Query() (pgx.Rows, error)         { return nil, ErrSQLUnsupported }
func (errBatch) QueryRow() pgx.Row                { return errRow{} }
func (errBatch) Close() error                     { return ErrSQLUnsupported }

// asTx unwraps a pgx.Tx created by this store.
func (s *Store) asTx(tx pgx.Tx) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt.store != s {
		return nil, fmt.Errorf("memory store: foreign transaction %T", tx)
	}
	return mt, nil
}

// Transactor implements ports.DBTransactor.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{store: t.store}, nil
}

// HealthCheck implements ports.HealthChecker. The store is always reachable.
type HealthCheck struct{}

func (HealthCheck) Ping(_ context.Context) error { return nil }
func (HealthCheck) Name() string                 { return "memory" }
