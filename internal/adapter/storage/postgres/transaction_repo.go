package postgres

import (
	"context"
	"errors"
	"fmt"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	transactionColumns = `id, account_id, account_number, transaction_type, transaction_result,
		amount, balance_snapshot, original_transaction_id, transacted_at`

	uniqueViolation   = "23505"
	singleCancelIndex = "uq_transactions_single_cancel"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry within the caller's transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.AccountID, t.AccountNumber, t.Type, t.Result,
		t.Amount, t.BalanceSnapshot, t.OriginalTransactionID, t.TransactedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == singleCancelIndex {
			return apperror.ErrTransactionAlreadyCancelled()
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry, or nil if it does not exist.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// CancelExists checks whether a successful cancel already references originalID.
func (r *TransactionRepo) CancelExists(ctx context.Context, tx pgx.Tx, originalID string) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM transactions
		WHERE original_transaction_id = $1 AND transaction_type = $2 AND transaction_result = $3)`

	var exists bool
	err := tx.QueryRow(ctx, query, originalID, domain.TransactionTypeCancel, domain.TransactionResultSuccess).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cancel exists: %w", err)
	}
	return exists, nil
}

// ListByAccount returns one page of an account's entries, newest first, and the total count.
func (r *TransactionRepo) ListByAccount(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE account_number = $1`, params.AccountNumber,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_number = $1 ORDER BY transacted_at DESC, id LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, params.AccountNumber, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(
			&t.ID, &t.AccountID, &t.AccountNumber, &t.Type, &t.Result,
			&t.Amount, &t.BalanceSnapshot, &t.OriginalTransactionID, &t.TransactedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.AccountID, &t.AccountNumber, &t.Type, &t.Result,
		&t.Amount, &t.BalanceSnapshot, &t.OriginalTransactionID, &t.TransactedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}
