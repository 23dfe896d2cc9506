package service

import (
	"context"
	"fmt"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Entry describes one balance-affecting attempt to be written to the ledger.
type Entry struct {
	// Account supplies the id, number and the balance snapshot.
	Account               *domain.Account
	Type                  domain.TransactionType
	Amount                int64
	OriginalTransactionID *string
}

// Recorder creates immutable ledger entries. A write that cannot be made
// durable is surfaced as a ledger write failure, never dropped.
type Recorder struct {
	txRepo     ports.TransactionRepository
	transactor ports.DBTransactor
	metrics    metrics.Collector
	now        func() time.Time
	log        zerolog.Logger
}

// NewRecorder creates a Recorder stamping entries with the UTC wall clock.
func NewRecorder(
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	m metrics.Collector,
	log zerolog.Logger,
) *Recorder {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	return &Recorder{
		txRepo:     txRepo,
		transactor: transactor,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// Now returns the recorder's clock reading.
func (r *Recorder) Now() time.Time {
	return r.now()
}

// Record writes a SUCCESS entry inside the caller's transaction.
func (r *Recorder) Record(ctx context.Context, tx pgx.Tx, e Entry) (*domain.Transaction, error) {
	txn := r.build(e, domain.TransactionResultSuccess)
	if err := r.txRepo.Create(ctx, tx, txn); err != nil {
		return nil, r.writeError(txn, err)
	}
	return txn, nil
}

// RecordFailure writes a FAILED entry in a transaction of its own and commits it.
// The account must carry the balance as it was before the attempt.
func (r *Recorder) RecordFailure(ctx context.Context, e Entry) (*domain.Transaction, error) {
	txn := r.build(e, domain.TransactionResultFailed)

	dbTx, err := r.transactor.Begin(ctx)
	if err != nil {
		return nil, r.writeError(txn, err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := r.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, r.writeError(txn, err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, r.writeError(txn, fmt.Errorf("commit: %w", err))
	}
	return txn, nil
}

func (r *Recorder) build(e Entry, result domain.TransactionResult) *domain.Transaction {
	return &domain.Transaction{
		ID:                    domain.NewTransactionID(),
		AccountID:             e.Account.ID,
		AccountNumber:         e.Account.AccountNumber,
		Type:                  e.Type,
		Result:                result,
		Amount:                e.Amount,
		BalanceSnapshot:       e.Account.Balance,
		OriginalTransactionID: e.OriginalTransactionID,
		TransactedAt:          r.now(),
	}
}

// writeError passes constraint violations through as domain errors and
// turns everything else into a ledger write failure.
func (r *Recorder) writeError(txn *domain.Transaction, err error) error {
	if apperror.IsValidation(err) {
		return err
	}
	r.metrics.RecordLedgerWriteFailure(operationOf(txn.Type))
	r.log.Error().
		Err(err).
		Str("transaction_id", txn.ID).
		Str("account_number", txn.AccountNumber).
		Str("transaction_type", string(txn.Type)).
		Str("transaction_result", string(txn.Result)).
		Int64("amount", txn.Amount).
		Msg("ledger write failed")
	return apperror.ErrLedgerWrite(fmt.Errorf("record %s %s: %w", txn.Type, txn.Result, err))
}

func operationOf(t domain.TransactionType) string {
	if t == domain.TransactionTypeCancel {
		return OperationCancel
	}
	return OperationUse
}
