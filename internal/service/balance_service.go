package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/internal/lock"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Balance operation names used in metrics.
const (
	OperationUse    = "use"
	OperationCancel = "cancel"
)

// BalanceServiceImpl implements ports.BalanceService.
// Every mutation runs under the account lock and inside one DB transaction.
type BalanceServiceImpl struct {
	userRepo    ports.UserRepository
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	recorder    *Recorder
	locker      ports.AccountLocker
	cache       ports.TransactionCache
	cacheTTL    time.Duration
	metrics     metrics.Collector
	log         zerolog.Logger
}

// NewBalanceService creates a new BalanceServiceImpl.
// A nil cache or a non-positive cacheTTL disables transaction caching.
func NewBalanceService(
	userRepo ports.UserRepository,
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	recorder *Recorder,
	locker ports.AccountLocker,
	cache ports.TransactionCache,
	cacheTTL time.Duration,
	m metrics.Collector,
	log zerolog.Logger,
) *BalanceServiceImpl {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	if cacheTTL <= 0 {
		cache = nil
	}
	return &BalanceServiceImpl{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		recorder:    recorder,
		locker:      locker,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     m,
		log:         log,
	}
}

// UseBalance withdraws req.Amount from the account.
func (s *BalanceServiceImpl) UseBalance(ctx context.Context, req ports.UseBalanceRequest) (*domain.Transaction, error) {
	start := time.Now()
	txn, err := s.useBalance(ctx, req)
	s.observe(OperationUse, start, err)
	return txn, err
}

func (s *BalanceServiceImpl) useBalance(ctx context.Context, req ports.UseBalanceRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidRequest("amount must be positive")
	}

	return lock.Do(ctx, s.locker, domain.LockKey(req.AccountNumber), s.log, func(ctx context.Context) (*domain.Transaction, error) {
		user, err := s.userRepo.GetByID(ctx, req.UserID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
		}
		if user == nil {
			return nil, apperror.ErrUserNotFound()
		}

		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, req.AccountNumber)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
		}
		if account == nil {
			return nil, apperror.ErrAccountNotFound()
		}

		before := *account
		failure := Entry{Account: &before, Type: domain.TransactionTypeUse, Amount: req.Amount}

		err = account.ValidateOwner(req.UserID)
		if err == nil {
			err = account.Use(req.Amount, s.recorder.Now())
		}
		if err != nil {
			return nil, s.fail(ctx, dbTx, failure, err)
		}

		if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
		}

		txn, err := s.recorder.Record(ctx, dbTx, Entry{Account: account, Type: domain.TransactionTypeUse, Amount: req.Amount})
		if err != nil {
			return nil, s.fail(ctx, dbTx, failure, err)
		}
		if err := s.commit(ctx, dbTx, txn); err != nil {
			return nil, s.fail(ctx, dbTx, failure, err)
		}

		s.warmCache(ctx, txn)

		s.log.Info().
			Str("transaction_id", txn.ID).
			Str("account_number", txn.AccountNumber).
			Int64("amount", txn.Amount).
			Int64("balance", txn.BalanceSnapshot).
			Msg("balance used")

		return txn, nil
	})
}

// CancelBalance restores the full amount of a successful use.
func (s *BalanceServiceImpl) CancelBalance(ctx context.Context, req ports.CancelBalanceRequest) (*domain.Transaction, error) {
	start := time.Now()
	txn, err := s.cancelBalance(ctx, req)
	s.observe(OperationCancel, start, err)
	return txn, err
}

func (s *BalanceServiceImpl) cancelBalance(ctx context.Context, req ports.CancelBalanceRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidRequest("amount must be positive")
	}

	return lock.Do(ctx, s.locker, domain.LockKey(req.AccountNumber), s.log, func(ctx context.Context) (*domain.Transaction, error) {
		original, err := s.txRepo.GetByID(ctx, req.TransactionID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
		}
		if original == nil {
			return nil, apperror.ErrTransactionNotFound()
		}

		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, req.AccountNumber)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
		}
		if account == nil {
			return nil, apperror.ErrAccountNotFound()
		}

		before := *account
		failure := Entry{
			Account:               &before,
			Type:                  domain.TransactionTypeCancel,
			Amount:                req.Amount,
			OriginalTransactionID: &original.ID,
		}

		if err := s.validateCancel(ctx, dbTx, account, original, req.Amount); err != nil {
			return nil, s.fail(ctx, dbTx, failure, err)
		}
		if err := account.Cancel(req.Amount, s.recorder.Now()); err != nil {
			return nil, s.fail(ctx, dbTx, failure, err)
		}

		if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
		}

		txn, err := s.recorder.Record(ctx, dbTx, Entry{
			Account:               account,
			Type:                  domain.TransactionTypeCancel,
			Amount:                req.Amount,
			OriginalTransactionID: &original.ID,
		})
		if err != nil {
			return nil, s.fail(ctx, dbTx, failure, err)
		}
		if err := s.commit(ctx, dbTx, txn); err != nil {
			return nil, s.fail(ctx, dbTx, failure, err)
		}

		s.warmCache(ctx, txn)

		s.log.Info().
			Str("transaction_id", txn.ID).
			Str("original_transaction_id", original.ID).
			Str("account_number", txn.AccountNumber).
			Int64("amount", txn.Amount).
			Int64("balance", txn.BalanceSnapshot).
			Msg("balance cancelled")

		return txn, nil
	})
}

func (s *BalanceServiceImpl) validateCancel(
	ctx context.Context,
	dbTx pgx.Tx,
	account *domain.Account,
	original *domain.Transaction,
	amount int64,
) error {
	if original.AccountID != account.ID {
		return apperror.ErrTransactionAccountMismatch()
	}
	if !account.IsActive() {
		return apperror.ErrAccountAlreadyClosed()
	}
	if !original.IsCancelable() {
		return apperror.ErrTransactionNotCancelable()
	}
	if amount != original.Amount {
		return apperror.ErrCancelMustBeFull()
	}

	cancelled, err := s.txRepo.CancelExists(ctx, dbTx, original.ID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check cancel exists: %w", err))
	}
	if cancelled {
		return apperror.ErrTransactionAlreadyCancelled()
	}
	return nil
}

// QueryTransaction returns a ledger entry, reading through the cache.
func (s *BalanceServiceImpl) QueryTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, transactionID)
		if err != nil {
			s.log.Warn().Err(err).Str("transaction_id", transactionID).Msg("transaction cache read failed, falling through to DB")
		}
		s.metrics.RecordCacheLookup(cached != nil)
		if cached != nil {
			return cached, nil
		}
	}

	txn, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}

	s.warmCache(ctx, txn)
	return txn, nil
}

// commit makes the account update and the SUCCESS entry durable together.
func (s *BalanceServiceImpl) commit(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) error {
	err := dbTx.Commit(ctx)
	if err == nil {
		return nil
	}
	if apperror.IsValidation(err) {
		return err
	}
	s.metrics.RecordLedgerWriteFailure(operationOf(txn.Type))
	return apperror.ErrLedgerWrite(fmt.Errorf("commit %s: %w", txn.ID, err))
}

// fail records a FAILED entry for a validation error raised while the lock
// is held and returns the original error. Other errors pass through.
func (s *BalanceServiceImpl) fail(ctx context.Context, dbTx pgx.Tx, e Entry, cause error) error {
	if !apperror.IsValidation(cause) {
		return cause
	}

	// Drop the row lock and any buffered writes before the failure is recorded.
	if err := dbTx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.log.Warn().Err(err).Str("account_number", e.Account.AccountNumber).Msg("rollback before failure record")
	}

	txn, err := s.recorder.RecordFailure(context.WithoutCancel(ctx), e)
	if err != nil {
		s.log.Error().
			Err(cause).
			Str("account_number", e.Account.AccountNumber).
			Str("error_code", apperror.CodeOf(cause)).
			Msg("domain failure could not be recorded")
		return err
	}

	s.log.Warn().
		Str("transaction_id", txn.ID).
		Str("account_number", txn.AccountNumber).
		Str("transaction_type", string(txn.Type)).
		Int64("amount", txn.Amount).
		Str("error_code", apperror.CodeOf(cause)).
		Msg("balance operation rejected")
	return cause
}

// warmCache stores txn for later lookups. Best-effort.
func (s *BalanceServiceImpl) warmCache(ctx context.Context, txn *domain.Transaction) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, txn, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("failed to cache transaction")
	}
}

func (s *BalanceServiceImpl) observe(operation string, start time.Time, err error) {
	result := metrics.ResultSuccess
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindNotFound:
		result = metrics.ResultFailed
	default:
		if err != nil {
			result = metrics.ResultError
		}
	}
	s.metrics.RecordBalanceOperation(operation, result, time.Since(start))
}
