package service

import (
	"context"
	"fmt"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/internal/lock"
	"account-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AccountServiceImpl implements ports.AccountService.
type AccountServiceImpl struct {
	userRepo    ports.UserRepository
	accountRepo ports.AccountRepository
	txRepo      ports.TransactionRepository
	transactor  ports.DBTransactor
	locker      ports.AccountLocker
	now         func() time.Time
	log         zerolog.Logger
}

// NewAccountService creates a new AccountServiceImpl.
func NewAccountService(
	userRepo ports.UserRepository,
	accountRepo ports.AccountRepository,
	txRepo ports.TransactionRepository,
	transactor ports.DBTransactor,
	locker ports.AccountLocker,
	log zerolog.Logger,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		txRepo:      txRepo,
		transactor:  transactor,
		locker:      locker,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// CreateAccount opens a new account with the next account number.
// Numbers are allocated under a dedicated lock so they stay unique and monotonic.
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID uuid.UUID, initialBalance int64) (*domain.Account, error) {
	if initialBalance < 0 {
		return nil, apperror.ErrInvalidRequest("initial balance must not be negative")
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	return lock.Do(ctx, s.locker, domain.AccountNumberLockKey, s.log, func(ctx context.Context) (*domain.Account, error) {
		count, err := s.accountRepo.CountByUser(ctx, userID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("count accounts: %w", err))
		}
		if count >= domain.MaxAccountsPerUser {
			return nil, apperror.ErrMaxAccountPerUser(domain.MaxAccountsPerUser)
		}

		latest, err := s.accountRepo.LatestAccountNumber(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("latest account number: %w", err))
		}
		number, err := domain.NextAccountNumber(latest)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("next account number after %q: %w", latest, err))
		}

		now := s.now()
		account := &domain.Account{
			ID:            uuid.New(),
			UserID:        userID,
			AccountNumber: number,
			Status:        domain.AccountStatusActive,
			Balance:       initialBalance,
			RegisteredAt:  now,
			UpdatedAt:     now,
		}
		if err := s.accountRepo.Create(ctx, account); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
		}

		s.log.Info().
			Str("user_id", userID.String()).
			Str("account_number", number).
			Int64("balance", initialBalance).
			Msg("account created")

		return account, nil
	})
}

// CloseAccount closes an empty account owned by userID.
func (s *AccountServiceImpl) CloseAccount(ctx context.Context, userID uuid.UUID, accountNumber string) (*domain.Account, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	return lock.Do(ctx, s.locker, domain.LockKey(accountNumber), s.log, func(ctx context.Context) (*domain.Account, error) {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		account, err := s.accountRepo.GetByNumberForUpdate(ctx, dbTx, accountNumber)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock account: %w", err))
		}
		if account == nil {
			return nil, apperror.ErrAccountNotFound()
		}

		if err := account.ValidateOwner(userID); err != nil {
			return nil, err
		}
		if err := account.Close(s.now()); err != nil {
			return nil, err
		}

		if err := s.accountRepo.Update(ctx, dbTx, account); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update account: %w", err))
		}
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
		}

		s.log.Info().
			Str("user_id", userID.String()).
			Str("account_number", accountNumber).
			Msg("account closed")

		return account, nil
	})
}

// ListAccounts returns every account of userID, open or closed.
func (s *AccountServiceImpl) ListAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	accounts, err := s.accountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

// ListTransactions returns one page of an account's ledger, newest first.
func (s *AccountServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	params = params.Normalized()
	if !params.PageInRange() {
		return nil, 0, apperror.ErrInvalidRequest(fmt.Sprintf("page must not exceed %d", ports.MaxPage))
	}

	account, err := s.accountRepo.GetByNumber(ctx, params.AccountNumber)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, 0, apperror.ErrAccountNotFound()
	}

	txns, total, err := s.txRepo.ListByAccount(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

func (s *AccountServiceImpl) requireUser(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return apperror.ErrUserNotFound()
	}
	return nil
}
