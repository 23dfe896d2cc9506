package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/internal/core/ports/mocks"
	"account-ledger/internal/lock"
	"account-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type accountTestDeps struct {
	svc         *AccountServiceImpl
	userRepo    *mocks.MockUserRepository
	accountRepo *mocks.MockAccountRepository
	txRepo      *mocks.MockTransactionRepository
	transactor  *mocks.MockDBTransactor
	locker      *lock.LocalLocker
}

func setupAccountService(t *testing.T) *accountTestDeps {
	ctrl := gomock.NewController(t)
	d := &accountTestDeps{
		userRepo:    mocks.NewMockUserRepository(ctrl),
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		txRepo:      mocks.NewMockTransactionRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		locker:      lock.NewLocalLocker(time.Second, nil),
	}
	d.svc = NewAccountService(d.userRepo, d.accountRepo, d.txRepo, d.transactor, d.locker, newTestLogger())
	d.svc.now = func() time.Time { return fixedNow }
	return d
}

func TestAccountService_CreateAccount_First(t *testing.T) {
	d := setupAccountService(t)
	userID := uuid.New()

	d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(testUser(userID), nil)
	d.accountRepo.EXPECT().CountByUser(gomock.Any(), userID).Return(0, nil)
	d.accountRepo.EXPECT().LatestAccountNumber(gomock.Any()).Return("", nil)
	d.accountRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	account, err := d.svc.CreateAccount(context.Background(), userID, 10000)
	require.NoError(t, err)
	assert.Equal(t, domain.FirstAccountNumber, account.AccountNumber)
	assert.Equal(t, domain.AccountStatusActive, account.Status)
	assert.Equal(t, int64(10000), account.Balance)
	assert.Equal(t, fixedNow, account.RegisteredAt)
	assert.Nil(t, account.ClosedAt)
	assert.Equal(t, 0, d.locker.Held())
}

func TestAccountService_CreateAccount_NextNumber(t *testing.T) {
	d := setupAccountService(t)
	userID := uuid.New()

	d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(testUser(userID), nil)
	d.accountRepo.EXPECT().CountByUser(gomock.Any(), userID).Return(3, nil)
	d.accountRepo.EXPECT().LatestAccountNumber(gomock.Any()).Return("1000000041", nil)
	d.accountRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	account, err := d.svc.CreateAccount(context.Background(), userID, 0)
	require.NoError(t, err)
	assert.Equal(t, "1000000042", account.AccountNumber)
}

func TestAccountService_CreateAccount_Errors(t *testing.T) {
	t.Run("negative balance", func(t *testing.T) {
		d := setupAccountService(t)
		_, err := d.svc.CreateAccount(context.Background(), uuid.New(), -1)
		assert.ErrorIs(t, err, apperror.ErrInvalidRequest(""))
	})

	t.Run("user not found", func(t *testing.T) {
		d := setupAccountService(t)
		userID := uuid.New()
		d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(nil, nil)

		_, err := d.svc.CreateAccount(context.Background(), userID, 0)
		assert.ErrorIs(t, err, apperror.ErrUserNotFound())
	})

	t.Run("account limit", func(t *testing.T) {
		d := setupAccountService(t)
		userID := uuid.New()
		d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(testUser(userID), nil)
		d.accountRepo.EXPECT().CountByUser(gomock.Any(), userID).Return(domain.MaxAccountsPerUser, nil)

		_, err := d.svc.CreateAccount(context.Background(), userID, 0)
		assert.ErrorIs(t, err, apperror.ErrMaxAccountPerUser(domain.MaxAccountsPerUser))
		assert.Equal(t, 0, d.locker.Held())
	})

	t.Run("corrupt latest number", func(t *testing.T) {
		d := setupAccountService(t)
		userID := uuid.New()
		d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(testUser(userID), nil)
		d.accountRepo.EXPECT().CountByUser(gomock.Any(), userID).Return(0, nil)
		d.accountRepo.EXPECT().LatestAccountNumber(gomock.Any()).Return("abc", nil)

		_, err := d.svc.CreateAccount(context.Background(), userID, 0)
		assert.ErrorIs(t, err, apperror.InternalError(nil))
	})

	t.Run("insert fails", func(t *testing.T) {
		d := setupAccountService(t)
		userID := uuid.New()
		d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(testUser(userID), nil)
		d.accountRepo.EXPECT().CountByUser(gomock.Any(), userID).Return(0, nil)
		d.accountRepo.EXPECT().LatestAccountNumber(gomock.Any()).Return("", nil)
		d.accountRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("duplicate key"))

		_, err := d.svc.CreateAccount(context.Background(), userID, 0)
		assert.ErrorIs(t, err, apperror.InternalError(nil))
	})
}

func TestAccountService_CloseAccount_Success(t *testing.T) {
	d := setupAccountService(t)
	account := testAccount(0)
	tx := &mockTx{}

	d.userRepo.EXPECT().GetByID(gomock.Any(), account.UserID).Return(testUser(account.UserID), nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.accountRepo.EXPECT().GetByNumberForUpdate(gomock.Any(), tx, account.AccountNumber).Return(account, nil)
	d.accountRepo.EXPECT().Update(gomock.Any(), tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, a *domain.Account) error {
			assert.Equal(t, domain.AccountStatusClosed, a.Status)
			return nil
		},
	)

	closed, err := d.svc.CloseAccount(context.Background(), account.UserID, account.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, fixedNow, *closed.ClosedAt)
	assert.Equal(t, 1, tx.commits)
}

func TestAccountService_CloseAccount_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		account func() *domain.Account
		owner   bool
		wantErr *apperror.AppError
	}{
		{"not found", func() *domain.Account { return nil }, true, apperror.ErrAccountNotFound()},
		{"other owner", func() *domain.Account { return testAccount(0) }, false, apperror.ErrUserAccountMismatch()},
		{"already closed", func() *domain.Account {
			a := testAccount(0)
			a.Status = domain.AccountStatusClosed
			return a
		}, true, apperror.ErrAccountAlreadyClosed()},
		{"balance left", func() *domain.Account { return testAccount(1) }, true, apperror.ErrBalanceNotEmpty()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupAccountService(t)
			account := tt.account()
			userID := uuid.New()
			if account != nil && tt.owner {
				userID = account.UserID
			}
			tx := &mockTx{}

			d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(testUser(userID), nil)
			d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			d.accountRepo.EXPECT().GetByNumberForUpdate(gomock.Any(), tx, "1000000000").Return(account, nil)

			_, err := d.svc.CloseAccount(context.Background(), userID, "1000000000")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, tx.commits)
		})
	}
}

func TestAccountService_ListAccounts(t *testing.T) {
	d := setupAccountService(t)
	userID := uuid.New()
	accounts := []domain.Account{*testAccount(5), *testAccount(0)}

	d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(testUser(userID), nil)
	d.accountRepo.EXPECT().ListByUser(gomock.Any(), userID).Return(accounts, nil)

	got, err := d.svc.ListAccounts(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAccountService_ListAccounts_UserNotFound(t *testing.T) {
	d := setupAccountService(t)
	userID := uuid.New()

	d.userRepo.EXPECT().GetByID(gomock.Any(), userID).Return(nil, nil)

	_, err := d.svc.ListAccounts(context.Background(), userID)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound())
}

func TestAccountService_ListTransactions_PageBounds(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantPageSize int
	}{
		{"defaults", 0, 0, 1, ports.DefaultPageSize},
		{"capped", 3, 1000, 3, ports.MaxPageSize},
		{"explicit", 2, 10, 2, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := setupAccountService(t)
			d.accountRepo.EXPECT().GetByNumber(gomock.Any(), "1000000000").Return(testAccount(0), nil)
			d.txRepo.EXPECT().ListByAccount(gomock.Any(), ports.TransactionListParams{
				AccountNumber: "1000000000",
				Page:          tt.wantPage,
				PageSize:      tt.wantPageSize,
			}).Return([]domain.Transaction{}, int64(0), nil)

			_, total, err := d.svc.ListTransactions(context.Background(), ports.TransactionListParams{
				AccountNumber: "1000000000", Page: tt.page, PageSize: tt.size,
			})
			require.NoError(t, err)
			assert.Zero(t, total)
		})
	}
}

func TestAccountService_ListTransactions_PageOutOfRange(t *testing.T) {
	d := setupAccountService(t)

	_, _, err := d.svc.ListTransactions(context.Background(), ports.TransactionListParams{
		AccountNumber: "1000000000", Page: ports.MaxPage + 1, PageSize: 10,
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest(""))
	assert.Equal(t, "REQ_001", apperror.CodeOf(err))
}

func TestAccountService_ListTransactions_AccountNotFound(t *testing.T) {
	d := setupAccountService(t)
	d.accountRepo.EXPECT().GetByNumber(gomock.Any(), "1000000000").Return(nil, nil)

	_, _, err := d.svc.ListTransactions(context.Background(), ports.TransactionListParams{AccountNumber: "1000000000"})
	assert.ErrorIs(t, err, apperror.ErrAccountNotFound())
}
