package service

import (
	"context"
	"testing"
	"time"

	memstore "account-ledger/internal/adapter/storage/memory"
	"account-ledger/internal/core/domain"
	"account-ledger/internal/core/ports"
	"account-ledger/internal/lock"
	"account-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type ledger struct {
	balance  *BalanceServiceImpl
	accounts *AccountServiceImpl
	users    *UserServiceImpl
	txRepo   *memstore.TransactionRepo
	locker   *lock.LocalLocker
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	store := memstore.NewStore()
	userRepo := memstore.NewUserRepo(store)
	accountRepo := memstore.NewAccountRepo(store)
	txRepo := memstore.NewTransactionRepo(store)
	transactor := memstore.NewTransactor(store)
	locker := lock.NewLocalLocker(0, nil)
	log := newTestLogger()

	rec := NewRecorder(txRepo, transactor, nil, log)
	return &ledger{
		balance:  NewBalanceService(userRepo, accountRepo, txRepo, transactor, rec, locker, nil, 0, nil, log),
		accounts: NewAccountService(userRepo, accountRepo, txRepo, transactor, locker, log),
		users:    NewUserService(userRepo, log),
		txRepo:   txRepo,
		locker:   locker,
	}
}

func (l *ledger) open(t *testing.T, balance int64) (uuid.UUID, *domain.Account) {
	t.Helper()
	ctx := context.Background()
	user, err := l.users.CreateUser(ctx, "holder")
	require.NoError(t, err)
	account, err := l.accounts.CreateAccount(ctx, user.ID, balance)
	require.NoError(t, err)
	return user.ID, account
}

func (l *ledger) history(t *testing.T, number string) []domain.Transaction {
	t.Helper()
	txns, _, err := l.txRepo.ListByAccount(context.Background(), ports.TransactionListParams{
		AccountNumber: number, Page: 1, PageSize: 1000,
	})
	require.NoError(t, err)
	return txns
}

func (l *ledger) balanceOf(t *testing.T, userID uuid.UUID, number string) int64 {
	t.Helper()
	accounts, err := l.accounts.ListAccounts(context.Background(), userID)
	require.NoError(t, err)
	for _, a := range accounts {
		if a.AccountNumber == number {
			return a.Balance
		}
	}
	t.Fatalf("account %s not found", number)
	return 0
}

func TestLedger_UseCancelRoundTrip(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	userID, account := l.open(t, 10000)

	used, err := l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: userID, AccountNumber: account.AccountNumber, Amount: 3000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7000), used.BalanceSnapshot)
	assert.Equal(t, int64(7000), l.balanceOf(t, userID, account.AccountNumber))

	cancelled, err := l.balance.CancelBalance(ctx, ports.CancelBalanceRequest{
		TransactionID: used.ID, AccountNumber: account.AccountNumber, Amount: 3000,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeCancel, cancelled.Type)
	assert.Equal(t, domain.TransactionResultSuccess, cancelled.Result)
	assert.Equal(t, int64(10000), cancelled.BalanceSnapshot)
	assert.Equal(t, int64(10000), l.balanceOf(t, userID, account.AccountNumber))

	_, err = l.balance.CancelBalance(ctx, ports.CancelBalanceRequest{
		TransactionID: used.ID, AccountNumber: account.AccountNumber, Amount: 3000,
	})
	assert.ErrorIs(t, err, apperror.ErrTransactionAlreadyCancelled())
	assert.Equal(t, int64(10000), l.balanceOf(t, userID, account.AccountNumber))

	history := l.history(t, account.AccountNumber)
	require.Len(t, history, 3)
	failed := 0
	for _, txn := range history {
		if txn.Result == domain.TransactionResultFailed {
			failed++
			assert.Equal(t, domain.TransactionTypeCancel, txn.Type)
			assert.Equal(t, int64(10000), txn.BalanceSnapshot)
		}
	}
	assert.Equal(t, 1, failed)

	got, err := l.balance.QueryTransaction(ctx, used.ID)
	require.NoError(t, err)
	assert.Equal(t, used.ID, got.ID)
}

func TestLedger_OneRecordPerAttempt(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	userID, account := l.open(t, 1000)

	_, err := l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: userID, AccountNumber: account.AccountNumber, Amount: 1001,
	})
	assert.ErrorIs(t, err, apperror.ErrAmountExceedsBalance())

	used, err := l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: userID, AccountNumber: account.AccountNumber, Amount: 400,
	})
	require.NoError(t, err)

	_, err = l.balance.CancelBalance(ctx, ports.CancelBalanceRequest{
		TransactionID: used.ID, AccountNumber: account.AccountNumber, Amount: 399,
	})
	assert.ErrorIs(t, err, apperror.ErrCancelMustBeFull())

	// Not-found paths leave no trace.
	_, err = l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: uuid.New(), AccountNumber: account.AccountNumber, Amount: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrUserNotFound())
	_, err = l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: userID, AccountNumber: "9999999999", Amount: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrAccountNotFound())

	history := l.history(t, account.AccountNumber)
	require.Len(t, history, 3)
	byResult := map[domain.TransactionResult]int{}
	for _, txn := range history {
		byResult[txn.Result]++
	}
	assert.Equal(t, 1, byResult[domain.TransactionResultSuccess])
	assert.Equal(t, 2, byResult[domain.TransactionResultFailed])
	assert.Equal(t, int64(600), l.balanceOf(t, userID, account.AccountNumber))
}

func TestLedger_ClosedAccountRejectsBalanceChanges(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	userID, account := l.open(t, 500)

	used, err := l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: userID, AccountNumber: account.AccountNumber, Amount: 500,
	})
	require.NoError(t, err)

	_, err = l.accounts.CloseAccount(ctx, userID, account.AccountNumber)
	require.NoError(t, err)

	_, err = l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: userID, AccountNumber: account.AccountNumber, Amount: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrAccountAlreadyClosed())

	_, err = l.balance.CancelBalance(ctx, ports.CancelBalanceRequest{
		TransactionID: used.ID, AccountNumber: account.AccountNumber, Amount: 500,
	})
	assert.ErrorIs(t, err, apperror.ErrAccountAlreadyClosed())

	assert.Equal(t, int64(0), l.balanceOf(t, userID, account.AccountNumber))
}

func TestLedger_CancelAgainstOtherAccount(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	userID, first := l.open(t, 100)
	second, err := l.accounts.CreateAccount(ctx, userID, 100)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccountNumber, second.AccountNumber)

	used, err := l.balance.UseBalance(ctx, ports.UseBalanceRequest{
		UserID: userID, AccountNumber: first.AccountNumber, Amount: 50,
	})
	require.NoError(t, err)

	_, err = l.balance.CancelBalance(ctx, ports.CancelBalanceRequest{
		TransactionID: used.ID, AccountNumber: second.AccountNumber, Amount: 50,
	})
	assert.ErrorIs(t, err, apperror.ErrTransactionAccountMismatch())
	assert.Equal(t, int64(100), l.balanceOf(t, userID, second.AccountNumber))
}

func TestLedger_ConcurrentUsesDrainExactly(t *testing.T) {
	l := newLedger(t)
	const (
		n       = 50
		balance = int64(100000)
	)
	userID, account := l.open(t, balance)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := l.balance.UseBalance(ctx, ports.UseBalanceRequest{
				UserID: userID, AccountNumber: account.AccountNumber, Amount: balance / n,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(0), l.balanceOf(t, userID, account.AccountNumber))
	assert.Len(t, l.history(t, account.AccountNumber), n)
	assert.Equal(t, 0, l.locker.Held())
}

func TestLedger_ConcurrentOverdraftRecordsFailures(t *testing.T) {
	l := newLedger(t)
	userID, account := l.open(t, 1000)

	var g errgroup.Group
	errs := make([]error, 20)
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = l.balance.UseBalance(context.Background(), ports.UseBalanceRequest{
				UserID: userID, AccountNumber: account.AccountNumber, Amount: 100,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, apperror.ErrAmountExceedsBalance())
			failed++
		}
	}
	assert.Equal(t, 10, failed)
	assert.Equal(t, int64(0), l.balanceOf(t, userID, account.AccountNumber))

	history := l.history(t, account.AccountNumber)
	assert.Len(t, history, 20)
	for _, txn := range history {
		if txn.Result == domain.TransactionResultFailed {
			assert.Equal(t, int64(0), txn.BalanceSnapshot)
		}
	}
}

func TestLedger_ConcurrentCancelsSucceedOnce(t *testing.T) {
	l := newLedger(t)
	userID, account := l.open(t, 1000)

	used, err := l.balance.UseBalance(context.Background(), ports.UseBalanceRequest{
		UserID: userID, AccountNumber: account.AccountNumber, Amount: 300,
	})
	require.NoError(t, err)

	var g errgroup.Group
	errs := make([]error, 10)
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = l.balance.CancelBalance(context.Background(), ports.CancelBalanceRequest{
				TransactionID: used.ID, AccountNumber: account.AccountNumber, Amount: 300,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperror.ErrTransactionAlreadyCancelled())
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, int64(1000), l.balanceOf(t, userID, account.AccountNumber))
}

func TestLedger_AccountNumbersAreSequential(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()

	var g errgroup.Group
	numbers := make([]string, 8)
	for i := range numbers {
		i := i
		g.Go(func() error {
			user, err := l.users.CreateUser(ctx, "holder")
			if err != nil {
				return err
			}
			a, err := l.accounts.CreateAccount(ctx, user.ID, 0)
			if err != nil {
				return err
			}
			numbers[i] = a.AccountNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := map[string]bool{}
	for _, n := range numbers {
		assert.False(t, seen[n], "duplicate account number %s", n)
		seen[n] = true
	}
	for i := 0; i < len(numbers); i++ {
		want, _ := domain.NextAccountNumber("")
		for j := 0; j < i; j++ {
			want, _ = domain.NextAccountNumber(want)
		}
		assert.True(t, seen[want], "missing %s", want)
	}
}

func TestLedger_UserAccountLimit(t *testing.T) {
	l := newLedger(t)
	ctx := context.Background()
	userID, _ := l.open(t, 0)

	for i := 1; i < domain.MaxAccountsPerUser; i++ {
		_, err := l.accounts.CreateAccount(ctx, userID, 0)
		require.NoError(t, err)
	}
	_, err := l.accounts.CreateAccount(ctx, userID, 0)
	assert.ErrorIs(t, err, apperror.ErrMaxAccountPerUser(domain.MaxAccountsPerUser))
}

func TestLedger_LockTimeoutUnderContention(t *testing.T) {
	l := newLedger(t)
	userID, account := l.open(t, 100)

	timed := lock.NewLocalLocker(10*time.Millisecond, nil)
	svc := *l.balance
	svc.locker = timed

	held, err := timed.Acquire(context.Background(), domain.LockKey(account.AccountNumber))
	require.NoError(t, err)
	defer held.Release(context.Background()) //nolint:errcheck

	_, err = svc.UseBalance(context.Background(), ports.UseBalanceRequest{
		UserID: userID, AccountNumber: account.AccountNumber, Amount: 1,
	})
	assert.ErrorIs(t, err, apperror.ErrLockTimeout(nil))
	assert.Empty(t, l.history(t, account.AccountNumber), "contention must not write a record")
}
