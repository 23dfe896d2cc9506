package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/metrics"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BackendRedis is the metrics label of the distributed locker.
const BackendRedis = "redis"

const abandonTimeout = 500 * time.Millisecond

// ErrLeaseLost means the lease expired and may now belong to someone else.
var ErrLeaseLost = errors.New("redis lock: lease expired before release")

// releaseScript deletes the key only if it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AccountLockConfig tunes the distributed lock.
type AccountLockConfig struct {
	LeaseTTL      time.Duration
	RetryInterval time.Duration
	// WaitTimeout <= 0 waits until ctx is done.
	WaitTimeout     time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// AccountLock implements ports.AccountLocker with SET NX PX leases.
type AccountLock struct {
	client  *goredis.Client
	cb      *gobreaker.CircuitBreaker
	cfg     AccountLockConfig
	prefix  string
	metrics metrics.Collector
	log     zerolog.Logger
}

var _ ports.AccountLocker = (*AccountLock)(nil)

// NewAccountLock creates a Redis-backed account locker guarded by a circuit breaker.
func NewAccountLock(client *goredis.Client, cfg AccountLockConfig, m metrics.Collector, log zerolog.Logger) *AccountLock {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 50 * time.Millisecond
	}

	l := &AccountLock{
		client:  client,
		cfg:     cfg,
		prefix:  "lock:",
		metrics: m,
		log:     log,
	}

	l.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-account-lock",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// A caller giving up is not a Redis failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			l.metrics.RecordCircuitState(name, state)
		},
	})

	return l
}

// Acquire polls SET NX PX until it wins the key or the wait ends.
func (l *AccountLock) Acquire(ctx context.Context, key string) (ports.Lease, error) {
	start := time.Now()
	if l.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.WaitTimeout)
		defer cancel()
	}

	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.trySet(ctx, redisKey, token)
		switch {
		case ok:
			l.metrics.RecordLockWait(BackendRedis, true, time.Since(start))
			return &redisLease{lock: l, key: redisKey, token: token}, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			l.metrics.RecordLockWait(BackendRedis, false, time.Since(start))
			return nil, apperror.ErrLockTimeout(fmt.Errorf("acquire %s: %w", key, err))
		case err != nil && ctx.Err() == nil:
			l.abandon(ctx, redisKey, token)
			l.metrics.RecordLockWait(BackendRedis, false, time.Since(start))
			return nil, apperror.InternalError(fmt.Errorf("redis lock acquire %s: %w", key, err))
		}

		select {
		case <-ctx.Done():
			if err != nil {
				l.abandon(ctx, redisKey, token)
			}
			l.metrics.RecordLockWait(BackendRedis, false, time.Since(start))
			return nil, apperror.ErrLockTimeout(fmt.Errorf("acquire %s: %w", key, ctx.Err()))
		case <-ticker.C:
		}
	}
}

func (l *AccountLock) trySet(ctx context.Context, key, token string) (bool, error) {
	res, err := l.cb.Execute(func() (interface{}, error) {
		return l.client.SetNX(ctx, key, token, l.cfg.LeaseTTL).Result()
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

// abandon drops a lease the server may have granted after the client gave up
// on the reply. Only a key still carrying token is deleted.
func (l *AccountLock) abandon(ctx context.Context, key, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.log.Warn().Err(err).Str("lock_key", key).Msg("failed to drop unconfirmed lock lease")
	}
}

type redisLease struct {
	lock  *AccountLock
	key   string
	token string
}

// Release deletes the key if this lease still owns it.
func (s *redisLease) Release(ctx context.Context) error {
	res, err := s.lock.cb.Execute(func() (interface{}, error) {
		return releaseScript.Run(ctx, s.lock.client, []string{s.key}, s.token).Int64()
	})
	if err != nil {
		return fmt.Errorf("redis lock release %s: %w", s.key, err)
	}
	if res.(int64) == 0 {
		s.lock.log.Warn().Str("lock_key", s.key).Msg("lock lease expired while held")
		return ErrLeaseLost
	}
	return nil
}
