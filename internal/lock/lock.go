package lock

import (
	"context"
	"fmt"
	"time"

	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// Do runs fn while holding the lock on key. The lease is released on every
// path, including a panic in fn. Release failures are logged, not returned.
func Do[T any](ctx context.Context, locker ports.AccountLocker, key string, log zerolog.Logger, fn func(ctx context.Context) (T, error)) (T, error) {
	lease, err := locker.Acquire(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	defer func() {
		// The request context may already be cancelled; the lease must still go.
		if rerr := lease.Release(context.WithoutCancel(ctx)); rerr != nil {
			log.Error().Err(rerr).Str("lock_key", key).Msg("failed to release lock")
		}
	}()

	return fn(ctx)
}

// Layered acquires the in-process lock before the distributed one, so requests
// within one instance queue in FIFO order and only the head polls the remote store.
type Layered struct {
	local       ports.AccountLocker
	remote      ports.AccountLocker
	waitTimeout time.Duration
}

var _ ports.AccountLocker = (*Layered)(nil)

// NewLayered combines local and remote. waitTimeout bounds the total wait
// across both layers; the layers themselves should be built without one.
func NewLayered(local, remote ports.AccountLocker, waitTimeout time.Duration) *Layered {
	return &Layered{local: local, remote: remote, waitTimeout: waitTimeout}
}

// Acquire takes the local lock and then the remote lease.
func (l *Layered) Acquire(ctx context.Context, key string) (ports.Lease, error) {
	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	localLease, err := l.local.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	remoteLease, err := l.remote.Acquire(ctx, key)
	if err != nil {
		if rerr := localLease.Release(context.WithoutCancel(ctx)); rerr != nil {
			return nil, apperror.InternalError(fmt.Errorf("release local lock after remote failure: %w", rerr))
		}
		return nil, err
	}
	return &layeredLease{local: localLease, remote: remoteLease}, nil
}

type layeredLease struct {
	local  ports.Lease
	remote ports.Lease
}

// Release frees the remote lease first; the local lock is freed even if that fails.
func (s *layeredLease) Release(ctx context.Context) error {
	remoteErr := s.remote.Release(ctx)
	localErr := s.local.Release(ctx)
	if remoteErr != nil {
		return remoteErr
	}
	return localErr
}
