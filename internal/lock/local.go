// Package lock serializes balance changes per account.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"account-ledger/internal/core/ports"
	"account-ledger/pkg/apperror"
	"account-ledger/pkg/metrics"
)

// BackendMemory is the metrics label of the in-process locker.
const BackendMemory = "memory"

// ErrLeaseReleased is returned when a lease is released more than once.
var ErrLeaseReleased = errors.New("lock: lease already released")

// LocalLocker is an in-process keyed mutex with FIFO hand-off.
// A key's entry exists only while someone holds or waits for it.
type LocalLocker struct {
	mu          sync.Mutex
	keys        map[string]*keyQueue
	waitTimeout time.Duration
	metrics     metrics.Collector
}

// keyQueue tracks one held key. The holder is implicit; waiters are woken
// in arrival order by closing their channel.
type keyQueue struct {
	waiters []chan struct{}
}

var _ ports.AccountLocker = (*LocalLocker)(nil)

// NewLocalLocker creates an in-process locker. waitTimeout <= 0 waits until ctx is done.
func NewLocalLocker(waitTimeout time.Duration, m metrics.Collector) *LocalLocker {
	if m == nil {
		m = metrics.NoOpCollector{}
	}
	return &LocalLocker{
		keys:        make(map[string]*keyQueue),
		waitTimeout: waitTimeout,
		metrics:     m,
	}
}

// Acquire blocks until key is handed to the caller.
func (l *LocalLocker) Acquire(ctx context.Context, key string) (ports.Lease, error) {
	start := time.Now()

	l.mu.Lock()
	q, held := l.keys[key]
	if !held {
		l.keys[key] = &keyQueue{}
		l.mu.Unlock()
		l.metrics.RecordLockWait(BackendMemory, true, time.Since(start))
		return l.newLease(key), nil
	}
	turn := make(chan struct{})
	q.waiters = append(q.waiters, turn)
	l.mu.Unlock()

	if l.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.waitTimeout)
		defer cancel()
	}

	select {
	case <-turn:
		l.metrics.RecordLockWait(BackendMemory, true, time.Since(start))
		return l.newLease(key), nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	if removeWaiter(l.keys[key], turn) {
		l.mu.Unlock()
	} else {
		// Handed off between ctx.Done and re-locking; pass it on.
		l.mu.Unlock()
		<-turn
		l.release(key)
	}
	l.metrics.RecordLockWait(BackendMemory, false, time.Since(start))
	return nil, apperror.ErrLockTimeout(fmt.Errorf("acquire %s: %w", key, ctx.Err()))
}

// Held reports how many keys are currently held.
func (l *LocalLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func (l *LocalLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, ok := l.keys[key]
	if !ok {
		return
	}
	if len(q.waiters) == 0 {
		delete(l.keys, key)
		return
	}
	next := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	close(next)
}

func (l *LocalLocker) newLease(key string) *localLease {
	return &localLease{locker: l, key: key}
}

func removeWaiter(q *keyQueue, turn chan struct{}) bool {
	if q == nil {
		return false
	}
	for i, w := range q.waiters {
		if w == turn {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

type localLease struct {
	locker   *LocalLocker
	key      string
	released atomic.Bool
}

func (s *localLease) Release(_ context.Context) error {
	if !s.released.CompareAndSwap(false, true) {
		return ErrLeaseReleased
	}
	s.locker.release(s.key)
	return nil
}
