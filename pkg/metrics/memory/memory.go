package memory

import (
	"sync"
	"time"

	"account-ledger/pkg/metrics"
)

// Collector implements metrics.Collector in memory for tests.
type Collector struct {
	mu sync.Mutex

	LockAcquired  int64
	LockTimedOut  int64
	CircuitStates map[string]metrics.CircuitState
	Operations    map[string]int64 // "operation/result" -> count
	LedgerFailed  map[string]int64
	CacheHits     int64
	CacheMisses   int64
}

var _ metrics.Collector = (*Collector)(nil)

// NewCollector creates an empty in-memory collector.
func NewCollector() *Collector {
	return &Collector{
		CircuitStates: make(map[string]metrics.CircuitState),
		Operations:    make(map[string]int64),
		LedgerFailed:  make(map[string]int64),
	}
}

func (c *Collector) RecordLockWait(_ string, acquired bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if acquired {
		c.LockAcquired++
	} else {
		c.LockTimedOut++
	}
}

func (c *Collector) RecordCircuitState(name string, state metrics.CircuitState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CircuitStates[name] = state
}

func (c *Collector) RecordBalanceOperation(operation, result string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Operations[operation+"/"+result]++
}

func (c *Collector) RecordLedgerWriteFailure(operation string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LedgerFailed[operation]++
}

func (c *Collector) RecordCacheLookup(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.CacheHits++
	} else {
		c.CacheMisses++
	}
}

// Operation returns the count for operation/result.
func (c *Collector) Operation(operation, result string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Operations[operation+"/"+result]
}

// Acquired returns how many lock acquisitions succeeded.
func (c *Collector) Acquired() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LockAcquired
}

// TimedOut returns how many lock acquisitions gave up.
func (c *Collector) TimedOut() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LockTimedOut
}
