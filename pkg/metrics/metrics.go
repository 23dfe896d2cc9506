package metrics

import (
	"time"
)

// Collector receives ledger and lock measurements.
// Implementations export them to a backend (Prometheus) or discard them.
type Collector interface {
	// Lock manager
	RecordLockWait(backend string, acquired bool, wait time.Duration)
	RecordCircuitState(name string, state CircuitState)

	// Balance operations; result is "success", "failed" or "error".
	RecordBalanceOperation(operation string, result string, duration time.Duration)
	RecordLedgerWriteFailure(operation string)

	// Transaction cache
	RecordCacheLookup(hit bool)
}

// Balance operation results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultError   = "error"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards everything. Used when metrics are disabled.
type NoOpCollector struct{}

func (NoOpCollector) RecordLockWait(backend string, acquired bool, wait time.Duration) {}
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
func (NoOpCollector) RecordBalanceOperation(operation, result string, duration time.Duration) {}
func (NoOpCollector) RecordLedgerWriteFailure(operation string) {}
func (NoOpCollector) RecordCacheLookup(hit bool) {}
