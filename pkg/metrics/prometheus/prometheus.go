package prometheus

import (
	"strconv"
	"time"

	"account-ledger/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	lockWaits    *prometheus.CounterVec
	lockWaitTime *prometheus.HistogramVec

	circuitOpens *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	operations        *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	ledgerWriteErrors *prometheus.CounterVec

	cacheLookups *prometheus.CounterVec
}

var _ metrics.Collector = (*Collector)(nil)

// NewCollector creates a new Prometheus metrics collector.
func NewCollector(namespace string) *Collector {
	return &Collector{
		lockWaits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_acquisitions_total",
				Help:      "Total number of account lock acquisition attempts",
			},
			[]string{"backend", "acquired"},
		),
		lockWaitTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for an account lock",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3s
			},
			[]string{"backend"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"name"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_operations_total",
				Help:      "Total number of balance operations by outcome",
			},
			[]string{"operation", "result"},
		),
		operationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "balance_operation_duration_seconds",
				Help:      "Balance operation latency including lock wait",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"operation"},
		),
		ledgerWriteErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_write_failures_total",
				Help:      "Total number of transaction records that could not be written",
			},
			[]string{"operation"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_cache_lookups_total",
				Help:      "Transaction cache lookups by hit/miss",
			},
			[]string{"hit"},
		),
	}
}

// Register registers all metrics with the given Prometheus registry.
func (c *Collector) Register(registry *prometheus.Registry) error {
	collectors := []prometheus.Collector{
		c.lockWaits,
		c.lockWaitTime,
		c.circuitOpens,
		c.circuitState,
		c.operations,
		c.operationLatency,
		c.ledgerWriteErrors,
		c.cacheLookups,
	}

	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// NewHeldLocksGauge reports the number of account keys held in this process.
func NewHeldLocksGauge(namespace string, held func() int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "locks_held",
			Help:      "Account lock keys currently held or awaited in this process",
		},
		func() float64 { return float64(held()) },
	)
}

// RecordLockWait records one lock acquisition attempt.
func (c *Collector) RecordLockWait(backend string, acquired bool, wait time.Duration) {
	c.lockWaits.WithLabelValues(backend, strconv.FormatBool(acquired)).Inc()
	c.lockWaitTime.WithLabelValues(backend).Observe(wait.Seconds())
}

// RecordCircuitState records the current circuit breaker state.
func (c *Collector) RecordCircuitState(name string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		c.circuitOpens.WithLabelValues(name).Inc()
	}
}

// RecordBalanceOperation records a finished use or cancel.
func (c *Collector) RecordBalanceOperation(operation, result string, duration time.Duration) {
	c.operations.WithLabelValues(operation, result).Inc()
	c.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLedgerWriteFailure counts a record that could not be persisted.
func (c *Collector) RecordLedgerWriteFailure(operation string) {
	c.ledgerWriteErrors.WithLabelValues(operation).Inc()
}

// RecordCacheLookup records a transaction cache hit or miss.
func (c *Collector) RecordCacheLookup(hit bool) {
	c.cacheLookups.WithLabelValues(strconv.FormatBool(hit)).Inc()
}
