package postgres

import (
	"context"
	"fmt"
)

// ledgerProbe fails when the ledger table is missing or unreadable,
// not only when the server is down.
const ledgerProbe = "SELECT 1 FROM transactions LIMIT 1"

// HealthCheck implements ports.HealthChecker for PostgreSQL.
type HealthCheck struct {
	pool Pool
}

// NewHealthCheck creates a PostgreSQL health checker.
func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping checks that the ledger table answers.
func (h *HealthCheck) Ping(ctx context.Context) error {
	if _, err := h.pool.Exec(ctx, ledgerProbe); err != nil {
		return fmt.Errorf("ledger probe: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
