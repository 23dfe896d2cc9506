package service

import (
	"context"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	commitErr error
	commits   int
	rollbacks int
}

func (m *mockTx) Rollback(_ context.Context) error {
	m.rollbacks++
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.commits++
	return m.commitErr
}
