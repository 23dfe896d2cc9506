package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"account-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// TransactionCache implements ports.TransactionCache using Redis.
// Entries never change once written, so no invalidation is needed.
type TransactionCache struct {
	client *goredis.Client
	prefix string
}

// NewTransactionCache creates a new Redis-backed transaction cache.
func NewTransactionCache(client *goredis.Client) *TransactionCache {
	return &TransactionCache{
		client: client,
		prefix: "txn:",
	}
}

// Get returns nil, nil if the transaction is not cached.
func (c *TransactionCache) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	val, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis transaction get: %w", err)
	}

	txn := &domain.Transaction{}
	if err := json.Unmarshal(val, txn); err != nil {
		return nil, fmt.Errorf("decode cached transaction %s: %w", id, err)
	}
	return txn, nil
}

// Set stores txn under its id with ttl.
func (c *TransactionCache) Set(ctx context.Context, txn *domain.Transaction, ttl time.Duration) error {
	val, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("encode transaction %s: %w", txn.ID, err)
	}
	if err := c.client.Set(ctx, c.prefix+txn.ID, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis transaction set: %w", err)
	}
	return nil
}
